package routes

import (
	"Plant-Care-Backend/internal/api/handlers"
	"Plant-Care-Backend/internal/middleware"
	"Plant-Care-Backend/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App          *fiber.App
	PlantHandler handlers.PlantHandler
	Middleware   middleware.Middleware
	JWTService   jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.Plants()
	c.GuestRoute()
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}

func (c *Config) Plants() {
	plants := c.App.Group("/api/v1/plants", c.Middleware.AuthMiddleware(c.JWTService))

	plants.Post("/scan", c.PlantHandler.ScanPlant)
	plants.Get("/scan/:scanId", c.PlantHandler.GetScanDetails)
	plants.Post("/scan/:scanId/correct", c.PlantHandler.CorrectScan)
	plants.Post("/scan/:scanId/feedback", c.PlantHandler.SubmitFeedback)
	plants.Get("/history", c.PlantHandler.GetHistory)
}
