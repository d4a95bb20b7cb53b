package config

import (
	"Plant-Care-Backend/internal/api/handlers"
	"Plant-Care-Backend/internal/api/routes"
	"Plant-Care-Backend/internal/middleware"
	"Plant-Care-Backend/internal/utils"
	"Plant-Care-Backend/internal/utils/cache"
	"Plant-Care-Backend/internal/utils/logger"
	"Plant-Care-Backend/internal/utils/storage"
	"Plant-Care-Backend/pkg/bedrock"
	"Plant-Care-Backend/pkg/jwt"
	"Plant-Care-Backend/pkg/plantnet"
	"Plant-Care-Backend/pkg/scan"
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func NewApp(ctx context.Context, db *gorm.DB, log *logger.Logger) (*fiber.App, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: !utils.IsProd(),
		BodyLimit:         handlers.MaxImageBytes * 2,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	// setting up access logging and limiter
	if err := os.MkdirAll("./logs", os.ModePerm); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		return nil, fmt.Errorf("open access log: %w", err)
	}
	app.Use(fiberlogger.New(fiberlogger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Asia/Jakarta",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	pipeline := utils.PipelineConfig()

	// adapters
	s3, err := storage.NewAwsS3(ctx, pipeline.RemoteTimeout)
	if err != nil {
		return nil, err
	}
	invoker, err := bedrock.NewModelInvoker(ctx)
	if err != nil {
		return nil, err
	}
	modelID := utils.GetConfig("BEDROCK_MODEL_ID")
	identifier := bedrock.NewIdentificationService(invoker, modelID, pipeline.RemoteTimeout)
	enricher := bedrock.NewEnrichmentService(invoker, modelID, pipeline.RemoteTimeout)
	plantNet := plantnet.NewPlantNetService(
		&http.Client{},
		utils.GetConfig("PLANTNET_API_URL"),
		utils.GetConfig("PLANTNET_API_KEY"),
		pipeline.RemoteTimeout,
	)

	corrections, err := cache.NewCorrectionCache(ctx)
	if err != nil {
		log.Warn("correction cache unavailable, continuing without it", "error", err)
		corrections = cache.NopCorrectionCache()
	}
	app.Hooks().OnShutdown(corrections.Close)

	// Repository
	scanRepository := scan.NewScanRepository(db, log)

	// Service
	jwtService := jwt.NewJWTService()
	scanService := scan.NewScanService(scan.Deps{
		Repository: scanRepository,
		Identifier: identifier,
		Enricher:   enricher,
		Secondary:  plantNet,
		Store:      s3,
		Cache:      corrections,
		Logger:     log,
		Config: scan.Config{
			ConfirmThreshold:       pipeline.ConfirmThreshold,
			SpeciesUpsertThreshold: pipeline.SpeciesUpsertThreshold,
			EnrichmentFloor:        pipeline.EnrichmentFloor,
			ImageFetchTimeout:      pipeline.ImageFetchTimeout,
			UploadTimeout:          pipeline.RemoteTimeout,
			PrimaryMaxAttempts:     pipeline.PrimaryMaxAttempts,
		},
	})

	// Handler
	plantHandler := handlers.NewPlantHandler(scanService, validator)

	// routes
	routesConfig := routes.Config{
		App:          app,
		PlantHandler: plantHandler,
		Middleware:   middlewares,
		JWTService:   jwtService,
	}
	routesConfig.Setup()
	return app, nil
}
