package routes

import (
	"Plant-Care-Backend/domain"
	"Plant-Care-Backend/internal/api/handlers"
	"Plant-Care-Backend/internal/middleware"
	"Plant-Care-Backend/internal/utils"
	"Plant-Care-Backend/pkg/jwt"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScanService struct{}

func (stubScanService) SubmitScan(context.Context, domain.ScanRequest) (domain.ScanResponse, error) {
	return domain.ScanResponse{}, nil
}

func (stubScanService) CorrectScan(context.Context, domain.CorrectionRequest) (domain.CorrectionResponse, error) {
	return domain.CorrectionResponse{}, nil
}

func (stubScanService) GetHistory(context.Context, string, int, int) ([]domain.ScanRecord, int64, error) {
	return nil, 0, nil
}

func (stubScanService) GetScanByID(context.Context, string, string) (domain.ScanRecord, error) {
	return domain.ScanRecord{}, nil
}

func (stubScanService) SubmitFeedback(context.Context, string, string, domain.FeedbackRequest) error {
	return nil
}

func TestSetup_PlantRoutesRequireBearer(t *testing.T) {
	utils.InitValidator()
	jwtService := jwt.NewJWTServiceWithSecret("route-secret")
	app := fiber.New()
	cfg := Config{
		App:          app,
		PlantHandler: handlers.NewPlantHandler(stubScanService{}, utils.Validate),
		Middleware:   middleware.NewMiddleware(),
		JWTService:   jwtService,
	}
	cfg.Setup()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/plants/history", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, err := jwtService.GenerateTokenUser("9e8d7c6b-5a49-4382-9716-05f4e3d2c1b0", "user")
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/api/v1/plants/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
