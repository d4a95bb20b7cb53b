package presenters

import (
	"Plant-Care-Backend/domain"
	"Plant-Care-Backend/internal/utils"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFromError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrImageRequired, fiber.StatusBadRequest},
		{domain.ErrScanNotFound, fiber.StatusNotFound},
		{domain.ErrTokenExpired, fiber.StatusUnauthorized},
		{domain.ErrMalformedModelOutput, fiber.StatusBadGateway},
		{domain.StorageError("put object", errors.New("denied")), fiber.StatusBadGateway},
		{domain.PersistenceError("insert scan", errors.New("locked")), fiber.StatusInternalServerError},
		{errors.New("anything else"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFromError(tc.err), tc.err.Error())
	}
}

func TestErrorResponse_WithholdsServerDetailInProduction(t *testing.T) {
	t.Cleanup(func() { utils.SetConfig(utils.Config{}) })

	app := fiber.New()
	app.Get("/server", func(c *fiber.Ctx) error {
		return ErrorResponse(c, fiber.StatusInternalServerError, "failed", errors.New("pq: password authentication failed"))
	})
	app.Get("/client", func(c *fiber.Ctx) error {
		return ErrorResponse(c, fiber.StatusBadRequest, "failed", domain.ErrImageRequired)
	})

	decode := func(path string) Response {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		var out Response
		require.NoError(t, json.Unmarshal(body, &out))
		return out
	}

	utils.SetConfig(utils.Config{IsProd: true})
	assert.Empty(t, decode("/server").Error)
	assert.Equal(t, domain.ErrImageRequired.Error(), decode("/client").Error)

	utils.SetConfig(utils.Config{IsProd: false})
	assert.Contains(t, decode("/server").Error, "password authentication failed")
}
