package handlers

import (
	"Plant-Care-Backend/domain"
	"Plant-Care-Backend/internal/api/presenters"
	"Plant-Care-Backend/pkg/scan"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// MaxImageBytes caps a single scan upload.
const MaxImageBytes = 10 << 20

type (
	PlantHandler interface {
		ScanPlant(c *fiber.Ctx) error
		CorrectScan(c *fiber.Ctx) error
		GetHistory(c *fiber.Ctx) error
		GetScanDetails(c *fiber.Ctx) error
		SubmitFeedback(c *fiber.Ctx) error
	}

	plantHandler struct {
		scanService scan.ScanService
		validator   *validator.Validate
	}
)

func NewPlantHandler(scanService scan.ScanService, validator *validator.Validate) PlantHandler {
	return &plantHandler{
		scanService: scanService,
		validator:   validator,
	}
}

func (h *plantHandler) ScanPlant(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	image, err := readScanImage(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedScanPlant, err)
	}

	req := domain.ScanRequest{Image: image, UserID: userID}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedScanPlant, err)
	}

	res, err := h.scanService.SubmitScan(c.Context(), req)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedScanPlant, err)
	}

	return c.Status(fiber.StatusOK).JSON(res)
}

func (h *plantHandler) CorrectScan(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	req := domain.CorrectionRequest{ScanID: c.Params("scanId"), UserID: userID}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCorrectScan, err)
	}

	res, err := h.scanService.CorrectScan(c.Context(), req)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedCorrectScan, err)
	}

	return c.Status(fiber.StatusOK).JSON(res)
}

func (h *plantHandler) GetHistory(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}

	records, count, err := h.scanService.GetHistory(c.Context(), userID, page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedGetHistory, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"items": records,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       count,
			"total_pages": (count + int64(limit) - 1) / int64(limit),
		},
	}, fiber.StatusOK, domain.MessageSuccessGetHistory)
}

func (h *plantHandler) GetScanDetails(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	record, err := h.scanService.GetScanByID(c.Context(), c.Params("scanId"), userID)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedGetScan, err)
	}

	return presenters.SuccessResponse(c, record, fiber.StatusOK, domain.MessageSuccessGetScan)
}

func (h *plantHandler) SubmitFeedback(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	req := new(domain.FeedbackRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSubmitFeedback, err)
	}

	if err := h.scanService.SubmitFeedback(c.Context(), c.Params("scanId"), userID, *req); err != nil {
		return presenters.ErrorResponse(c, presenters.StatusFromError(err), domain.MessageFailedSubmitFeedback, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessSubmitFeedback)
}

// readScanImage accepts a multipart "image" file or an "image" field holding
// base64 or a data URI.
func readScanImage(c *fiber.Ctx) ([]byte, error) {
	if fileHeader, err := c.FormFile("image"); err == nil {
		if fileHeader.Size > MaxImageBytes {
			return nil, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrValidation, MaxImageBytes)
		}
		file, err := fileHeader.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		defer file.Close()

		image, err := io.ReadAll(io.LimitReader(file, MaxImageBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		if len(image) == 0 {
			return nil, domain.ErrImageRequired
		}
		return image, nil
	}

	req := new(domain.ScanImageRequest)
	if err := c.BodyParser(req); err != nil {
		return nil, domain.ErrImageRequired
	}
	return DecodeImagePayload(req.Image)
}

// DecodeImagePayload decodes base64 image data, with or without a data URI
// prefix.
func DecodeImagePayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		_, data, found := strings.Cut(payload, ",")
		if !found {
			return nil, domain.ErrInvalidImage
		}
		payload = data
	}
	if payload == "" {
		return nil, domain.ErrImageRequired
	}

	image, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		image, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, domain.ErrInvalidImage
		}
	}
	if len(image) == 0 {
		return nil, domain.ErrImageRequired
	}
	if len(image) > MaxImageBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrValidation, MaxImageBytes)
	}
	return image, nil
}
