package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	MessageSuccessScanPlant      = "plant scanned successfully"
	MessageSuccessCorrectScan    = "scan corrected successfully"
	MessageSuccessGetHistory     = "scan history retrieved successfully"
	MessageSuccessGetScan        = "scan retrieved successfully"
	MessageSuccessSubmitFeedback = "feedback submitted successfully"

	MessageFailedScanPlant      = "failed to scan plant"
	MessageFailedCorrectScan    = "failed to correct scan"
	MessageFailedGetHistory     = "failed to fetch history"
	MessageFailedGetScan        = "failed to fetch scan details"
	MessageFailedSubmitFeedback = "failed to submit feedback"

	ErrImageRequired   = fmt.Errorf("%w: image required", ErrValidation)
	ErrInvalidImage    = fmt.Errorf("%w: image is not valid base64", ErrValidation)
	ErrInvalidFeedback = fmt.Errorf("%w: feedback must be like or dislike", ErrValidation)
	ErrScanNotFound    = fmt.Errorf("%w: scan not found", ErrNotFound)
)

const (
	StatusConfirmed     = "Confirmed"
	StatusUncertain     = "Uncertain"
	StatusInvalidObject = "Invalid Object"

	HealthHealthy = "Healthy"
	HealthSick    = "Sick"
	HealthUnknown = "Unknown"

	Unknown           = "Unknown"
	InvalidObjectName = "Invalid Object"
	DiseaseNone       = "None"
	ImageQualityPoor  = "Poor"

	SourcePrimary        = "claude"
	SourceCache          = "cache"
	SourcePlantNetClaude = "plantnet+claude"
	SourcePlantNetOnly   = "plantnet-only"

	FeedbackLike    = "like"
	FeedbackDislike = "dislike"
)

// Confidence accepts a JSON number or a numeric string. Anything else,
// including NaN and infinities, decodes as 0.
type Confidence float64

func (c *Confidence) UnmarshalJSON(b []byte) error {
	*c = 0
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*c = Confidence(f)
	return nil
}

type (
	CareGuide struct {
		Water      *string `json:"water"`
		Sun        *string `json:"sun"`
		Soil       *string `json:"soil"`
		Fertilizer *string `json:"fertilizer"`
	}

	Alternative struct {
		ScientificName string  `json:"scientific_name"`
		Score          float64 `json:"score"`
	}

	IdentificationResult struct {
		PlantName            string        `json:"plant_name"`
		ScientificName       string        `json:"scientific_name"`
		Description          string        `json:"description"`
		HealthStatus         string        `json:"health_status"`
		DiseaseName          string        `json:"disease_name"`
		Confidence           Confidence    `json:"confidence"`
		CareGuide            *CareGuide    `json:"care_guide"`
		Treatment            []string      `json:"treatment"`
		IsPlant              *bool         `json:"is_plant,omitempty"`
		ImageQuality         string        `json:"image_quality,omitempty"`
		IdentificationStatus string        `json:"identification_status,omitempty"`
		Source               string        `json:"source,omitempty"`
		Alternatives         []Alternative `json:"alternatives,omitempty"`
	}

	// SecondaryIdentification is the normalized visual-similarity result.
	SecondaryIdentification struct {
		Confidence     float64       `json:"confidence"`
		ScientificName string        `json:"scientific_name"`
		CommonName     string        `json:"common_name"`
		Alternatives   []Alternative `json:"alternatives"`
	}

	EnrichmentRequest struct {
		ScientificName string
		CommonName     string
		Confidence     float64
		Image          []byte
	}

	// EnrichmentResult never carries species identity.
	EnrichmentResult struct {
		HealthStatus string     `json:"health_status"`
		DiseaseName  string     `json:"disease_name"`
		Description  string     `json:"description"`
		CareGuide    *CareGuide `json:"care_guide"`
		Treatment    []string   `json:"treatment"`
	}

	ScanRequest struct {
		Image  []byte `validate:"required,min=1"`
		UserID string `validate:"required,uuid"`
	}

	ScanImageRequest struct {
		Image string `json:"image" form:"image"`
	}

	ScanResponse struct {
		Success    bool                 `json:"success"`
		ValidPlant bool                 `json:"valid_plant"`
		ScanID     string               `json:"scanId"`
		SpeciesID  *string              `json:"speciesId,omitempty"`
		Result     IdentificationResult `json:"result"`
		SavedAt    time.Time            `json:"savedAt"`
	}

	CorrectionRequest struct {
		ScanID string `validate:"required,uuid"`
		UserID string `validate:"required,uuid"`
	}

	CorrectionResponse struct {
		Source    string               `json:"source"`
		Corrected bool                 `json:"corrected"`
		Data      IdentificationResult `json:"data"`
	}

	FeedbackRequest struct {
		Feedback string `json:"feedback" validate:"required,oneof=like dislike"`
	}

	ScanRecord struct {
		ID                   string                `json:"id"`
		CreatedAt            time.Time             `json:"createdAt"`
		ImageURL             string                `json:"imageUrl"`
		PlantName            string                `json:"plantName"`
		ScientificName       string                `json:"scientificName"`
		HealthStatus         string                `json:"healthStatus"`
		DiseaseName          string                `json:"diseaseName"`
		IsHealthy            bool                  `json:"isHealthy"`
		Confidence           float64               `json:"confidence"`
		ConfidenceLevel      string                `json:"confidenceLevel"`
		CareGuide            *CareGuide            `json:"careGuide"`
		Treatment            []string              `json:"treatment"`
		IdentificationStatus string                `json:"identificationStatus"`
		IdentificationSource string                `json:"identificationSource"`
		Corrected            bool                  `json:"corrected"`
		Feedback             *string               `json:"feedback"`
		FullResponse         *IdentificationResult `json:"fullResponse"`
	}
)

// IsPlantOrDefault treats an absent is_plant as true.
func (r IdentificationResult) IsPlantOrDefault() bool {
	return r.IsPlant == nil || *r.IsPlant
}

// ConfidenceLevel buckets a score into high, medium or low.
func ConfidenceLevel(score float64) string {
	switch {
	case score >= 0.8:
		return "high"
	case score >= 0.5:
		return "medium"
	default:
		return "low"
	}
}

// NormalizeCareGuide always returns the four-key shape, keeping known values.
func NormalizeCareGuide(g *CareGuide) *CareGuide {
	if g == nil {
		return &CareGuide{}
	}
	out := *g
	return &out
}

func DecodeIdentificationResult(raw []byte) (IdentificationResult, error) {
	var r IdentificationResult
	if len(raw) == 0 {
		return r, errors.New("empty identification result")
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, err
	}
	return r, nil
}
