package guardrail

import (
	"Plant-Care-Backend/domain"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawResult(confidence float64, scientificName string) domain.IdentificationResult {
	return domain.IdentificationResult{
		PlantName:      "Swiss Cheese Plant",
		ScientificName: scientificName,
		Description:    "Tropical climber",
		HealthStatus:   domain.HealthHealthy,
		DiseaseName:    domain.DiseaseNone,
		Confidence:     domain.Confidence(confidence),
		Treatment:      []string{"none"},
	}
}

func TestEvaluate_ConfirmsConfidentBinomial(t *testing.T) {
	got := Evaluate(rawResult(0.9, "Monstera deliciosa"))

	assert.Equal(t, domain.StatusConfirmed, got.IdentificationStatus)
	assert.Equal(t, "Swiss Cheese Plant", got.PlantName)
	assert.Equal(t, "Monstera deliciosa", got.ScientificName)
	assert.Equal(t, "Tropical climber", got.Description)
}

func TestEvaluate_LowConfidenceAlwaysUncertain(t *testing.T) {
	for _, c := range []float64{0, 0.1, 0.3, 0.5, 0.74, 0.7499} {
		inputs := []domain.IdentificationResult{
			rawResult(c, "Monstera deliciosa"),
			rawResult(c, "Rose"),
			{Confidence: domain.Confidence(c), ImageQuality: "Good", PlantName: "Fern", ScientificName: "Nephrolepis exaltata"},
		}
		for _, in := range inputs {
			got := Evaluate(in)
			assert.Equal(t, domain.Unknown, got.PlantName, "confidence %v", c)
			assert.Equal(t, domain.Unknown, got.ScientificName, "confidence %v", c)
			assert.Equal(t, domain.StatusUncertain, got.IdentificationStatus, "confidence %v", c)
		}
	}
}

func TestEvaluate_RejectsNonBinomialNames(t *testing.T) {
	tests := []struct {
		name           string
		scientificName string
	}{
		{name: "single word", scientificName: "Monstera"},
		{name: "too short", scientificName: "A b"},
		{name: "blank", scientificName: "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(rawResult(0.95, tt.scientificName))
			assert.Equal(t, domain.StatusUncertain, got.IdentificationStatus)
			assert.Equal(t, domain.Unknown, got.PlantName)
			assert.Equal(t, domain.Unknown, got.ScientificName)
		})
	}
}

func TestEvaluate_PoorImageQuality(t *testing.T) {
	in := rawResult(0.95, "Monstera deliciosa")
	in.ImageQuality = domain.ImageQualityPoor

	got := Evaluate(in)
	assert.Equal(t, domain.StatusUncertain, got.IdentificationStatus)
	assert.Equal(t, domain.Unknown, got.PlantName)
}

func TestEvaluate_NormalizesBlankNames(t *testing.T) {
	in := rawResult(0.95, "  Ficus lyrata ")
	in.PlantName = "  "

	got := Evaluate(in)
	assert.Equal(t, domain.StatusConfirmed, got.IdentificationStatus)
	assert.Equal(t, domain.Unknown, got.PlantName)
	assert.Equal(t, "Ficus lyrata", got.ScientificName)
}

func TestEvaluate_NonNumericConfidenceIsZero(t *testing.T) {
	var in domain.IdentificationResult
	require.NoError(t, json.Unmarshal([]byte(`{"plant_name":"Fig","scientific_name":"Ficus carica","confidence":"very high"}`), &in))

	got := Evaluate(in)
	assert.Equal(t, domain.Confidence(0), got.Confidence)
	assert.Equal(t, domain.StatusUncertain, got.IdentificationStatus)

	got = Evaluate(rawResult(math.NaN(), "Ficus carica"))
	assert.Equal(t, domain.Confidence(0), got.Confidence)
}

func TestEvaluate_Idempotent(t *testing.T) {
	poor := rawResult(0.99, "Ficus carica")
	poor.ImageQuality = domain.ImageQualityPoor

	inputs := []domain.IdentificationResult{
		rawResult(0.9, "Monstera deliciosa"),
		rawResult(0.3, "Monstera deliciosa"),
		rawResult(0.8, "Rose"),
		rawResult(0.75, " Ficus   carica "),
		poor,
		{},
	}
	for _, in := range inputs {
		once := Evaluate(in)
		twice := Evaluate(once)
		assert.Equal(t, once, twice)
	}
}

func TestEvaluate_DoesNotMutateInput(t *testing.T) {
	in := rawResult(0.2, "Monstera deliciosa")
	_ = Evaluate(in)
	assert.Equal(t, "Monstera deliciosa", in.ScientificName)
	assert.Empty(t, in.IdentificationStatus)
}

func TestNewEvaluator_CustomThreshold(t *testing.T) {
	strict := NewEvaluator(0.95)
	assert.Equal(t, domain.StatusUncertain, strict.Evaluate(rawResult(0.9, "Monstera deliciosa")).IdentificationStatus)

	invalid := NewEvaluator(7)
	assert.Equal(t, DefaultConfirmThreshold, invalid.ConfirmThreshold)
}
