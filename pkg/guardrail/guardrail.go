// Package guardrail suppresses low-trust identification output before it is
// persisted or shown to a user.
package guardrail

import (
	"Plant-Care-Backend/domain"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	DefaultConfirmThreshold = 0.75
	minScientificNameLength = 6
)

type Evaluator struct {
	ConfirmThreshold float64
}

func NewEvaluator(confirmThreshold float64) Evaluator {
	if confirmThreshold <= 0 || confirmThreshold > 1 {
		confirmThreshold = DefaultConfirmThreshold
	}
	return Evaluator{ConfirmThreshold: confirmThreshold}
}

// Evaluate classifies raw as Confirmed or Uncertain. It has no side effects and
// Evaluate(Evaluate(x)) == Evaluate(x).
func (e Evaluator) Evaluate(raw domain.IdentificationResult) domain.IdentificationResult {
	res := normalize(raw)

	threshold := e.ConfirmThreshold
	if threshold == 0 {
		threshold = DefaultConfirmThreshold
	}

	switch {
	case float64(res.Confidence) < threshold:
		return uncertain(res)
	case !looksBinomial(res.ScientificName):
		return uncertain(res)
	case res.ImageQuality == domain.ImageQualityPoor:
		return uncertain(res)
	}

	res.IdentificationStatus = domain.StatusConfirmed
	return res
}

// Evaluate applies the default thresholds.
func Evaluate(raw domain.IdentificationResult) domain.IdentificationResult {
	return NewEvaluator(DefaultConfirmThreshold).Evaluate(raw)
}

func normalize(r domain.IdentificationResult) domain.IdentificationResult {
	c := float64(r.Confidence)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		r.Confidence = 0
	}
	r.PlantName = orUnknown(r.PlantName)
	r.ScientificName = orUnknown(r.ScientificName)
	return r
}

func uncertain(r domain.IdentificationResult) domain.IdentificationResult {
	r.PlantName = domain.Unknown
	r.ScientificName = domain.Unknown
	r.IdentificationStatus = domain.StatusUncertain
	return r
}

// looksBinomial rejects single-word and very short names such as "Rose" or "Ab c".
func looksBinomial(name string) bool {
	return len(strings.Fields(name)) > 1 && utf8.RuneCountInString(name) >= minScientificNameLength
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Unknown
	}
	return s
}
