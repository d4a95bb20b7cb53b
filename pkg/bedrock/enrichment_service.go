package bedrock

import (
	"Plant-Care-Backend/domain"
	"context"
	"fmt"
	"time"
)

const enrichmentSystemPrompt = `
You are a professional plant pathologist.

IMPORTANT CONTEXT:
- The plant species is already identified.
- You MUST NOT identify or guess the plant species again.

MANDATORY ANALYSIS ORDER:
1. First analyze visible symptoms ONLY from the image (spots, discoloration, mold, lesions, rust, wilting).
2. Then infer the MOST LIKELY disease consistent with the symptoms and known diseases of this species.
3. If symptoms are visible but the disease is uncertain, give the most probable disease.

STRICT RULES:
- Return ONLY valid JSON.
- Do NOT restate plant identification.
- If no visible symptoms exist, set health_status = "Healthy".
- Care guide MUST be species-specific.
- Treatment MUST be actionable for home gardeners and avoid dangerous chemicals.

Return ONLY JSON in this exact structure:
{
  "health_status": "Healthy" or "Sick" or "Unknown",
  "disease_name": "Disease Name" or "None" or "Unknown",
  "description": "Short factual symptom-based explanation",
  "care_guide": { "water": "...", "sun": "...", "soil": "...", "fertilizer": "..." },
  "treatment": ["step 1", "step 2"]
}
`

type (
	EnrichmentService interface {
		Enrich(ctx context.Context, req domain.EnrichmentRequest) (domain.EnrichmentResult, error)
		Name() string
	}

	enrichmentService struct {
		client modelClient
	}
)

func NewEnrichmentService(invoker ModelInvoker, modelID string, timeout time.Duration) EnrichmentService {
	return &enrichmentService{client: newModelClient(invoker, modelID, timeout)}
}

func (s *enrichmentService) Name() string {
	return "claude"
}

func (s *enrichmentService) Enrich(ctx context.Context, req domain.EnrichmentRequest) (domain.EnrichmentResult, error) {
	var content []contentBlock
	if len(req.Image) > 0 {
		content = append(content, imageBlock(req.Image))
	}
	content = append(content, contentBlock{
		Type: "text",
		Text: fmt.Sprintf(
			"Plant scientific name: %s\nCommon name: %s\nIdentification confidence: %.2f\n\nAnalyze ONLY health, disease, treatment, and care.",
			req.ScientificName, req.CommonName, req.Confidence,
		),
	})

	temperature := 0.1
	payload := messagesRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        1200,
		Temperature:      &temperature,
		System:           enrichmentSystemPrompt,
		Messages:         []message{{Role: "user", Content: content}},
	}

	var result domain.EnrichmentResult
	if err := s.client.invokeJSON(ctx, "enrich plant", payload, &result); err != nil {
		return domain.EnrichmentResult{}, err
	}
	return result, nil
}
