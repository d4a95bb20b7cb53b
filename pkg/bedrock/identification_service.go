package bedrock

import (
	"Plant-Care-Backend/domain"
	"context"
	"time"
)

const identificationPrompt = `
You are an expert botanist. Analyze this plant image.
Return ONLY a JSON object with this structure:
{
  "is_plant": true or false,
  "image_quality": "Good" or "Poor",
  "plant_name": "Common Name",
  "scientific_name": "Scientific Name",
  "description": "Short description",
  "health_status": "Healthy" or "Sick" or "Unknown",
  "disease_name": "Disease Name or 'None'",
  "confidence": 0.0 to 1.0,
  "care_guide": { "water": "...", "sun": "...", "soil": "...", "fertilizer": "..." },
  "treatment": ["step 1", "step 2"]
}
Set "is_plant" to false when the subject is not a plant.
`

type (
	IdentificationService interface {
		Analyze(ctx context.Context, image []byte) (domain.IdentificationResult, error)
		Name() string
	}

	identificationService struct {
		client modelClient
	}
)

func NewIdentificationService(invoker ModelInvoker, modelID string, timeout time.Duration) IdentificationService {
	return &identificationService{client: newModelClient(invoker, modelID, timeout)}
}

func (s *identificationService) Name() string {
	return domain.SourcePrimary
}

func (s *identificationService) Analyze(ctx context.Context, image []byte) (domain.IdentificationResult, error) {
	if len(image) == 0 {
		return domain.IdentificationResult{}, domain.ErrImageRequired
	}

	req := messagesRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        2000,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				imageBlock(image),
				{Type: "text", Text: identificationPrompt},
			},
		}},
	}

	var result domain.IdentificationResult
	if err := s.client.invokeJSON(ctx, "identify plant", req, &result); err != nil {
		return domain.IdentificationResult{}, err
	}
	return result, nil
}
