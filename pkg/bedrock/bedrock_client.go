// Package bedrock talks to Anthropic models hosted on AWS Bedrock for plant
// identification and disease/care enrichment.
package bedrock

import (
	"Plant-Care-Backend/domain"
	"Plant-Care-Backend/internal/utils"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	DefaultModelID   = "us.anthropic.claude-3-5-sonnet-20240620-v1:0"
	DefaultRegion    = "us-east-1"
	DefaultTimeout   = 15 * time.Second
	anthropicVersion = "bedrock-2023-05-31"
)

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

type (
	// ModelInvoker is the subset of *bedrockruntime.Client used here.
	ModelInvoker interface {
		InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	}

	contentBlock struct {
		Type   string       `json:"type"`
		Text   string       `json:"text,omitempty"`
		Source *imageSource `json:"source,omitempty"`
	}

	imageSource struct {
		Type      string `json:"type"`
		MediaType string `json:"media_type"`
		Data      string `json:"data"`
	}

	message struct {
		Role    string         `json:"role"`
		Content []contentBlock `json:"content"`
	}

	messagesRequest struct {
		AnthropicVersion string    `json:"anthropic_version"`
		MaxTokens        int       `json:"max_tokens"`
		Temperature      *float64  `json:"temperature,omitempty"`
		System           string    `json:"system,omitempty"`
		Messages         []message `json:"messages"`
	}

	messagesResponse struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}

	modelClient struct {
		invoker ModelInvoker
		modelID string
		timeout time.Duration
	}
)

// NewModelInvoker builds a Bedrock runtime client from BEDROCK_REGION and the
// shared AWS keys.
func NewModelInvoker(ctx context.Context) (ModelInvoker, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(utils.GetConfigOr("BEDROCK_REGION", DefaultRegion)),
	}
	accessKey := strings.TrimSpace(utils.GetConfig("AWS_ACCESS_KEY"))
	secretKey := strings.TrimSpace(utils.GetConfig("AWS_SECRET_KEY"))
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

func newModelClient(invoker ModelInvoker, modelID string, timeout time.Duration) modelClient {
	if modelID == "" {
		modelID = DefaultModelID
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return modelClient{invoker: invoker, modelID: modelID, timeout: timeout}
}

// invokeJSON sends req and decodes the first text block of the reply into out.
func (c modelClient) invokeJSON(ctx context.Context, op string, req messagesRequest, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.InferenceError(op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.invoker.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return domain.InferenceError(op, err)
	}

	var decoded messagesResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMalformedModelOutput, op, err)
	}
	if len(decoded.Content) == 0 || strings.TrimSpace(decoded.Content[0].Text) == "" {
		return fmt.Errorf("%w: %s: empty content", domain.ErrMalformedModelOutput, op)
	}

	text := extractJSON(decoded.Content[0].Text)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMalformedModelOutput, op, err)
	}
	return nil
}

// extractJSON strips markdown fences and any prose around the JSON object.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	if match := jsonObjectPattern.FindString(text); match != "" {
		return match
	}
	return strings.TrimSpace(text)
}

func imageBlock(image []byte) contentBlock {
	return contentBlock{
		Type: "image",
		Source: &imageSource{
			Type:      "base64",
			MediaType: mediaType(image),
			Data:      base64.StdEncoding.EncodeToString(image),
		},
	}
}

func mediaType(image []byte) string {
	switch t := http.DetectContentType(image); t {
	case "image/png", "image/gif", "image/webp", "image/jpeg":
		return t
	default:
		return "image/jpeg"
	}
}
