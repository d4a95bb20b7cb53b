// Package plantnet wraps the Pl@ntNet visual identification API.
package plantnet

import (
	"Plant-Care-Backend/domain"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAPIURL  = "https://my-api.plantnet.org/v2/identify"
	DefaultTimeout = 15 * time.Second
	maxAlternates  = 3
)

type (
	PlantNetService interface {
		// Identify returns the normalized ranking; no match is not an error.
		Identify(ctx context.Context, image []byte) (domain.SecondaryIdentification, error)
		Name() string
	}

	IdentifyResponse struct {
		Results []Candidate `json:"results"`
	}

	Candidate struct {
		Score   float64 `json:"score"`
		Species struct {
			ScientificNameWithoutAuthor string   `json:"scientificNameWithoutAuthor"`
			CommonNames                 []string `json:"commonNames"`
		} `json:"species"`
	}

	plantNetService struct {
		httpClient *http.Client
		apiURL     string
		apiKey     string
		timeout    time.Duration
	}
)

func NewPlantNetService(httpClient *http.Client, apiURL, apiKey string, timeout time.Duration) PlantNetService {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &plantNetService{
		httpClient: httpClient,
		apiURL:     strings.TrimRight(apiURL, "/"),
		apiKey:     apiKey,
		timeout:    timeout,
	}
}

func (s *plantNetService) Name() string {
	return "plantnet"
}

func (s *plantNetService) Identify(ctx context.Context, image []byte) (domain.SecondaryIdentification, error) {
	if len(image) == 0 {
		return domain.SecondaryIdentification{}, domain.ErrImageRequired
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="images"; filename="plant.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	if err != nil {
		return domain.SecondaryIdentification{}, domain.InferenceError("plantnet form", err)
	}
	if _, err := part.Write(image); err != nil {
		return domain.SecondaryIdentification{}, domain.InferenceError("plantnet form", err)
	}
	if err := writer.WriteField("organs", "leaf"); err != nil {
		return domain.SecondaryIdentification{}, domain.InferenceError("plantnet form", err)
	}
	if err := writer.Close(); err != nil {
		return domain.SecondaryIdentification{}, domain.InferenceError("plantnet form", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/all?%s", s.apiURL, url.Values{"api-key": {s.apiKey}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return domain.SecondaryIdentification{}, domain.InferenceError("plantnet request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// url.Error would echo the api key back to the caller.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.SecondaryIdentification{}, domain.InferenceError("plantnet identify", ctxErr)
		}
		return domain.SecondaryIdentification{}, domain.InferenceError("plantnet identify", unwrapURLError(err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Pl@ntNet answers 404 "Species not found" when nothing matches.
		return Normalize(IdentifyResponse{}), nil
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.SecondaryIdentification{}, domain.InferenceError(
			"plantnet identify",
			fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(snippet))),
		)
	}

	var decoded IdentifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.SecondaryIdentification{}, fmt.Errorf("%w: plantnet: %v", domain.ErrMalformedModelOutput, err)
	}
	return Normalize(decoded), nil
}

// Normalize picks the top candidate and keeps ranks 2-4 as alternatives.
func Normalize(resp IdentifyResponse) domain.SecondaryIdentification {
	if len(resp.Results) == 0 {
		return domain.SecondaryIdentification{
			Confidence:     0,
			ScientificName: domain.Unknown,
			CommonName:     domain.Unknown,
			Alternatives:   []domain.Alternative{},
		}
	}

	top := resp.Results[0]
	out := domain.SecondaryIdentification{
		Confidence:     top.Score,
		ScientificName: top.Species.ScientificNameWithoutAuthor,
		CommonName:     top.Species.ScientificNameWithoutAuthor,
		Alternatives:   make([]domain.Alternative, 0, maxAlternates),
	}
	if len(top.Species.CommonNames) > 0 && strings.TrimSpace(top.Species.CommonNames[0]) != "" {
		out.CommonName = top.Species.CommonNames[0]
	}

	rest := resp.Results[1:]
	if len(rest) > maxAlternates {
		rest = rest[:maxAlternates]
	}
	for _, c := range rest {
		out.Alternatives = append(out.Alternatives, domain.Alternative{
			ScientificName: c.Species.ScientificNameWithoutAuthor,
			Score:          c.Score,
		})
	}
	return out
}

func unwrapURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
