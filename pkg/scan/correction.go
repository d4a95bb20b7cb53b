package scan

import (
	"Plant-Care-Backend/domain"
	"Plant-Care-Backend/entities"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	fallbackWater      = "Water when the top few centimetres of soil are dry."
	fallbackSun        = "Bright, indirect light."
	fallbackSoil       = "Well-draining potting mix."
	fallbackFertilizer = "Balanced fertilizer once a month during the growing season."
)

func (s *scanService) CorrectScan(ctx context.Context, req domain.CorrectionRequest) (domain.CorrectionResponse, error) {
	scanID, userID, err := parseScanAndUser(req.ScanID, req.UserID)
	if err != nil {
		return domain.CorrectionResponse{}, err
	}
	log := s.log.With("scan_id", scanID, "user_id", userID)
	cacheKey := userID + ":" + scanID

	if payload, ok := s.cachedCorrection(ctx, cacheKey); ok {
		if data, err := domain.DecodeIdentificationResult(payload); err == nil {
			log.Debug("correction served from front cache")
			return domain.CorrectionResponse{Source: domain.SourceCache, Corrected: true, Data: data}, nil
		}
		log.Warn("discarding undecodable cached correction")
	}

	scan, err := s.repo.GetScanByIDAndUser(ctx, scanID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CorrectionResponse{}, domain.ErrScanNotFound
		}
		return domain.CorrectionResponse{}, domain.PersistenceError("load scan", err)
	}

	if scan.HasCorrection() {
		data, err := domain.DecodeIdentificationResult(scan.CorrectedResponse)
		if err != nil {
			return domain.CorrectionResponse{}, domain.PersistenceError("decode stored correction", err)
		}
		s.rememberCorrection(ctx, cacheKey, scan.CorrectedResponse)
		return domain.CorrectionResponse{Source: domain.SourceCache, Corrected: true, Data: data}, nil
	}

	merged, err := s.computeCorrection(ctx, scan)
	if err != nil {
		log.Warn("correction failed", "error", err)
		return domain.CorrectionResponse{}, err
	}

	payload, err := json.Marshal(merged)
	if err != nil {
		return domain.CorrectionResponse{}, domain.PersistenceError("encode correction", err)
	}

	saved, err := s.repo.SaveCorrectionIfAbsent(ctx, scanID, payload)
	if err != nil {
		return domain.CorrectionResponse{}, domain.PersistenceError("save correction", err)
	}
	if !saved {
		// A concurrent request stored its correction first; that value wins.
		log.Info("correction already recorded by a concurrent request")
		stored, err := s.repo.GetScanByIDAndUser(ctx, scanID, userID)
		if err != nil {
			return domain.CorrectionResponse{}, domain.PersistenceError("reload scan", err)
		}
		if !stored.HasCorrection() {
			return domain.CorrectionResponse{}, domain.PersistenceError("save correction", fmt.Errorf("scan %s has no stored correction", scanID))
		}
		payload = stored.CorrectedResponse
	}

	data, err := domain.DecodeIdentificationResult(payload)
	if err != nil {
		return domain.CorrectionResponse{}, domain.PersistenceError("decode correction", err)
	}
	s.rememberCorrection(ctx, cacheKey, payload)
	log.Info("correction recorded", "source", data.Source)

	return domain.CorrectionResponse{Source: data.Source, Corrected: true, Data: data}, nil
}

func (s *scanService) computeCorrection(ctx context.Context, scan *entities.Scan) (domain.IdentificationResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.ImageFetchTimeout)
	image, err := s.store.FetchImage(fetchCtx, scan.ImageURL)
	cancel()
	if err != nil {
		return domain.IdentificationResult{}, err
	}

	secondary, err := s.secondary.Identify(ctx, image)
	if err != nil {
		return domain.IdentificationResult{}, err
	}

	merged := domain.IdentificationResult{
		PlantName:      secondary.CommonName,
		ScientificName: secondary.ScientificName,
		Confidence:     domain.Confidence(secondary.Confidence),
		Alternatives:   secondary.Alternatives,
	}

	if secondary.Confidence < s.cfg.EnrichmentFloor {
		merged.Description = fmt.Sprintf("Visually matched to %s. Confidence is too low for a health assessment.", secondary.ScientificName)
		merged.HealthStatus = domain.HealthUnknown
		merged.DiseaseName = domain.Unknown
		merged.CareGuide = fallbackCareGuide()
		merged.Treatment = []string{}
		merged.Source = domain.SourcePlantNetOnly
		return merged, nil
	}

	enrichment, err := s.enricher.Enrich(ctx, domain.EnrichmentRequest{
		ScientificName: secondary.ScientificName,
		CommonName:     secondary.CommonName,
		Confidence:     secondary.Confidence,
		Image:          image,
	})
	if err != nil {
		return domain.IdentificationResult{}, err
	}

	merged.Description = enrichment.Description
	merged.HealthStatus = enrichment.HealthStatus
	merged.DiseaseName = enrichment.DiseaseName
	merged.CareGuide = domain.NormalizeCareGuide(enrichment.CareGuide)
	merged.Treatment = enrichment.Treatment
	if merged.Treatment == nil {
		merged.Treatment = []string{}
	}
	merged.Source = domain.SourcePlantNetClaude
	return merged, nil
}

func fallbackCareGuide() *domain.CareGuide {
	water, sun, soil, fertilizer := fallbackWater, fallbackSun, fallbackSoil, fallbackFertilizer
	return &domain.CareGuide{Water: &water, Sun: &sun, Soil: &soil, Fertilizer: &fertilizer}
}

// The front cache is best effort: errors are logged and read as a miss.
func (s *scanService) cachedCorrection(ctx context.Context, key string) ([]byte, bool) {
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("correction cache read failed", "key", key, "error", err)
		return nil, false
	}
	return payload, ok
}

func (s *scanService) rememberCorrection(ctx context.Context, key string, payload []byte) {
	if err := s.cache.Set(ctx, key, payload); err != nil {
		s.log.Warn("correction cache write failed", "key", key, "error", err)
	}
}

func (s *scanService) GetHistory(ctx context.Context, userID string, page, limit int) ([]domain.ScanRecord, int64, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrParseUUID)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	scans, count, err := s.repo.GetScansByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, domain.PersistenceError("list scans", err)
	}

	records := make([]domain.ScanRecord, 0, len(scans))
	for _, scan := range scans {
		records = append(records, toScanRecord(scan))
	}
	return records, count, nil
}

func (s *scanService) GetScanByID(ctx context.Context, scanID, userID string) (domain.ScanRecord, error) {
	scanID, userID, err := parseScanAndUser(scanID, userID)
	if err != nil {
		return domain.ScanRecord{}, err
	}

	scan, err := s.repo.GetScanByIDAndUser(ctx, scanID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ScanRecord{}, domain.ErrScanNotFound
		}
		return domain.ScanRecord{}, domain.PersistenceError("load scan", err)
	}
	return toScanRecord(scan), nil
}

func (s *scanService) SubmitFeedback(ctx context.Context, scanID, userID string, req domain.FeedbackRequest) error {
	scanID, userID, err := parseScanAndUser(scanID, userID)
	if err != nil {
		return err
	}
	if req.Feedback != domain.FeedbackLike && req.Feedback != domain.FeedbackDislike {
		return domain.ErrInvalidFeedback
	}

	if err := s.repo.UpdateFeedback(ctx, scanID, userID, req.Feedback); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrScanNotFound
		}
		return domain.PersistenceError("update feedback", err)
	}
	return nil
}

func parseScanAndUser(scanID, userID string) (string, string, error) {
	sid, err := uuid.Parse(scanID)
	if err != nil {
		return "", "", fmt.Errorf("%w: invalid scan id", domain.ErrValidation)
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrParseUUID)
	}
	return sid.String(), uid.String(), nil
}

// toScanRecord renders the stored row, preferring the correction when present.
func toScanRecord(scan *entities.Scan) domain.ScanRecord {
	record := domain.ScanRecord{
		ID:                   scan.ID.String(),
		CreatedAt:            scan.CreatedAt,
		ImageURL:             scan.ImageURL,
		DiseaseName:          scan.DiseaseName,
		IsHealthy:            scan.IsHealthy,
		Confidence:           scan.Confidence,
		IdentificationStatus: scan.IdentificationStatus,
		Corrected:            scan.HasCorrection(),
		Feedback:             scan.Feedback,
		Treatment:            []string{},
	}

	effective, err := domain.DecodeIdentificationResult(scan.AIRawResponse)
	if scan.HasCorrection() {
		if corrected, cerr := domain.DecodeIdentificationResult(scan.CorrectedResponse); cerr == nil {
			effective, err = corrected, nil
			record.IsHealthy = isHealthy(corrected.HealthStatus)
			record.DiseaseName = corrected.DiseaseName
			record.Confidence = float64(corrected.Confidence)
		}
	}
	if err != nil {
		record.ConfidenceLevel = domain.ConfidenceLevel(record.Confidence)
		return record
	}

	record.PlantName = effective.PlantName
	record.ScientificName = effective.ScientificName
	record.HealthStatus = effective.HealthStatus
	record.CareGuide = effective.CareGuide
	if effective.Treatment != nil {
		record.Treatment = effective.Treatment
	}
	record.IdentificationSource = effective.Source
	record.ConfidenceLevel = domain.ConfidenceLevel(record.Confidence)
	record.FullResponse = &effective
	return record
}
