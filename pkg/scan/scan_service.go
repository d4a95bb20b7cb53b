package scan

import (
	"Plant-Care-Backend/domain"
	"Plant-Care-Backend/internal/utils/cache"
	"Plant-Care-Backend/internal/utils/logger"
	"Plant-Care-Backend/internal/utils/storage"
	"Plant-Care-Backend/pkg/bedrock"
	"Plant-Care-Backend/pkg/guardrail"
	"Plant-Care-Backend/pkg/plantnet"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	stateSubmitted       = "submitted"
	stateAnalyzing       = "analyzing"
	stateUploading       = "uploading"
	stateGuardrailed     = "guardrailed"
	stateFastPath        = "fast_path"
	stateTransactionPath = "transaction_path"
	statePersisted       = "persisted"
	stateFailed          = "failed"

	cleanupTimeout = 5 * time.Second
)

type (
	ScanService interface {
		SubmitScan(ctx context.Context, req domain.ScanRequest) (domain.ScanResponse, error)
		CorrectScan(ctx context.Context, req domain.CorrectionRequest) (domain.CorrectionResponse, error)
		GetHistory(ctx context.Context, userID string, page, limit int) ([]domain.ScanRecord, int64, error)
		GetScanByID(ctx context.Context, scanID, userID string) (domain.ScanRecord, error)
		SubmitFeedback(ctx context.Context, scanID, userID string, req domain.FeedbackRequest) error
	}

	Config struct {
		ConfirmThreshold       float64
		SpeciesUpsertThreshold float64
		EnrichmentFloor        float64
		ImageFetchTimeout      time.Duration
		UploadTimeout          time.Duration
		PrimaryMaxAttempts     int
	}

	// Deps are the collaborators a ScanService is built from. Cache and
	// Logger may be nil.
	Deps struct {
		Repository ScanRepository
		Identifier bedrock.IdentificationService
		Enricher   bedrock.EnrichmentService
		Secondary  plantnet.PlantNetService
		Store      storage.AwsS3
		Cache      cache.CorrectionCache
		Logger     *logger.Logger
		Config     Config
	}

	scanService struct {
		repo       ScanRepository
		identifier bedrock.IdentificationService
		enricher   bedrock.EnrichmentService
		secondary  plantnet.PlantNetService
		store      storage.AwsS3
		cache      cache.CorrectionCache
		guardrails guardrail.Evaluator
		log        *logger.Logger
		cfg        Config
	}
)

func DefaultConfig() Config {
	return Config{
		ConfirmThreshold:       guardrail.DefaultConfirmThreshold,
		SpeciesUpsertThreshold: 0.4,
		EnrichmentFloor:        0.1,
		ImageFetchTimeout:      10 * time.Second,
		UploadTimeout:          15 * time.Second,
		PrimaryMaxAttempts:     2,
	}
}

func NewScanService(deps Deps) ScanService {
	cfg := deps.Config
	defaults := DefaultConfig()
	if cfg.ImageFetchTimeout <= 0 {
		cfg.ImageFetchTimeout = defaults.ImageFetchTimeout
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = defaults.UploadTimeout
	}
	if cfg.PrimaryMaxAttempts <= 0 {
		cfg.PrimaryMaxAttempts = defaults.PrimaryMaxAttempts
	}

	c := deps.Cache
	if c == nil {
		c = cache.NopCorrectionCache()
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &scanService{
		repo:       deps.Repository,
		identifier: deps.Identifier,
		enricher:   deps.Enricher,
		secondary:  deps.Secondary,
		store:      deps.Store,
		cache:      c,
		guardrails: guardrail.NewEvaluator(cfg.ConfirmThreshold),
		log:        log,
		cfg:        cfg,
	}
}

func (s *scanService) SubmitScan(ctx context.Context, req domain.ScanRequest) (domain.ScanResponse, error) {
	if len(req.Image) == 0 {
		return domain.ScanResponse{}, domain.ErrImageRequired
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return domain.ScanResponse{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrParseUUID)
	}

	log := s.log.With("user_id", userID.String())
	log.Debug("scan state", "state", stateSubmitted, "image_bytes", len(req.Image))

	raw, imageURL, err := s.identifyAndStore(ctx, req.Image, userID.String(), log)
	if err != nil {
		log.Warn("scan state", "state", stateFailed, "error", err)
		return domain.ScanResponse{}, err
	}

	result := s.guardrails.Evaluate(raw)
	result.Source = s.identifier.Name()
	log.Debug("scan state", "state", stateGuardrailed,
		"identification_status", result.IdentificationStatus,
		"confidence", float64(result.Confidence))

	outcome := Classify(result, imageURL, userID, s.cfg.SpeciesUpsertThreshold)
	switch outcome.(type) {
	case InvalidObjectOutcome:
		log.Debug("scan state", "state", stateFastPath)
	case ValidPlantOutcome:
		log.Debug("scan state", "state", stateTransactionPath)
	}

	persisted, err := outcome.persist(ctx, s.repo)
	if err != nil {
		log.Error("scan state", "state", stateFailed, "error", err)
		s.discardImage(imageURL, log)
		return domain.ScanResponse{}, err
	}
	log.Info("scan state", "state", statePersisted, "scan_id", persisted.Scan.ID.String())

	_, invalid := outcome.(InvalidObjectOutcome)
	resp := domain.ScanResponse{
		Success:    true,
		ValidPlant: !invalid,
		ScanID:     persisted.Scan.ID.String(),
		Result:     outcome.result(),
		SavedAt:    persisted.Scan.CreatedAt,
	}
	if persisted.SpeciesID != nil {
		id := persisted.SpeciesID.String()
		resp.SpeciesID = &id
	}
	return resp, nil
}

// identifyAndStore runs identification and upload side by side. Either failure
// cancels the sibling; an image that was stored anyway is removed again.
func (s *scanService) identifyAndStore(ctx context.Context, image []byte, ownerID string, log *logger.Logger) (domain.IdentificationResult, string, error) {
	var (
		raw      domain.IdentificationResult
		imageURL string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Debug("scan state", "state", stateAnalyzing)
		r, err := s.analyze(gctx, image, log)
		if err != nil {
			return err
		}
		raw = r
		return nil
	})
	g.Go(func() error {
		log.Debug("scan state", "state", stateUploading)
		uctx, cancel := context.WithTimeout(gctx, s.cfg.UploadTimeout)
		defer cancel()
		u, err := s.store.StoreScanImage(uctx, image, ownerID)
		if err != nil {
			if errors.Is(err, domain.ErrStorage) || gctx.Err() != nil {
				return err
			}
			return domain.StorageError("upload image", err)
		}
		imageURL = u
		return nil
	})

	if err := g.Wait(); err != nil {
		if imageURL != "" {
			s.discardImage(imageURL, log)
		}
		return domain.IdentificationResult{}, "", err
	}
	return raw, imageURL, nil
}

// analyze retries the primary engine only when its output could not be parsed.
func (s *scanService) analyze(ctx context.Context, image []byte, log *logger.Logger) (domain.IdentificationResult, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.PrimaryMaxAttempts; attempt++ {
		result, err := s.identifier.Analyze(ctx, image)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrMalformedModelOutput) || ctx.Err() != nil {
			break
		}
		log.Warn("primary identification returned malformed output", "attempt", attempt, "error", err)
	}
	return domain.IdentificationResult{}, lastErr
}

func (s *scanService) discardImage(imageURL string, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := s.store.DeleteImage(ctx, imageURL); err != nil {
		log.Warn("failed to remove orphaned scan image", "image_url", imageURL, "error", err)
	}
}
