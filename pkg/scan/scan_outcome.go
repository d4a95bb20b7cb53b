package scan

import (
	"Plant-Care-Backend/domain"
	"Plant-Care-Backend/entities"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ScanOutcome is the guardrailed result of a scan, classified for persistence.
// Only InvalidObjectOutcome and ValidPlantOutcome implement it.
type ScanOutcome interface {
	persist(ctx context.Context, repo ScanRepository) (persistedScan, error)
	result() domain.IdentificationResult
}

type (
	InvalidObjectOutcome struct {
		UserID   uuid.UUID
		ImageURL string
		Result   domain.IdentificationResult
	}

	ValidPlantOutcome struct {
		UserID   uuid.UUID
		ImageURL string
		Result   domain.IdentificationResult
		// CatalogSpecies is set when the species table should be upserted.
		CatalogSpecies bool
	}

	persistedScan struct {
		Scan      *entities.Scan
		SpeciesID *uuid.UUID
	}
)

// Classify turns a guardrailed result into an outcome. The returned outcome's
// result carries the shape that gets stored and returned to the caller.
func Classify(result domain.IdentificationResult, imageURL string, userID uuid.UUID, speciesUpsertThreshold float64) ScanOutcome {
	if !result.IsPlantOrDefault() {
		result.PlantName = domain.InvalidObjectName
		result.Confidence = 0
		result.CareGuide = nil
		result.IdentificationStatus = domain.StatusInvalidObject
		return InvalidObjectOutcome{UserID: userID, ImageURL: imageURL, Result: result}
	}

	result.CareGuide = domain.NormalizeCareGuide(result.CareGuide)
	catalog := result.IdentificationStatus == domain.StatusConfirmed ||
		float64(result.Confidence) > speciesUpsertThreshold
	// Uncertain results carry the placeholder name, never catalog it.
	if result.ScientificName == domain.Unknown {
		catalog = false
	}
	return ValidPlantOutcome{UserID: userID, ImageURL: imageURL, Result: result, CatalogSpecies: catalog}
}

func (o InvalidObjectOutcome) result() domain.IdentificationResult { return o.Result }

func (o ValidPlantOutcome) result() domain.IdentificationResult { return o.Result }

func (o InvalidObjectOutcome) persist(ctx context.Context, repo ScanRepository) (persistedScan, error) {
	raw, err := json.Marshal(o.Result)
	if err != nil {
		return persistedScan{}, domain.PersistenceError("encode result", err)
	}

	scan := &entities.Scan{
		ID:                   uuid.New(),
		UserID:               o.UserID,
		ImageURL:             o.ImageURL,
		AIRawResponse:        datatypes.JSON(raw),
		IsHealthy:            false,
		DiseaseName:          domain.DiseaseNone,
		IdentificationStatus: domain.StatusInvalidObject,
		Confidence:           0,
	}
	if err := repo.CreateScan(ctx, scan); err != nil {
		return persistedScan{}, domain.PersistenceError("insert scan", err)
	}
	return persistedScan{Scan: scan}, nil
}

func (o ValidPlantOutcome) persist(ctx context.Context, repo ScanRepository) (persistedScan, error) {
	raw, err := json.Marshal(o.Result)
	if err != nil {
		return persistedScan{}, domain.PersistenceError("encode result", err)
	}

	scan := &entities.Scan{
		ID:                   uuid.New(),
		UserID:               o.UserID,
		ImageURL:             o.ImageURL,
		AIRawResponse:        datatypes.JSON(raw),
		IsHealthy:            isHealthy(o.Result.HealthStatus),
		DiseaseName:          diseaseOrNone(o.Result.DiseaseName),
		IdentificationStatus: o.Result.IdentificationStatus,
		Confidence:           float64(o.Result.Confidence),
	}

	var speciesID *uuid.UUID
	err = repo.RunInTx(ctx, func(tx ScanRepository) error {
		if o.CatalogSpecies {
			careGuide, err := json.Marshal(o.Result.CareGuide)
			if err != nil {
				return domain.PersistenceError("encode care guide", err)
			}
			id, err := tx.UpsertSpecies(ctx, &entities.PlantSpecies{
				ScientificName: o.Result.ScientificName,
				CommonName:     o.Result.PlantName,
				Description:    o.Result.Description,
				CareGuide:      datatypes.JSON(careGuide),
			})
			if err != nil {
				return domain.PersistenceError("upsert species", err)
			}
			speciesID = &id
		}

		scan.PlantID = speciesID
		if err := tx.CreateScan(ctx, scan); err != nil {
			return domain.PersistenceError("insert scan", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrPersistence) {
			err = domain.PersistenceError("scan transaction", err)
		}
		return persistedScan{}, err
	}
	return persistedScan{Scan: scan, SpeciesID: speciesID}, nil
}

func diseaseOrNone(name string) string {
	if strings.TrimSpace(name) == "" {
		return domain.DiseaseNone
	}
	return name
}

func isHealthy(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), "healthy")
}
