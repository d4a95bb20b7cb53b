package scan

import (
	"Plant-Care-Backend/entities"
	"Plant-Care-Backend/internal/utils/logger"
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	ScanRepository interface {
		// RunInTx hands fn a repository bound to one transaction. fn's error
		// rolls the transaction back; a nil return commits it.
		RunInTx(ctx context.Context, fn func(tx ScanRepository) error) error

		UpsertSpecies(ctx context.Context, species *entities.PlantSpecies) (uuid.UUID, error)
		CreateScan(ctx context.Context, scan *entities.Scan) error
		GetScanByIDAndUser(ctx context.Context, id, userID string) (*entities.Scan, error)
		GetScansByUser(ctx context.Context, userID string, page, limit int) ([]*entities.Scan, int64, error)
		SaveCorrectionIfAbsent(ctx context.Context, id string, payload []byte) (bool, error)
		UpdateFeedback(ctx context.Context, id, userID, feedback string) error
	}

	scanRepository struct {
		db  *gorm.DB
		log *logger.Logger
	}
)

func NewScanRepository(db *gorm.DB, log *logger.Logger) ScanRepository {
	if log == nil {
		log = logger.NewNop()
	}
	return &scanRepository{db: db, log: log}
}

func (r *scanRepository) RunInTx(ctx context.Context, fn func(tx ScanRepository) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	committed := false
	defer func() {
		if !committed {
			r.rollback(tx)
		}
	}()

	if err := fn(&scanRepository{db: tx, log: r.log}); err != nil {
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *scanRepository) rollback(tx *gorm.DB) {
	if err := tx.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		r.log.Error("transaction rollback failed", "error", err)
	}
}

// UpsertSpecies inserts or refreshes the species keyed by scientific name and
// returns the stored row's id.
func (r *scanRepository) UpsertSpecies(ctx context.Context, species *entities.PlantSpecies) (uuid.UUID, error) {
	if species.ID == uuid.Nil {
		species.ID = uuid.New()
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scientific_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"common_name", "description", "care_guide", "updated_at"}),
	}).Create(species).Error
	if err != nil {
		return uuid.Nil, err
	}

	var stored entities.PlantSpecies
	if err := r.db.WithContext(ctx).
		Select("id").
		Where("scientific_name = ?", species.ScientificName).
		First(&stored).Error; err != nil {
		return uuid.Nil, err
	}
	return stored.ID, nil
}

func (r *scanRepository) CreateScan(ctx context.Context, scan *entities.Scan) error {
	return r.db.WithContext(ctx).Create(scan).Error
}

func (r *scanRepository) GetScanByIDAndUser(ctx context.Context, id, userID string) (*entities.Scan, error) {
	var scan entities.Scan
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&scan).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

func (r *scanRepository) GetScansByUser(ctx context.Context, userID string, page, limit int) ([]*entities.Scan, int64, error) {
	var scans []*entities.Scan
	var count int64

	offset := (page - 1) * limit

	query := r.db.WithContext(ctx).Model(&entities.Scan{}).Where("user_id = ?", userID)

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("created_at desc").Find(&scans).Error; err != nil {
		return nil, 0, err
	}

	return scans, count, nil
}

// SaveCorrectionIfAbsent writes payload only while corrected_response is still
// NULL. It reports whether this call was the one that stored it.
func (r *scanRepository) SaveCorrectionIfAbsent(ctx context.Context, id string, payload []byte) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entities.Scan{}).
		Where("id = ? AND corrected_response IS NULL", id).
		Update("corrected_response", datatypes.JSON(payload))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *scanRepository) UpdateFeedback(ctx context.Context, id, userID, feedback string) error {
	res := r.db.WithContext(ctx).Model(&entities.Scan{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("feedback", feedback)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
