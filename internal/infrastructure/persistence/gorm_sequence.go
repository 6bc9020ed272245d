package persistence

import (
	"context"
	"time"

	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSequence allocates document ids from the document_sequences table.
// Each call runs in its own transaction holding the counter row lock, so ids
// stay unique across processes sharing the database.
type GormSequence struct {
	db *gorm.DB
}

// NewGormSequence creates a new GormSequence
func NewGormSequence(db *gorm.DB) *GormSequence {
	return &GormSequence{db: db}
}

// Next returns max(last+1, floor) and records it as the last id of c
func (s *GormSequence) Next(ctx context.Context, c shared.Collection, floor int64) (int64, error) {
	var next int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		seed := &models.DocumentSequenceModel{Collection: c.String(), Value: floor - 1, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
			return err
		}

		query := tx
		if IsPostgres(tx) {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var current models.DocumentSequenceModel
		if err := query.Where("collection = ?", c.String()).Take(&current).Error; err != nil {
			return err
		}

		next = current.Value + 1
		if next < floor {
			next = floor
		}
		return tx.Model(&models.DocumentSequenceModel{}).
			Where("collection = ?", c.String()).
			Updates(map[string]interface{}{"value": next, "updated_at": now}).Error
	})
	if err != nil {
		return 0, shared.NewStorageError("allocate id for", c, err)
	}
	return next, nil
}

var _ shared.Sequence = (*GormSequence)(nil)
