package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRecordStore keeps each collection as one row of record_collections.
// It implements shared.TransactionalRecordStore.
type GormRecordStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormRecordStore creates a new GormRecordStore
func NewGormRecordStore(db *gorm.DB) *GormRecordStore {
	return &GormRecordStore{db: db, now: time.Now}
}

// Read returns the snapshot of c, or an empty one when the row does not exist
func (s *GormRecordStore) Read(ctx context.Context, c shared.Collection) (shared.Snapshot, error) {
	var model models.RecordCollectionModel
	err := s.db.WithContext(ctx).Where("collection = ?", c.String()).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.EmptySnapshot(c), nil
	}
	if err != nil {
		return shared.Snapshot{}, shared.NewStorageError("read", c, err)
	}
	return model.ToSnapshot(c), nil
}

// Write replaces the row of c
func (s *GormRecordStore) Write(ctx context.Context, c shared.Collection, snap shared.Snapshot) error {
	model := models.RecordCollectionModelFromSnapshot(c, snap, s.now().UTC())
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}},
		DoUpdates: clause.AssignmentColumns([]string{"records", "next_id", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return shared.NewStorageError("write", c, err)
	}
	return nil
}

// InTransaction runs fn against a store bound to one database transaction.
// On postgres the rows of the named collections are created if missing and
// locked with SELECT ... FOR UPDATE before fn runs.
func (s *GormRecordStore) InTransaction(ctx context.Context, collections []shared.Collection, fn func(ctx context.Context, tx shared.RecordStore) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if IsPostgres(tx) {
			if err := s.lockRows(tx, collections); err != nil {
				return err
			}
		}
		return fn(ctx, &GormRecordStore{db: tx, now: s.now})
	})
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return shared.NewStorageError("commit", joinCollections(collections), err)
}

func (s *GormRecordStore) lockRows(tx *gorm.DB, collections []shared.Collection) error {
	for _, c := range collections {
		seed := models.RecordCollectionModelFromSnapshot(c, shared.EmptySnapshot(c), s.now().UTC())
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
			return shared.NewStorageError("lock", c, err)
		}
		var locked models.RecordCollectionModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ?", c.String()).
			Take(&locked).Error
		if err != nil {
			return shared.NewStorageError("lock", c, err)
		}
	}
	return nil
}

func joinCollections(collections []shared.Collection) shared.Collection {
	names := make([]string, len(collections))
	for i, c := range collections {
		names[i] = c.String()
	}
	return shared.Collection(strings.Join(names, ","))
}

var _ shared.TransactionalRecordStore = (*GormRecordStore)(nil)
