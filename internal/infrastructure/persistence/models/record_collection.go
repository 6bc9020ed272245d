package models

import (
	"encoding/json"
	"time"

	"github.com/erp/portal/internal/domain/shared"
)

// RecordCollectionModel is one row per collection holding its whole JSON array
type RecordCollectionModel struct {
	Collection string    `gorm:"type:varchar(64);primaryKey"`
	Records    string    `gorm:"type:text;not null"`
	NextID     int64     `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RecordCollectionModel) TableName() string {
	return "record_collections"
}

// ToSnapshot converts the row to a snapshot of collection c
func (m *RecordCollectionModel) ToSnapshot(c shared.Collection) shared.Snapshot {
	return shared.Snapshot{
		Records: json.RawMessage(m.Records),
		NextID:  m.NextID,
	}.Normalize(c)
}

// RecordCollectionModelFromSnapshot builds the row persisted for a snapshot
func RecordCollectionModelFromSnapshot(c shared.Collection, s shared.Snapshot, now time.Time) *RecordCollectionModel {
	s = s.Normalize(c)
	return &RecordCollectionModel{
		Collection: c.String(),
		Records:    string(s.Records),
		NextID:     s.NextID,
		UpdatedAt:  now,
	}
}

// DocumentSequenceModel is the last id handed out for a collection
type DocumentSequenceModel struct {
	Collection string    `gorm:"type:varchar(64);primaryKey"`
	Value      int64     `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentSequenceModel) TableName() string {
	return "document_sequences"
}
