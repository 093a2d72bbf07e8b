package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recordpipeline/internal/ports"
)

// processedRecord is the gorm model of the processed_records table.
type processedRecord struct {
	ID           string `gorm:"column:id;primaryKey"`
	Name         string `gorm:"column:name"`
	Timestamp    string `gorm:"column:timestamp"`
	ProcessedAt  string `gorm:"column:processed_at"`
	SourceBucket string `gorm:"column:source_bucket"`
	ObjectKey    string `gorm:"column:object_key"`
}

func (processedRecord) TableName() string {
	return "processed_records"
}

// GormCatalog implements ports.Catalog on postgres.
type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

var _ ports.Catalog = (*GormCatalog)(nil)

// Upsert inserts the row or overwrites every column of the existing row with
// the same id. Every column comes from the entry, so the same entry always
// leaves the same row.
func (c *GormCatalog) Upsert(ctx context.Context, entry ports.CatalogEntry) error {
	row := processedRecord{
		ID:           entry.ID,
		Name:         entry.Name,
		Timestamp:    entry.Timestamp,
		ProcessedAt:  entry.ProcessedAt,
		SourceBucket: entry.SourceBucket,
		ObjectKey:    entry.ObjectKey,
	}

	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert catalog entry %s: %w", entry.ID, err)
	}
	return nil
}

func (c *GormCatalog) Get(ctx context.Context, id string) (*ports.CatalogEntry, error) {
	var row processedRecord
	err := c.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrCatalogEntryNotFound
		}
		return nil, fmt.Errorf("failed to load catalog entry %s: %w", id, err)
	}

	return &ports.CatalogEntry{
		ID:           row.ID,
		Name:         row.Name,
		Timestamp:    row.Timestamp,
		ProcessedAt:  row.ProcessedAt,
		SourceBucket: row.SourceBucket,
		ObjectKey:    row.ObjectKey,
	}, nil
}
