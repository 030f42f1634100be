package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// CounterModel is the GORM model for the counters table.
type CounterModel struct {
	Name      string    `gorm:"primaryKey;size:50"`
	Seq       int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (CounterModel) TableName() string {
	return "counters"
}

// GormCounterRepository is a Postgres-backed booking.SequenceStore.
type GormCounterRepository struct {
	db *gorm.DB
}

// NewGormCounterRepository creates a new GormCounterRepository.
func NewGormCounterRepository(db *gorm.DB) *GormCounterRepository {
	return &GormCounterRepository{db: db}
}

// Increment atomically bumps the named counter, creating it at 1 if absent.
func (r *GormCounterRepository) Increment(ctx context.Context, name string) (int64, error) {
	var seq int64
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO counters (name, seq, updated_at) VALUES (?, 1, NOW())
		 ON CONFLICT (name) DO UPDATE SET seq = counters.seq + 1, updated_at = NOW()
		 RETURNING seq`, name).
		Scan(&seq).Error
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", name, err)
	}
	return seq, nil
}

// Set overwrites the named counter.
func (r *GormCounterRepository) Set(ctx context.Context, name string, value int64) error {
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO counters (name, seq, updated_at) VALUES (?, ?, NOW())
		 ON CONFLICT (name) DO UPDATE SET seq = EXCLUDED.seq, updated_at = NOW()`, name, value).Error
	if err != nil {
		return fmt.Errorf("failed to set counter %s: %w", name, err)
	}
	return nil
}
