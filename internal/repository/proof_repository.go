package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	proofDomain "github.com/haulwise/service-dispatch/internal/domain/proof"
	"github.com/haulwise/service-dispatch/pkg/domain"
)

// ProofModel is the GORM model for the delivery_proofs table.
type ProofModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingID        uuid.UUID `gorm:"type:uuid;not null;index"`
	DestinationIndex *int      `gorm:""`
	Kind             string    `gorm:"type:varchar(20);not null"`
	ContentType      string    `gorm:"type:varchar(100);not null"`
	Data             []byte    `gorm:"type:bytea"`
	SizeBytes        int       `gorm:"not null"`
	UploadedBy       uuid.UUID `gorm:"type:uuid;not null"`
	Notes            string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (ProofModel) TableName() string { return "delivery_proofs" }

// GormProofRepository implements ProofRepository using GORM.
type GormProofRepository struct {
	db *gorm.DB
}

// NewGormProofRepository creates a new GormProofRepository.
func NewGormProofRepository(db *gorm.DB) *GormProofRepository {
	return &GormProofRepository{db: db}
}

// Save persists a new proof.
func (r *GormProofRepository) Save(ctx context.Context, p *proofDomain.Proof) error {
	model := toProofModel(p)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to save proof: %w", err)
	}
	return nil
}

// FindByBookingID returns proof metadata for a booking, oldest first.
func (r *GormProofRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*proofDomain.Proof, error) {
	var models []ProofModel
	if err := r.db.WithContext(ctx).
		Omit("data").
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list proofs: %w", err)
	}

	proofs := make([]*proofDomain.Proof, len(models))
	for i := range models {
		proofs[i] = toProofDomain(&models[i])
	}
	return proofs, nil
}

// FindByID returns a single proof including its payload.
func (r *GormProofRepository) FindByID(ctx context.Context, id uuid.UUID) (*proofDomain.Proof, error) {
	var model ProofModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Proof", id.String())
		}
		return nil, fmt.Errorf("failed to find proof: %w", err)
	}
	return toProofDomain(&model), nil
}

// Delete removes a proof. Deleting a missing proof is not an error.
func (r *GormProofRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ProofModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete proof: %w", err)
	}
	return nil
}

func toProofModel(p *proofDomain.Proof) ProofModel {
	return ProofModel{
		ID:               p.ID(),
		BookingID:        p.BookingID(),
		DestinationIndex: p.DestinationIndex(),
		Kind:             string(p.Kind()),
		ContentType:      p.ContentType(),
		Data:             p.Data(),
		SizeBytes:        p.Size(),
		UploadedBy:       p.UploadedBy(),
		Notes:            p.Notes(),
		CreatedAt:        p.CreatedAt(),
	}
}

func toProofDomain(m *ProofModel) *proofDomain.Proof {
	return proofDomain.Reconstruct(
		m.ID,
		m.BookingID,
		m.DestinationIndex,
		proofDomain.Kind(m.Kind),
		m.ContentType,
		m.Data,
		m.SizeBytes,
		m.UploadedBy,
		m.Notes,
		m.CreatedAt,
	)
}
