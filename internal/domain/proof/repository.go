package proof

import (
	"context"

	"github.com/google/uuid"
)

// ProofRepository defines persistence operations for proof-of-delivery photos.
type ProofRepository interface {
	Save(ctx context.Context, proof *Proof) error
	FindByID(ctx context.Context, id uuid.UUID) (*Proof, error)

	// FindByBookingID lists proofs for a booking without loading their payloads.
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*Proof, error)

	Delete(ctx context.Context, id uuid.UUID) error
}
