package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	proofDomain "github.com/haulwise/service-dispatch/internal/domain/proof"
)

// ProofDTO is the metadata of a stored proof photo.
type ProofDTO struct {
	ID               uuid.UUID `json:"id"`
	BookingID        uuid.UUID `json:"bookingId"`
	DestinationIndex *int      `json:"destinationIndex,omitempty"`
	Kind             string    `json:"kind"`
	ContentType      string    `json:"contentType"`
	Size             int       `json:"size"`
	UploadedBy       uuid.UUID `json:"uploadedBy"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// ProofService serves stored proof-of-delivery photos.
type ProofService struct {
	repo   proofDomain.ProofRepository
	logger *zap.Logger
}

// NewProofService creates a new ProofService.
func NewProofService(repo proofDomain.ProofRepository, logger *zap.Logger) *ProofService {
	return &ProofService{repo: repo, logger: logger}
}

// ListProofs returns the metadata of every proof attached to a booking.
func (s *ProofService) ListProofs(ctx context.Context, bookingID uuid.UUID) ([]ProofDTO, error) {
	proofs, err := s.repo.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	dtos := make([]ProofDTO, len(proofs))
	for i, p := range proofs {
		dtos[i] = toProofDTO(p)
	}
	return dtos, nil
}

// GetProof returns a proof including its binary content.
func (s *ProofService) GetProof(ctx context.Context, proofID uuid.UUID) (*proofDomain.Proof, error) {
	return s.repo.FindByID(ctx, proofID)
}

func toProofDTO(p *proofDomain.Proof) ProofDTO {
	return ProofDTO{
		ID:               p.ID(),
		BookingID:        p.BookingID(),
		DestinationIndex: p.DestinationIndex(),
		Kind:             string(p.Kind()),
		ContentType:      p.ContentType(),
		Size:             p.Size(),
		UploadedBy:       p.UploadedBy(),
		Notes:            p.Notes(),
		CreatedAt:        p.CreatedAt(),
	}
}
