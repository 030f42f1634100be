package proof

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haulwise/service-dispatch/pkg/domain"
)

// MaxSize is the largest accepted decoded proof payload.
const MaxSize = 10 << 20

// Kind distinguishes per-stop proofs from the final trip proof.
type Kind string

const (
	KindDelivery   Kind = "delivery"
	KindCompletion Kind = "completion"
)

// IsValid returns true if the proof kind is recognized.
func (k Kind) IsValid() bool {
	return k == KindDelivery || k == KindCompletion
}

// Proof is an uploaded proof-of-delivery photo attached to a booking.
type Proof struct {
	id               uuid.UUID
	bookingID        uuid.UUID
	destinationIndex *int
	kind             Kind
	contentType      string
	data             []byte
	size             int
	uploadedBy       uuid.UUID
	notes            string
	createdAt        time.Time
}

// NewProof decodes a base64 payload, optionally wrapped in a data URI, and
// enforces MaxSize.
func NewProof(bookingID uuid.UUID, destinationIndex *int, kind Kind, payload string, uploadedBy uuid.UUID, notes string) (*Proof, error) {
	if !kind.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid proof kind: %s", kind))
	}
	data, err := Decode(payload)
	if err != nil {
		return nil, err
	}

	return &Proof{
		id:               uuid.New(),
		bookingID:        bookingID,
		destinationIndex: destinationIndex,
		kind:             kind,
		contentType:      http.DetectContentType(data),
		data:             data,
		size:             len(data),
		uploadedBy:       uploadedBy,
		notes:            notes,
		createdAt:        time.Now().UTC(),
	}, nil
}

// Decode turns a base64 string or data URI into bytes.
func Decode(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, domain.NewValidationError("proof of delivery is required")
	}
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, domain.NewValidationError("proof of delivery is not a valid data URI")
		}
		payload = payload[comma+1:]
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxSize+2 {
		return nil, domain.NewValidationError("proof of delivery exceeds 10 MiB")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, domain.NewValidationError("proof of delivery is not valid base64")
	}
	if len(data) == 0 {
		return nil, domain.NewValidationError("proof of delivery is empty")
	}
	if len(data) > MaxSize {
		return nil, domain.NewValidationError("proof of delivery exceeds 10 MiB")
	}
	return data, nil
}

// Reconstruct rebuilds a Proof from persistence.
func Reconstruct(id, bookingID uuid.UUID, destinationIndex *int, kind Kind, contentType string, data []byte, size int, uploadedBy uuid.UUID, notes string, createdAt time.Time) *Proof {
	return &Proof{
		id:               id,
		bookingID:        bookingID,
		destinationIndex: destinationIndex,
		kind:             kind,
		contentType:      contentType,
		data:             data,
		size:             size,
		uploadedBy:       uploadedBy,
		notes:            notes,
		createdAt:        createdAt,
	}
}

// Getters.
func (p *Proof) ID() uuid.UUID          { return p.id }
func (p *Proof) BookingID() uuid.UUID   { return p.bookingID }
func (p *Proof) DestinationIndex() *int { return p.destinationIndex }
func (p *Proof) Kind() Kind             { return p.kind }
func (p *Proof) ContentType() string    { return p.contentType }
func (p *Proof) Data() []byte           { return p.data }
func (p *Proof) Size() int              { return p.size }
func (p *Proof) UploadedBy() uuid.UUID  { return p.uploadedBy }
func (p *Proof) Notes() string          { return p.notes }
func (p *Proof) CreatedAt() time.Time   { return p.createdAt }
