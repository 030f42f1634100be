package booking

import (
	"context"
	"fmt"
)

// Sequence names and identifier prefixes.
const (
	SequenceReservation = "reservation"
	SequenceTrip        = "trip"

	ReservationPrefix = "RES"
	TripPrefix        = "TRP"
)

// SequenceStore is a persistent named counter. Increment must be a single
// atomic find-and-increment that creates the counter at 1 when absent.
type SequenceStore interface {
	Increment(ctx context.Context, name string) (int64, error)
	Set(ctx context.Context, name string, value int64) error
}

// IdentifierGenerator issues reservation IDs and trip numbers.
type IdentifierGenerator struct {
	store SequenceStore
}

// NewIdentifierGenerator creates a generator over store.
func NewIdentifierGenerator(store SequenceStore) *IdentifierGenerator {
	return &IdentifierGenerator{store: store}
}

// NextReservationID returns the next RES identifier.
func (g *IdentifierGenerator) NextReservationID(ctx context.Context) (string, error) {
	return g.next(ctx, SequenceReservation, ReservationPrefix)
}

// NextTripNumber returns the next TRP identifier.
func (g *IdentifierGenerator) NextTripNumber(ctx context.Context) (string, error) {
	return g.next(ctx, SequenceTrip, TripPrefix)
}

func (g *IdentifierGenerator) next(ctx context.Context, name, prefix string) (string, error) {
	seq, err := g.store.Increment(ctx, name)
	if err != nil {
		return "", fmt.Errorf("increment %s sequence: %w", name, err)
	}
	if seq <= 0 {
		// a store returning a non-positive value is reset to the first sequence
		if err := g.store.Set(ctx, name, 1); err != nil {
			return "", fmt.Errorf("reset %s sequence: %w", name, err)
		}
		seq = 1
	}
	return FormatIdentifier(prefix, seq), nil
}

// FormatIdentifier renders prefix plus a zero-padded six digit sequence.
// Sequences beyond 999999 widen rather than wrap.
func FormatIdentifier(prefix string, seq int64) string {
	return fmt.Sprintf("%s%06d", prefix, seq)
}
