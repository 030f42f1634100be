package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows a booking listing.
type ListFilter struct {
	Archived bool
	Status   *Status
	Page     int
	Limit    int
}

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByReservationID retrieves a booking by its RES identifier.
	FindByReservationID(ctx context.Context, reservationID string) (*Booking, error)

	// List retrieves active or archived bookings with pagination.
	List(ctx context.Context, filter ListFilter) ([]*Booking, int64, error)

	// FindByEmployee retrieves non-archived bookings whose crew includes employeeID.
	FindByEmployee(ctx context.Context, employeeID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// FindActiveOnDay retrieves non-archived bookings holding resources within [start, end).
	FindActiveOnDay(ctx context.Context, start, end time.Time) ([]*Booking, error)

	// FindDueForActivation retrieves Pending, non-archived, never-activated bookings
	// with dateNeeded before the given instant.
	FindDueForActivation(ctx context.Context, before time.Time) ([]*Booking, error)

	// CountByStatus returns booking counts grouped by status.
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error

	// Delete removes a booking permanently.
	Delete(ctx context.Context, id uuid.UUID) error
}
