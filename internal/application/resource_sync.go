package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/haulwise/service-dispatch/internal/domain/booking"
	fleetDomain "github.com/haulwise/service-dispatch/internal/domain/fleet"
	"github.com/haulwise/service-dispatch/internal/events"
	"github.com/haulwise/service-dispatch/pkg/domain"
)

// ResourceSynchronizer propagates booking activity onto vehicle and employee
// status. Sync failures are logged and never fail the booking operation.
type ResourceSynchronizer struct {
	bookings  bookingDomain.BookingRepository
	vehicles  fleetDomain.VehicleRepository
	employees fleetDomain.EmployeeRepository
	events    eventPublisher
	metrics   MetricsRecorder
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewResourceSynchronizer creates a new ResourceSynchronizer.
func NewResourceSynchronizer(
	bookings bookingDomain.BookingRepository,
	vehicles fleetDomain.VehicleRepository,
	employees fleetDomain.EmployeeRepository,
	publisher EventPublisher,
	topic string,
	metrics MetricsRecorder,
	loc *time.Location,
	logger *zap.Logger,
) *ResourceSynchronizer {
	return &ResourceSynchronizer{
		bookings:  bookings,
		vehicles:  vehicles,
		employees: employees,
		events:    eventPublisher{publisher: orNopPublisher(publisher), topic: topic, logger: logger},
		metrics:   orNopRecorder(metrics),
		logger:    logger,
		loc:       loc,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SyncStatus sets the booking's vehicle and whole crew to status.
func (s *ResourceSynchronizer) SyncStatus(ctx context.Context, bk *bookingDomain.Booking, status fleetDomain.ResourceStatus) {
	s.SyncVehicle(ctx, bk.Vehicle().VehicleID, status)
	s.SyncEmployees(ctx, bk.EmployeeIDs(), status)
	s.metrics.ResourcesSynced(string(status))

	s.logger.Info("resources synchronized",
		zap.String("reservation_id", bk.ReservationID()),
		zap.String("status", string(status)),
	)
}

// SyncVehicle sets one vehicle's status. A vehicle missing from the registry is
// reported and skipped.
func (s *ResourceSynchronizer) SyncVehicle(ctx context.Context, vehicleID uuid.UUID, status fleetDomain.ResourceStatus) {
	if vehicleID == uuid.Nil {
		return
	}
	found, err := s.vehicles.UpdateStatus(ctx, vehicleID, status)
	if err != nil {
		s.logger.Error("failed to sync vehicle status",
			zap.String("vehicle_id", vehicleID.String()),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return
	}
	if !found {
		s.logger.Warn("vehicle not found during status sync",
			zap.String("vehicle_id", vehicleID.String()),
		)
	}
}

// SyncEmployees sets the status of every employee in ids that exists.
func (s *ResourceSynchronizer) SyncEmployees(ctx context.Context, ids []uuid.UUID, status fleetDomain.ResourceStatus) {
	if len(ids) == 0 {
		return
	}
	matched, err := s.employees.UpdateStatus(ctx, ids, status)
	if err != nil {
		s.logger.Error("failed to sync employee status",
			zap.Int("employees", len(ids)),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return
	}
	if matched < int64(len(ids)) {
		s.logger.Warn("some employees not found during status sync",
			zap.Int("requested", len(ids)),
			zap.Int64("matched", matched),
		)
	}
}

// Activate marks the booking's resources On Trip and stamps the activation.
// The booking itself stays Pending; confirming readiness is a dispatcher action.
// The caller persists the booking.
func (s *ResourceSynchronizer) Activate(ctx context.Context, bk *bookingDomain.Booking) {
	s.SyncStatus(ctx, bk, fleetDomain.StatusOnTrip)
	bk.MarkActivated(s.now())
}

// ProcessScheduledBookings activates every Pending booking scheduled for today
// or earlier that has not been activated yet. It returns how many were activated.
func (s *ResourceSynchronizer) ProcessScheduledBookings(ctx context.Context) (int, error) {
	now := s.now()
	_, endOfToday := bookingDomain.DayWindow(now, s.loc)

	due, err := s.bookings.FindDueForActivation(ctx, endOfToday)
	if err != nil {
		return 0, fmt.Errorf("failed to load bookings due for activation: %w", err)
	}

	activated := 0
	for _, bk := range due {
		if ctx.Err() != nil {
			return activated, ctx.Err()
		}
		if !bk.NeedsActivation(now, s.loc) {
			continue
		}

		s.Activate(ctx, bk)
		bk.IncrementVersion()
		if err := s.bookings.Update(ctx, bk); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				s.logger.Warn("booking changed during scheduled activation, skipping",
					zap.String("reservation_id", bk.ReservationID()),
				)
				continue
			}
			s.logger.Error("failed to persist scheduled activation",
				zap.String("reservation_id", bk.ReservationID()),
				zap.Error(err),
			)
			continue
		}

		activated++
		s.events.publish(ctx, events.BookingActivated, bk.ID().String(), bookingEvent(bk, now))
	}

	s.metrics.BookingsActivated(activated)
	s.logger.Info("scheduled booking sweep finished",
		zap.Int("due", len(due)),
		zap.Int("activated", activated),
	)
	return activated, nil
}

func bookingEvent(bk *bookingDomain.Booking, at time.Time) events.BookingEvent {
	return events.BookingEvent{
		BookingID:     bk.ID(),
		ReservationID: bk.ReservationID(),
		TripNumber:    bk.TripNumber(),
		Status:        string(bk.Status()),
		VehicleID:     bk.Vehicle().VehicleID,
		EmployeeIDs:   bk.EmployeeIDs(),
		DateNeeded:    bk.DateNeeded(),
		OccurredAt:    at,
	}
}
