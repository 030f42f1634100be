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

// BookingService is the application service orchestrating dispatcher use cases.
type BookingService struct {
	repo     bookingDomain.BookingRepository
	vehicles fleetDomain.VehicleRepository
	ids      *bookingDomain.IdentifierGenerator
	sync     *ResourceSynchronizer
	events   eventPublisher
	metrics  MetricsRecorder
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	vehicles fleetDomain.VehicleRepository,
	ids *bookingDomain.IdentifierGenerator,
	sync *ResourceSynchronizer,
	publisher EventPublisher,
	topic string,
	metrics MetricsRecorder,
	loc *time.Location,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:     repo,
		vehicles: vehicles,
		ids:      ids,
		sync:     sync,
		events:   eventPublisher{publisher: orNopPublisher(publisher), topic: topic, logger: logger},
		metrics:  orNopRecorder(metrics),
		logger:   logger,
		loc:      loc,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateBooking creates a Pending booking. Schedule conflicts are reported but
// do not block creation.
func (s *BookingService) CreateBooking(ctx context.Context, createdBy uuid.UUID, req BookingRequest) (*CreateBookingResult, error) {
	details, err := toDetails(req, s.loc)
	if err != nil {
		return nil, err
	}
	// identifiers are never spent on a request that fails validation
	if err := details.Validate(); err != nil {
		return nil, err
	}
	details.Vehicle = s.resolveVehicle(ctx, details.Vehicle)

	report, err := s.checkConflicts(ctx, details.ScheduleQuery(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to check schedule conflicts: %w", err)
	}

	reservationID, err := s.ids.NextReservationID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate reservation ID: %w", err)
	}
	tripNumber, err := s.ids.NextTripNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate trip number: %w", err)
	}

	now := s.now()
	bk, err := bookingDomain.NewBooking(reservationID, tripNumber, details, createdBy, now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		return nil, err
	}
	s.metrics.BookingCreated()

	if report.HasConflicts() {
		s.metrics.ConflictDetected("create")
		s.logger.Warn("booking created with schedule conflicts",
			zap.String("reservation_id", reservationID),
			zap.Bool("vehicle_conflict", report.Vehicle),
			zap.Int("employee_conflicts", len(report.Employees)),
		)
	}

	if bk.NeedsActivation(now, s.loc) {
		s.activate(ctx, bk)
	}

	evt := bookingEvent(bk, now)
	evt.HasConflicts = report.HasConflicts()
	s.events.publish(ctx, events.BookingCreated, bk.ID().String(), evt)

	return &CreateBookingResult{
		Booking:      toBookingDTO(bk),
		Conflicts:    report,
		HasConflicts: report.HasConflicts(),
	}, nil
}

// UpdateBooking replaces the dispatcher-owned content of a booking. A schedule
// change that collides with another active booking is rejected.
func (s *BookingService) UpdateBooking(ctx context.Context, bookingID uuid.UUID, req BookingRequest) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := bk.EnsureEditable(); err != nil {
		return nil, err
	}

	details, err := toDetails(req, s.loc)
	if err != nil {
		return nil, err
	}
	details.Vehicle = s.resolveVehicle(ctx, details.Vehicle)

	if bk.ScheduleChanged(details, s.loc) {
		id := bk.ID()
		report, err := s.checkConflicts(ctx, details.ScheduleQuery(&id))
		if err != nil {
			return nil, err
		}
		if report.HasConflicts() {
			s.metrics.ConflictDetected("update")
			return nil, domain.NewScheduleConflictError(describeConflicts(report))
		}
	}

	previousVehicle := bk.Vehicle().VehicleID
	previousCrew := bk.EmployeeIDs()

	now := s.now()
	if err := bk.Edit(details, now); err != nil {
		return nil, err
	}
	deactivated := bk.NeedsDeactivation(now, s.loc)
	if deactivated {
		bk.Deactivate(now)
	}
	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	switch {
	case deactivated:
		s.sync.SyncVehicle(ctx, previousVehicle, fleetDomain.StatusAvailable)
		s.sync.SyncEmployees(ctx, previousCrew, fleetDomain.StatusAvailable)
		s.logger.Info("booking moved to a later day, resources released",
			zap.String("reservation_id", bk.ReservationID()),
			zap.Time("date_needed", bk.DateNeeded()),
		)
	case holdsResources(bk):
		s.moveResources(ctx, previousVehicle, previousCrew, bk)
	case bk.NeedsActivation(now, s.loc):
		s.activate(ctx, bk)
	}

	s.events.publish(ctx, events.BookingUpdated, bk.ID().String(), bookingEvent(bk, now))

	result := toBookingDTO(bk)
	return &result, nil
}

// UpdateStatus applies a dispatcher status change and syncs resources.
func (s *BookingService) UpdateStatus(ctx context.Context, actor, bookingID uuid.UUID, req UpdateStatusRequest) (*StatusUpdateResult, error) {
	target, err := bookingDomain.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	from := bk.Status()
	now := s.now()
	changed, err := bk.TransitionTo(target, actor, now, s.loc)
	if err != nil {
		return nil, err
	}
	if !changed {
		return toStatusResult(bk), nil
	}

	if err := s.applyStatusChange(ctx, bk, from, actor, now); err != nil {
		return nil, err
	}
	return toStatusResult(bk), nil
}

// ConfirmReady is the dispatcher's confirmation that a Pending booking is ready
// to leave. Only allowed on or after the scheduled day.
func (s *BookingService) ConfirmReady(ctx context.Context, actor, bookingID uuid.UUID) (*StatusUpdateResult, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	from := bk.Status()
	now := s.now()
	if err := bk.ConfirmReady(actor, now, s.loc); err != nil {
		return nil, err
	}

	if err := s.applyStatusChange(ctx, bk, from, actor, now); err != nil {
		return nil, err
	}
	return toStatusResult(bk), nil
}

// applyStatusChange persists a transition that already happened on bk, then
// syncs resources and emits the status event.
func (s *BookingService) applyStatusChange(ctx context.Context, bk *bookingDomain.Booking, from bookingDomain.Status, actor uuid.UUID, now time.Time) error {
	to := bk.Status()
	leaving := from == bookingDomain.StatusPending && to.IsOnTheRoad()
	if leaving && bk.ActivatedAt() == nil {
		bk.MarkActivated(now)
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return err
	}

	switch {
	case to.ReleasesResources():
		s.sync.SyncStatus(ctx, bk, fleetDomain.StatusAvailable)
	case leaving:
		s.sync.SyncStatus(ctx, bk, fleetDomain.StatusOnTrip)
	}

	s.metrics.StatusChanged(string(from), string(to))
	s.logger.Info("booking status changed",
		zap.String("reservation_id", bk.ReservationID()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	s.events.publish(ctx, events.BookingStatusChanged, bk.ID().String(), events.StatusChangedEvent{
		BookingID:     bk.ID(),
		ReservationID: bk.ReservationID(),
		TripNumber:    bk.TripNumber(),
		From:          string(from),
		To:            string(to),
		ChangedBy:     actor,
		OccurredAt:    now,
	})
	return nil
}

// ArchiveBooking soft-deletes a booking.
func (s *BookingService) ArchiveBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	return s.mutate(ctx, bookingID, events.BookingArchived, func(bk *bookingDomain.Booking, now time.Time) error {
		return bk.Archive(now)
	})
}

// RestoreBooking clears the archive flag.
func (s *BookingService) RestoreBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	return s.mutate(ctx, bookingID, events.BookingRestored, func(bk *bookingDomain.Booking, now time.Time) error {
		bk.Restore(now)
		return nil
	})
}

// DeleteBooking removes a booking permanently. Resources are not touched.
func (s *BookingService) DeleteBooking(ctx context.Context, bookingID uuid.UUID) error {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, bookingID); err != nil {
		return err
	}
	s.events.publish(ctx, events.BookingDeleted, bk.ID().String(), bookingEvent(bk, s.now()))
	return nil
}

// ReplaceVehicle swaps the booking's vehicle. While the booking holds its
// resources the old vehicle is released and the new one marked On Trip.
func (s *BookingService) ReplaceVehicle(ctx context.Context, bookingID uuid.UUID, req ReplaceVehicleRequest) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	replacement := s.resolveVehicle(ctx, bookingDomain.VehicleAssignment{
		VehicleID:   req.VehicleID,
		VehicleType: req.VehicleType,
		PlateNumber: req.PlateNumber,
	})
	now := s.now()
	previous, err := bk.ReplaceVehicle(replacement, req.Reason, now)
	if err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	if holdsResources(bk) {
		s.sync.SyncVehicle(ctx, previous.VehicleID, fleetDomain.StatusAvailable)
		s.sync.SyncVehicle(ctx, replacement.VehicleID, fleetDomain.StatusOnTrip)
	}

	s.logger.Info("vehicle replaced",
		zap.String("reservation_id", bk.ReservationID()),
		zap.String("previous_vehicle_id", previous.VehicleID.String()),
		zap.String("new_vehicle_id", replacement.VehicleID.String()),
	)
	s.events.publish(ctx, events.BookingVehicleReplaced, bk.ID().String(), events.VehicleReplacedEvent{
		BookingID:         bk.ID(),
		ReservationID:     bk.ReservationID(),
		PreviousVehicleID: previous.VehicleID,
		NewVehicleID:      replacement.VehicleID,
		Reason:            req.Reason,
		OccurredAt:        now,
	})

	result := toBookingDTO(bk)
	return &result, nil
}

// CheckScheduleConflicts reports which requested resources are already claimed
// on the given day.
func (s *BookingService) CheckScheduleConflicts(ctx context.Context, req ConflictCheckRequest) (*bookingDomain.ConflictReport, error) {
	date, err := parseDate(req.DateNeeded, s.loc)
	if err != nil {
		return nil, err
	}
	report, err := s.checkConflicts(ctx, bookingDomain.ScheduleQuery{
		DateNeeded:  date,
		VehicleID:   req.VehicleID,
		EmployeeIDs: req.EmployeeIDs,
		ExcludeID:   req.ExcludeID,
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// GetBooking retrieves a single booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// GetByReservationID retrieves a single booking by its RES identifier.
func (s *BookingService) GetByReservationID(ctx context.Context, reservationID string) (*BookingDTO, error) {
	bk, err := s.repo.FindByReservationID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// ListBookings lists active or archived bookings, optionally by status.
func (s *BookingService) ListBookings(ctx context.Context, archived bool, status string, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	filter := bookingDomain.ListFilter{Archived: archived, Page: page, Limit: limit}
	if status != "" {
		st, err := bookingDomain.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = &st
	}

	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// GetBookingStats returns booking counts by status.
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      counts,
	}, nil
}

// --- Helpers ---

func (s *BookingService) mutate(ctx context.Context, bookingID uuid.UUID, eventType string, apply func(*bookingDomain.Booking, time.Time) error) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := apply(bk, now); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.events.publish(ctx, eventType, bk.ID().String(), bookingEvent(bk, now))

	result := toBookingDTO(bk)
	return &result, nil
}

func (s *BookingService) checkConflicts(ctx context.Context, q bookingDomain.ScheduleQuery) (bookingDomain.ConflictReport, error) {
	start, end := bookingDomain.DayWindow(q.DateNeeded, s.loc)
	candidates, err := s.repo.FindActiveOnDay(ctx, start, end)
	if err != nil {
		return bookingDomain.ConflictReport{}, err
	}
	return bookingDomain.DetectConflicts(q, candidates, s.loc), nil
}

// activate syncs resources to On Trip for a booking due today and persists the
// activation stamp. Failures are logged; the booking operation has succeeded.
func (s *BookingService) activate(ctx context.Context, bk *bookingDomain.Booking) {
	s.sync.Activate(ctx, bk)
	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		s.logger.Warn("failed to persist booking activation",
			zap.String("reservation_id", bk.ReservationID()),
			zap.Error(err),
		)
	}
}

// moveResources re-points held resources after an edit changed vehicle or crew.
func (s *BookingService) moveResources(ctx context.Context, previousVehicle uuid.UUID, previousCrew []uuid.UUID, bk *bookingDomain.Booking) {
	if previousVehicle != bk.Vehicle().VehicleID {
		s.sync.SyncVehicle(ctx, previousVehicle, fleetDomain.StatusAvailable)
		s.sync.SyncVehicle(ctx, bk.Vehicle().VehicleID, fleetDomain.StatusOnTrip)
	}

	var released []uuid.UUID
	for _, id := range previousCrew {
		if !bk.IsAssigned(id) {
			released = append(released, id)
		}
	}
	s.sync.SyncEmployees(ctx, released, fleetDomain.StatusAvailable)
	s.sync.SyncEmployees(ctx, bk.EmployeeIDs(), fleetDomain.StatusOnTrip)
}

// resolveVehicle fills the display fields from the fleet registry when the
// request omits them.
func (s *BookingService) resolveVehicle(ctx context.Context, v bookingDomain.VehicleAssignment) bookingDomain.VehicleAssignment {
	if s.vehicles == nil || v.VehicleID == uuid.Nil || (v.VehicleType != "" && v.PlateNumber != "") {
		return v
	}
	vehicle, err := s.vehicles.FindByID(ctx, v.VehicleID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("failed to look up vehicle", zap.String("vehicle_id", v.VehicleID.String()), zap.Error(err))
		}
		return v
	}
	if v.VehicleType == "" {
		v.VehicleType = vehicle.VehicleType()
	}
	if v.PlateNumber == "" {
		v.PlateNumber = vehicle.PlateNumber()
	}
	return v
}

// holdsResources reports whether the booking currently keeps its vehicle and
// crew On Trip.
func holdsResources(bk *bookingDomain.Booking) bool {
	return bk.Status().IsOnTheRoad() ||
		(bk.Status() == bookingDomain.StatusPending && bk.ActivatedAt() != nil)
}

func describeConflicts(report bookingDomain.ConflictReport) []string {
	var details []string
	for _, c := range report.Bookings {
		if c.VehicleConflict {
			details = append(details, fmt.Sprintf("vehicle is already assigned to %s (%s)", c.ReservationID, c.Status))
		}
		for _, id := range c.Employees {
			details = append(details, fmt.Sprintf("employee %s is already assigned to %s (%s)", id, c.ReservationID, c.Status))
		}
	}
	return details
}
