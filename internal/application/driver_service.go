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
	proofDomain "github.com/haulwise/service-dispatch/internal/domain/proof"
	"github.com/haulwise/service-dispatch/internal/events"
	"github.com/haulwise/service-dispatch/pkg/domain"
)

// maxWriteAttempts bounds reload-and-reapply on optimistic lock conflicts.
const maxWriteAttempts = 3

// DeliverDestinationRequest carries the proof for one delivered stop.
type DeliverDestinationRequest struct {
	ProofImage string `json:"proofImage"`
	Notes      string `json:"notes"`
}

// CompleteTripRequest carries the final proof photo for the trip.
type CompleteTripRequest struct {
	ProofImage string `json:"proofImage" binding:"required"`
	Notes      string `json:"notes"`
}

// DriverStatusRequest is a driver's own status update.
type DriverStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// LocationRequest is a GPS fix from the driver app.
type LocationRequest struct {
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
	Accuracy  float64 `json:"accuracy" binding:"min=0"`
}

// VehicleChangeRequestBody is a driver's request for a different vehicle.
type VehicleChangeRequestBody struct {
	Reason string `json:"reason" binding:"required"`
}

// DeliveryResult is the booking after a stop was delivered.
type DeliveryResult struct {
	Booking          BookingDTO `json:"booking"`
	DestinationIndex int        `json:"destinationIndex"`
	AllDelivered     bool       `json:"allDelivered"`
	ProofID          *uuid.UUID `json:"proofId,omitempty"`
}

// DriverService orchestrates the use cases of drivers and helpers on a trip.
type DriverService struct {
	repo    bookingDomain.BookingRepository
	proofs  proofDomain.ProofRepository
	sync    *ResourceSynchronizer
	events  eventPublisher
	metrics MetricsRecorder
	logger  *zap.Logger
	now     func() time.Time
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	repo bookingDomain.BookingRepository,
	proofs proofDomain.ProofRepository,
	sync *ResourceSynchronizer,
	publisher EventPublisher,
	topic string,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *DriverService {
	return &DriverService{
		repo:    repo,
		proofs:  proofs,
		sync:    sync,
		events:  eventPublisher{publisher: orNopPublisher(publisher), topic: topic, logger: logger},
		metrics: orNopRecorder(metrics),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ListAssignedBookings lists the bookings the employee is part of.
func (s *DriverService) ListAssignedBookings(ctx context.Context, employeeID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByEmployee(ctx, employeeID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// GetAssignedBooking returns one booking the employee is assigned to.
func (s *DriverService) GetAssignedBooking(ctx context.Context, employeeID, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.loadAssigned(ctx, employeeID, bookingID)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// UpdateStatus lets the crew start the trip. Drivers may only move a booking
// to In Transit; every other transition is a dispatcher action.
func (s *DriverService) UpdateStatus(ctx context.Context, employeeID, bookingID uuid.UUID, req DriverStatusRequest) (*StatusUpdateResult, error) {
	target, err := bookingDomain.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	if target != bookingDomain.StatusInTransit {
		return nil, domain.NewForbiddenError(fmt.Sprintf("drivers can only set status %s", bookingDomain.StatusInTransit))
	}

	var from bookingDomain.Status
	bk, err := s.mutate(ctx, employeeID, bookingID, func(bk *bookingDomain.Booking, now time.Time) (bool, error) {
		from = bk.Status()
		changed, err := bk.TransitionTo(target, employeeID, now, s.sync.loc)
		if changed && bk.ActivatedAt() == nil {
			bk.MarkActivated(now)
		}
		return changed, err
	})
	if err != nil {
		return nil, err
	}
	if from == bk.Status() {
		return toStatusResult(bk), nil
	}

	if from == bookingDomain.StatusPending {
		s.sync.SyncStatus(ctx, bk, fleetDomain.StatusOnTrip)
	}
	s.statusChanged(ctx, bk, from, employeeID)
	return toStatusResult(bk), nil
}

// DeliverDestination marks one stop delivered. The proof photo, when given, is
// stored first and referenced from the stop. Delivering the last pending stop
// promotes the booking to Delivered and releases its resources.
func (s *DriverService) DeliverDestination(ctx context.Context, employeeID, bookingID uuid.UUID, index int, req DeliverDestinationRequest) (*DeliveryResult, error) {
	current, err := s.loadAssigned(ctx, employeeID, bookingID)
	if err != nil {
		return nil, err
	}
	// dry run on the loaded copy so a rejected delivery stores no proof
	if _, err := current.DeliverDestination(index, employeeID, "", req.Notes, s.now()); err != nil {
		return nil, err
	}

	var proofID *uuid.UUID
	if req.ProofImage != "" {
		idx := index
		p, err := s.storeProof(ctx, bookingID, &idx, proofDomain.KindDelivery, req.ProofImage, employeeID, req.Notes)
		if err != nil {
			return nil, err
		}
		id := p.ID()
		proofID = &id
	}

	var promoted bool
	bk, err := s.mutate(ctx, employeeID, bookingID, func(bk *bookingDomain.Booking, now time.Time) (bool, error) {
		var err error
		promoted, err = bk.DeliverDestination(index, employeeID, proofRef(proofID), req.Notes, now)
		return err == nil, err
	})
	if err != nil {
		if proofID != nil {
			s.discardProof(ctx, *proofID)
		}
		return nil, err
	}

	s.metrics.DestinationDelivered()
	s.logger.Info("destination delivered",
		zap.String("reservation_id", bk.ReservationID()),
		zap.Int("destination_index", index),
		zap.Int("remaining_stops", bk.PendingStops()),
	)
	s.events.publish(ctx, events.BookingDestinationDelivered, bk.ID().String(), events.DestinationDeliveredEvent{
		BookingID:        bk.ID(),
		ReservationID:    bk.ReservationID(),
		DestinationIndex: index,
		DeliveredBy:      employeeID,
		RemainingStops:   bk.PendingStops(),
		ProofID:          proofRef(proofID),
		OccurredAt:       bk.UpdatedAt(),
	})

	if promoted {
		s.sync.SyncStatus(ctx, bk, fleetDomain.StatusAvailable)
		s.statusChanged(ctx, bk, bookingDomain.StatusInTransit, employeeID)
	}

	return &DeliveryResult{
		Booking:          toBookingDTO(bk),
		DestinationIndex: index,
		AllDelivered:     bk.AllDelivered(),
		ProofID:          proofID,
	}, nil
}

// SetActiveDestination designates the stop the driver is heading to.
func (s *DriverService) SetActiveDestination(ctx context.Context, employeeID, bookingID uuid.UUID, index int) (*BookingDTO, error) {
	bk, err := s.mutate(ctx, employeeID, bookingID, func(bk *bookingDomain.Booking, now time.Time) (bool, error) {
		return true, bk.SetActiveDestination(index, now)
	})
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// CompleteTrip finishes the trip with a final proof photo.
func (s *DriverService) CompleteTrip(ctx context.Context, employeeID, bookingID uuid.UUID, req CompleteTripRequest) (*StatusUpdateResult, error) {
	if req.ProofImage == "" {
		return nil, domain.NewValidationError("proofImage is required to complete a trip")
	}
	current, err := s.loadAssigned(ctx, employeeID, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status() == bookingDomain.StatusCompleted {
		return toStatusResult(current), nil
	}
	// dry run on the loaded copy so a rejected completion stores no proof
	if _, err := current.CompleteTrip(employeeID, "", req.Notes, s.now()); err != nil {
		return nil, err
	}

	p, err := s.storeProof(ctx, bookingID, nil, proofDomain.KindCompletion, req.ProofImage, employeeID, req.Notes)
	if err != nil {
		return nil, err
	}

	var from bookingDomain.Status
	bk, err := s.mutate(ctx, employeeID, bookingID, func(bk *bookingDomain.Booking, now time.Time) (bool, error) {
		from = bk.Status()
		return bk.CompleteTrip(employeeID, p.ID().String(), req.Notes, now)
	})
	if err != nil {
		s.discardProof(ctx, p.ID())
		return nil, err
	}
	if from == bk.Status() {
		// completed concurrently; the stored trip references the other proof
		s.discardProof(ctx, p.ID())
		return toStatusResult(bk), nil
	}

	if !from.ReleasesResources() {
		s.sync.SyncStatus(ctx, bk, fleetDomain.StatusAvailable)
	}
	s.statusChanged(ctx, bk, from, employeeID)
	return toStatusResult(bk), nil
}

// RequestVehicleChange records the crew's request for another vehicle.
func (s *DriverService) RequestVehicleChange(ctx context.Context, employeeID, bookingID uuid.UUID, req VehicleChangeRequestBody) (*BookingDTO, error) {
	bk, err := s.mutate(ctx, employeeID, bookingID, func(bk *bookingDomain.Booking, now time.Time) (bool, error) {
		return true, bk.RequestVehicleChange(employeeID, req.Reason, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("vehicle change requested",
		zap.String("reservation_id", bk.ReservationID()),
		zap.String("requested_by", employeeID.String()),
	)
	s.events.publish(ctx, events.BookingVehicleChangeRequested, bk.ID().String(), events.VehicleChangeRequestedEvent{
		BookingID:     bk.ID(),
		ReservationID: bk.ReservationID(),
		RequestedBy:   employeeID,
		Reason:        req.Reason,
		OccurredAt:    bk.UpdatedAt(),
	})

	result := toBookingDTO(bk)
	return &result, nil
}

// UpdateLocation stores the driver's GPS fix reported over HTTP.
func (s *DriverService) UpdateLocation(ctx context.Context, driverID, bookingID uuid.UUID, req LocationRequest) (*BookingDTO, error) {
	bk, err := s.updateLocation(ctx, driverID, bookingID, req.Latitude, req.Longitude, req.Accuracy)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// ReportLocation stores a GPS fix received from the telemetry stream.
func (s *DriverService) ReportLocation(ctx context.Context, driverID, bookingID uuid.UUID, latitude, longitude, accuracy float64) error {
	_, err := s.updateLocation(ctx, driverID, bookingID, latitude, longitude, accuracy)
	return err
}

func (s *DriverService) updateLocation(ctx context.Context, driverID, bookingID uuid.UUID, latitude, longitude, accuracy float64) (*bookingDomain.Booking, error) {
	return s.mutate(ctx, driverID, bookingID, func(bk *bookingDomain.Booking, now time.Time) (bool, error) {
		return true, bk.UpdateDriverLocation(driverID, latitude, longitude, accuracy, now)
	})
}

// --- Helpers ---

// mutate loads the booking, checks the employee is assigned, applies fn and
// writes the result. A version conflict reloads and re-applies fn, so
// concurrent writers touching different parts of the booking both succeed.
// When fn reports no change nothing is written.
func (s *DriverService) mutate(ctx context.Context, employeeID, bookingID uuid.UUID, fn func(*bookingDomain.Booking, time.Time) (bool, error)) (*bookingDomain.Booking, error) {
	var lastErr error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		bk, err := s.loadAssigned(ctx, employeeID, bookingID)
		if err != nil {
			return nil, err
		}

		changed, err := fn(bk, s.now())
		if err != nil {
			return nil, err
		}
		if !changed {
			return bk, nil
		}

		bk.IncrementVersion()
		err = s.repo.Update(ctx, bk)
		if err == nil {
			return bk, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}

		lastErr = err
		s.logger.Debug("booking modified concurrently, retrying",
			zap.String("booking_id", bookingID.String()),
			zap.Int("attempt", attempt),
		)
	}
	return nil, lastErr
}

func (s *DriverService) loadAssigned(ctx context.Context, employeeID, bookingID uuid.UUID) (*bookingDomain.Booking, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.IsAssigned(employeeID) {
		return nil, domain.NewForbiddenError("you are not assigned to this booking")
	}
	return bk, nil
}

func (s *DriverService) storeProof(ctx context.Context, bookingID uuid.UUID, index *int, kind proofDomain.Kind, payload string, uploadedBy uuid.UUID, notes string) (*proofDomain.Proof, error) {
	p, err := proofDomain.NewProof(bookingID, index, kind, payload, uploadedBy, notes)
	if err != nil {
		return nil, err
	}
	if err := s.proofs.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to store proof: %w", err)
	}
	return p, nil
}

// discardProof removes a proof whose booking write failed, so no proof is left
// without a stop or trip pointing to it.
func (s *DriverService) discardProof(ctx context.Context, id uuid.UUID) {
	if err := s.proofs.Delete(ctx, id); err != nil {
		s.logger.Warn("failed to discard unreferenced proof",
			zap.String("proof_id", id.String()),
			zap.Error(err),
		)
	}
}

func (s *DriverService) statusChanged(ctx context.Context, bk *bookingDomain.Booking, from bookingDomain.Status, actor uuid.UUID) {
	s.metrics.StatusChanged(string(from), string(bk.Status()))
	s.logger.Info("booking status changed",
		zap.String("reservation_id", bk.ReservationID()),
		zap.String("from", string(from)),
		zap.String("to", string(bk.Status())),
	)
	s.events.publish(ctx, events.BookingStatusChanged, bk.ID().String(), events.StatusChangedEvent{
		BookingID:     bk.ID(),
		ReservationID: bk.ReservationID(),
		TripNumber:    bk.TripNumber(),
		From:          string(from),
		To:            string(bk.Status()),
		ChangedBy:     actor,
		OccurredAt:    bk.UpdatedAt(),
	})
}

func proofRef(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
