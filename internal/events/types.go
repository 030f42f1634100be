package events

import (
	"time"

	"github.com/google/uuid"
)

// Default topics. Both can be overridden through configuration.
const (
	TopicBookingEvents   = "dispatch.booking-events"
	TopicDriverLocations = "telemetry.driver-locations"
)

// Event source recorded in every CloudEvent this service emits.
const Source = "service-dispatch"

// Booking event types.
const (
	BookingCreated                = "dispatch.booking.created"
	BookingUpdated                = "dispatch.booking.updated"
	BookingStatusChanged          = "dispatch.booking.status_changed"
	BookingDestinationDelivered   = "dispatch.booking.destination_delivered"
	BookingActivated              = "dispatch.booking.activated"
	BookingArchived               = "dispatch.booking.archived"
	BookingRestored               = "dispatch.booking.restored"
	BookingDeleted                = "dispatch.booking.deleted"
	BookingVehicleReplaced        = "dispatch.booking.vehicle_replaced"
	BookingVehicleChangeRequested = "dispatch.booking.vehicle_change_requested"
)

// Telemetry event types consumed by the service.
const (
	DriverLocationReported = "driver.location_reported"
)

// BookingEvent is the payload for lifecycle events that carry no extra data.
type BookingEvent struct {
	BookingID     uuid.UUID   `json:"booking_id"`
	ReservationID string      `json:"reservation_id"`
	TripNumber    string      `json:"trip_number"`
	Status        string      `json:"status"`
	VehicleID     uuid.UUID   `json:"vehicle_id"`
	EmployeeIDs   []uuid.UUID `json:"employee_ids"`
	DateNeeded    time.Time   `json:"date_needed"`
	HasConflicts  bool        `json:"has_conflicts,omitempty"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

// StatusChangedEvent is published on every effective status transition.
type StatusChangedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	ReservationID string    `json:"reservation_id"`
	TripNumber    string    `json:"trip_number"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	ChangedBy     uuid.UUID `json:"changed_by"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// DestinationDeliveredEvent is published when a single stop is delivered.
type DestinationDeliveredEvent struct {
	BookingID        uuid.UUID `json:"booking_id"`
	ReservationID    string    `json:"reservation_id"`
	DestinationIndex int       `json:"destination_index"`
	DeliveredBy      uuid.UUID `json:"delivered_by"`
	RemainingStops   int       `json:"remaining_stops"`
	ProofID          string    `json:"proof_id,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// VehicleReplacedEvent is published when a dispatcher swaps the vehicle.
type VehicleReplacedEvent struct {
	BookingID         uuid.UUID `json:"booking_id"`
	ReservationID     string    `json:"reservation_id"`
	PreviousVehicleID uuid.UUID `json:"previous_vehicle_id"`
	NewVehicleID      uuid.UUID `json:"new_vehicle_id"`
	Reason            string    `json:"reason"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// VehicleChangeRequestedEvent is published when a driver asks for another vehicle.
type VehicleChangeRequestedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	ReservationID string    `json:"reservation_id"`
	RequestedBy   uuid.UUID `json:"requested_by"`
	Reason        string    `json:"reason"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// DriverLocationReportedEvent is a GPS fix sent by the driver app through telemetry.
type DriverLocationReportedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	DriverID   uuid.UUID `json:"driver_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	ReportedAt time.Time `json:"reported_at"`
}
