package booking

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is the full persisted state of a booking. Repositories convert
// between their storage models and Snapshot; nothing else should build one.
type Snapshot struct {
	ID                   uuid.UUID
	ReservationID        string
	TripNumber           string
	CompanyName          string
	OriginAddress        string
	Stops                []DeliveryStop
	NextStopIndex        int
	ActiveDestination    *int
	Vehicle              VehicleAssignment
	VehicleHistory       []VehicleHistoryRecord
	VehicleChangeRequest *VehicleChangeRequest
	DateNeeded           time.Time
	TimeNeeded           string
	Crew                 []CrewMember
	Status               Status
	IsArchived           bool
	DriverLocation       *DriverLocation
	DeliveryFee          float64
	TotalDistance        float64
	ActivatedAt          *time.Time
	CompletedAt          *time.Time
	CompletionProof      string
	CompletionNotes      string
	CreatedBy            uuid.UUID
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ReconstructBooking rebuilds a booking from persisted state without validation.
func ReconstructBooking(s Snapshot) *Booking {
	next := s.NextStopIndex
	for _, stop := range s.Stops {
		if stop.DestinationIndex >= next {
			next = stop.DestinationIndex + 1
		}
	}
	return &Booking{
		id:              s.ID,
		reservationID:   s.ReservationID,
		tripNumber:      s.TripNumber,
		companyName:     s.CompanyName,
		originAddress:   s.OriginAddress,
		stops:           s.Stops,
		nextStopIndex:   next,
		activeIndex:     s.ActiveDestination,
		vehicle:         s.Vehicle,
		vehicleHistory:  s.VehicleHistory,
		changeRequest:   s.VehicleChangeRequest,
		dateNeeded:      s.DateNeeded,
		timeNeeded:      s.TimeNeeded,
		crew:            s.Crew,
		status:          s.Status,
		isArchived:      s.IsArchived,
		driverLocation:  s.DriverLocation,
		deliveryFee:     s.DeliveryFee,
		totalDistance:   s.TotalDistance,
		activatedAt:     s.ActivatedAt,
		completedAt:     s.CompletedAt,
		completionProof: s.CompletionProof,
		completionNotes: s.CompletionNotes,
		createdBy:       s.CreatedBy,
		version:         s.Version,
		createdAt:       s.CreatedAt,
		updatedAt:       s.UpdatedAt,
	}
}

// Snapshot exports the booking's state for persistence.
func (b *Booking) Snapshot() Snapshot {
	return Snapshot{
		ID:                   b.id,
		ReservationID:        b.reservationID,
		TripNumber:           b.tripNumber,
		CompanyName:          b.companyName,
		OriginAddress:        b.originAddress,
		Stops:                b.Stops(),
		NextStopIndex:        b.nextStopIndex,
		ActiveDestination:    b.activeIndex,
		Vehicle:              b.vehicle,
		VehicleHistory:       b.VehicleHistory(),
		VehicleChangeRequest: b.changeRequest,
		DateNeeded:           b.dateNeeded,
		TimeNeeded:           b.timeNeeded,
		Crew:                 b.Crew(),
		Status:               b.status,
		IsArchived:           b.isArchived,
		DriverLocation:       b.driverLocation,
		DeliveryFee:          b.deliveryFee,
		TotalDistance:        b.totalDistance,
		ActivatedAt:          b.activatedAt,
		CompletedAt:          b.completedAt,
		CompletionProof:      b.completionProof,
		CompletionNotes:      b.completionNotes,
		CreatedBy:            b.createdBy,
		Version:              b.version,
		CreatedAt:            b.createdAt,
		UpdatedAt:            b.updatedAt,
	}
}
