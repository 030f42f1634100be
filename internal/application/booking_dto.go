package application

import (
	"strings"
	"time"

	"github.com/google/uuid"

	bookingDomain "github.com/haulwise/service-dispatch/internal/domain/booking"
	"github.com/haulwise/service-dispatch/pkg/domain"
)

// DestinationRequest is one stop in a create or edit request. DestinationIndex
// is only set on edit, to keep an existing stop.
type DestinationRequest struct {
	DestinationIndex          *int    `json:"destinationIndex"`
	CustomerEstablishmentName string  `json:"customerEstablishmentName" binding:"required"`
	DestinationAddress        string  `json:"destinationAddress" binding:"required"`
	ProductName               string  `json:"productName" binding:"required"`
	Quantity                  int     `json:"quantity" binding:"min=0"`
	GrossWeight               float64 `json:"grossWeight" binding:"min=0"`
	UnitPerPackage            int     `json:"unitPerPackage" binding:"min=0"`
	NumberOfPackages          int     `json:"numberOfPackages" binding:"min=0"`
}

// BookingRequest holds the data needed to create or replace a booking.
type BookingRequest struct {
	CompanyName           string               `json:"companyName" binding:"required"`
	OriginAddress         string               `json:"originAddress" binding:"required"`
	DestinationDeliveries []DestinationRequest `json:"destinationDeliveries" binding:"required,min=1,dive"`
	VehicleID             uuid.UUID            `json:"vehicleId" binding:"required"`
	VehicleType           string               `json:"vehicleType"`
	PlateNumber           string               `json:"plateNumber"`
	DateNeeded            string               `json:"dateNeeded" binding:"required"`
	TimeNeeded            string               `json:"timeNeeded"`
	EmployeeAssigned      []uuid.UUID          `json:"employeeAssigned" binding:"required,min=1"`
	RoleOfEmployee        []string             `json:"roleOfEmployee"`
	DeliveryFee           float64              `json:"deliveryFee" binding:"min=0"`
	TotalDistance         float64              `json:"totalDistance" binding:"min=0"`
}

// ConflictCheckRequest asks whether a vehicle and crew are free on a day.
type ConflictCheckRequest struct {
	VehicleID   uuid.UUID   `json:"vehicleId"`
	EmployeeIDs []uuid.UUID `json:"employeeIds"`
	DateNeeded  string      `json:"dateNeeded" binding:"required"`
	ExcludeID   *uuid.UUID  `json:"excludeId"`
}

// UpdateStatusRequest carries the target status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ReplaceVehicleRequest carries the dispatcher's vehicle swap.
type ReplaceVehicleRequest struct {
	VehicleID   uuid.UUID `json:"vehicleId" binding:"required"`
	VehicleType string    `json:"vehicleType"`
	PlateNumber string    `json:"plateNumber"`
	Reason      string    `json:"reason"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID                    uuid.UUID                            `json:"id"`
	ReservationID         string                               `json:"reservationId"`
	TripNumber            string                               `json:"tripNumber"`
	CompanyName           string                               `json:"companyName"`
	OriginAddress         string                               `json:"originAddress"`
	DestinationDeliveries []bookingDomain.DeliveryStop         `json:"destinationDeliveries"`
	DestinationAddress    string                               `json:"destinationAddress"`
	ActiveDestination     *int                                 `json:"activeDestination,omitempty"`
	TripType              string                               `json:"tripType"`
	NumberOfStops         int                                  `json:"numberOfStops"`
	PendingStops          int                                  `json:"pendingStops"`
	VehicleID             uuid.UUID                            `json:"vehicleId"`
	VehicleType           string                               `json:"vehicleType"`
	PlateNumber           string                               `json:"plateNumber"`
	VehicleHistory        []bookingDomain.VehicleHistoryRecord `json:"vehicleHistory"`
	VehicleChangeRequest  *bookingDomain.VehicleChangeRequest  `json:"vehicleChangeRequest,omitempty"`
	DateNeeded            time.Time                            `json:"dateNeeded"`
	TimeNeeded            string                               `json:"timeNeeded"`
	EmployeeAssigned      []uuid.UUID                          `json:"employeeAssigned"`
	RoleOfEmployee        []string                             `json:"roleOfEmployee"`
	Status                string                               `json:"status"`
	IsArchived            bool                                 `json:"isArchived"`
	DriverLocation        *bookingDomain.DriverLocation        `json:"driverLocation,omitempty"`
	DeliveryFee           float64                              `json:"deliveryFee"`
	TotalDistance         float64                              `json:"totalDistance"`
	ActivatedAt           *time.Time                           `json:"activatedAt,omitempty"`
	CompletedAt           *time.Time                           `json:"completedAt,omitempty"`
	CompletionProof       string                               `json:"completionProof,omitempty"`
	Version               int64                                `json:"version"`
	CreatedAt             time.Time                            `json:"createdAt"`
	UpdatedAt             time.Time                            `json:"updatedAt"`
}

// CreateBookingResult is a created booking plus the advisory conflict report.
type CreateBookingResult struct {
	Booking      BookingDTO                   `json:"booking"`
	Conflicts    bookingDomain.ConflictReport `json:"conflicts"`
	HasConflicts bool                         `json:"hasConflicts"`
}

// StatusUpdateResult is the response to a status change.
type StatusUpdateResult struct {
	ReservationID string    `json:"reservationId"`
	TripNumber    string    `json:"tripNumber"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// BookingStatsDTO holds booking counts for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"totalBookings"`
	ByStatus      map[string]int64 `json:"byStatus"`
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	crew := bk.Crew()
	roles := make([]string, len(crew))
	for i, m := range crew {
		roles[i] = m.Role
	}

	var destinationAddress string
	if primary, ok := bk.PrimaryDestination(); ok {
		destinationAddress = primary.DestinationAddress
	}
	var active *int
	if s, ok := bk.ActiveDestination(); ok {
		idx := s.DestinationIndex
		active = &idx
	}

	return BookingDTO{
		ID:                    bk.ID(),
		ReservationID:         bk.ReservationID(),
		TripNumber:            bk.TripNumber(),
		CompanyName:           bk.CompanyName(),
		OriginAddress:         bk.OriginAddress(),
		DestinationDeliveries: bk.Stops(),
		DestinationAddress:    destinationAddress,
		ActiveDestination:     active,
		TripType:              string(bk.TripType()),
		NumberOfStops:         bk.NumberOfStops(),
		PendingStops:          bk.PendingStops(),
		VehicleID:             bk.Vehicle().VehicleID,
		VehicleType:           bk.Vehicle().VehicleType,
		PlateNumber:           bk.Vehicle().PlateNumber,
		VehicleHistory:        bk.VehicleHistory(),
		VehicleChangeRequest:  bk.VehicleChangeRequest(),
		DateNeeded:            bk.DateNeeded(),
		TimeNeeded:            bk.TimeNeeded(),
		EmployeeAssigned:      bk.EmployeeIDs(),
		RoleOfEmployee:        roles,
		Status:                string(bk.Status()),
		IsArchived:            bk.IsArchived(),
		DriverLocation:        bk.DriverLocation(),
		DeliveryFee:           bk.DeliveryFee(),
		TotalDistance:         bk.TotalDistance(),
		ActivatedAt:           bk.ActivatedAt(),
		CompletedAt:           bk.CompletedAt(),
		CompletionProof:       bk.CompletionProof(),
		Version:               bk.Version(),
		CreatedAt:             bk.CreatedAt(),
		UpdatedAt:             bk.UpdatedAt(),
	}
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}

func toStatusResult(bk *bookingDomain.Booking) *StatusUpdateResult {
	return &StatusUpdateResult{
		ReservationID: bk.ReservationID(),
		TripNumber:    bk.TripNumber(),
		Status:        string(bk.Status()),
		UpdatedAt:     bk.UpdatedAt(),
	}
}

// dateLayouts are the accepted dateNeeded formats. Date-only values are
// interpreted as midnight in the service's location.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.NewValidationError("dateNeeded must be YYYY-MM-DD or RFC 3339")
}

func toDetails(req BookingRequest, loc *time.Location) (bookingDomain.Details, error) {
	dateNeeded, err := parseDate(req.DateNeeded, loc)
	if err != nil {
		return bookingDomain.Details{}, err
	}

	stops := make([]bookingDomain.StopDetails, len(req.DestinationDeliveries))
	for i, d := range req.DestinationDeliveries {
		stops[i] = bookingDomain.StopDetails{
			DestinationIndex:          d.DestinationIndex,
			CustomerEstablishmentName: d.CustomerEstablishmentName,
			DestinationAddress:        d.DestinationAddress,
			ProductName:               d.ProductName,
			Quantity:                  d.Quantity,
			GrossWeight:               d.GrossWeight,
			UnitPerPackage:            d.UnitPerPackage,
			NumberOfPackages:          d.NumberOfPackages,
		}
	}

	return bookingDomain.Details{
		CompanyName:   req.CompanyName,
		OriginAddress: req.OriginAddress,
		Destinations:  stops,
		Vehicle: bookingDomain.VehicleAssignment{
			VehicleID:   req.VehicleID,
			VehicleType: req.VehicleType,
			PlateNumber: req.PlateNumber,
		},
		DateNeeded:    dateNeeded,
		TimeNeeded:    req.TimeNeeded,
		Crew:          bookingDomain.NewCrew(req.EmployeeAssigned, req.RoleOfEmployee),
		DeliveryFee:   req.DeliveryFee,
		TotalDistance: req.TotalDistance,
	}, nil
}
