package fleet

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haulwise/service-dispatch/pkg/domain"
)

// Vehicle is a fleet vehicle that bookings are assigned to.
type Vehicle struct {
	id          uuid.UUID
	plateNumber string
	vehicleType string
	capacityKg  float64
	status      ResourceStatus
	version     int64
	createdAt   time.Time
	updatedAt   time.Time
}

// NewVehicle registers an Available vehicle.
func NewVehicle(plateNumber, vehicleType string, capacityKg float64) (*Vehicle, error) {
	plateNumber = strings.ToUpper(strings.TrimSpace(plateNumber))
	if plateNumber == "" {
		return nil, domain.NewValidationError("plate number is required")
	}
	if strings.TrimSpace(vehicleType) == "" {
		return nil, domain.NewValidationError("vehicle type is required")
	}
	if capacityKg < 0 {
		return nil, domain.NewValidationError("capacity must not be negative")
	}

	now := time.Now().UTC()
	return &Vehicle{
		id:          uuid.New(),
		plateNumber: plateNumber,
		vehicleType: strings.TrimSpace(vehicleType),
		capacityKg:  capacityKg,
		status:      StatusAvailable,
		version:     1,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructVehicle rebuilds a Vehicle from persistence data (no validation).
func ReconstructVehicle(
	id uuid.UUID,
	plateNumber, vehicleType string,
	capacityKg float64,
	status ResourceStatus,
	version int64,
	createdAt, updatedAt time.Time,
) *Vehicle {
	return &Vehicle{
		id:          id,
		plateNumber: plateNumber,
		vehicleType: vehicleType,
		capacityKg:  capacityKg,
		status:      status,
		version:     version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (v *Vehicle) ID() uuid.UUID          { return v.id }
func (v *Vehicle) PlateNumber() string    { return v.plateNumber }
func (v *Vehicle) VehicleType() string    { return v.vehicleType }
func (v *Vehicle) CapacityKg() float64    { return v.capacityKg }
func (v *Vehicle) Status() ResourceStatus { return v.status }
func (v *Vehicle) Version() int64         { return v.version }
func (v *Vehicle) CreatedAt() time.Time   { return v.createdAt }
func (v *Vehicle) UpdatedAt() time.Time   { return v.updatedAt }

// IsAvailable returns true if the vehicle is not on a trip.
func (v *Vehicle) IsAvailable() bool {
	return v.status == StatusAvailable
}
