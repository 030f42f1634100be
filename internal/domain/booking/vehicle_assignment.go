package booking

import (
	"time"

	"github.com/google/uuid"
)

// VehicleAssignment is the vehicle currently bound to a booking. VehicleType and
// PlateNumber are denormalised for display; VehicleID is the join key.
type VehicleAssignment struct {
	VehicleID   uuid.UUID `json:"vehicleId"`
	VehicleType string    `json:"vehicleType"`
	PlateNumber string    `json:"plateNumber"`
}

// VehicleHistoryStatus marks whether a history record is current.
type VehicleHistoryStatus string

const (
	VehicleHistoryActive   VehicleHistoryStatus = "active"
	VehicleHistoryReplaced VehicleHistoryStatus = "replaced"
)

// VehicleHistoryRecord is one entry of the append-only assignment log.
type VehicleHistoryRecord struct {
	VehicleID   uuid.UUID            `json:"vehicleId"`
	VehicleType string               `json:"vehicleType"`
	PlateNumber string               `json:"plateNumber"`
	AssignedAt  time.Time            `json:"assignedAt"`
	EndedAt     *time.Time           `json:"endedAt,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	Status      VehicleHistoryStatus `json:"status"`
}

// VehicleChangeStatus is the state of a driver's vehicle-change request.
type VehicleChangeStatus string

const (
	VehicleChangePending  VehicleChangeStatus = "pending"
	VehicleChangeApproved VehicleChangeStatus = "approved"
)

// VehicleChangeRequest is the single outstanding change request a booking may carry.
type VehicleChangeRequest struct {
	Requested   bool                `json:"requested"`
	Reason      string              `json:"reason"`
	Status      VehicleChangeStatus `json:"status"`
	RequestedBy uuid.UUID           `json:"requestedBy"`
	RequestedAt time.Time           `json:"requestedAt"`
	ResolvedAt  *time.Time          `json:"resolvedAt,omitempty"`
}

// IsPending reports whether the request is awaiting a dispatcher.
func (r *VehicleChangeRequest) IsPending() bool {
	return r != nil && r.Requested && r.Status == VehicleChangePending
}

func openHistory(v VehicleAssignment, at time.Time) VehicleHistoryRecord {
	return VehicleHistoryRecord{
		VehicleID:   v.VehicleID,
		VehicleType: v.VehicleType,
		PlateNumber: v.PlateNumber,
		AssignedAt:  at,
		Status:      VehicleHistoryActive,
	}
}
