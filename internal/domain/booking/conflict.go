package booking

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleQuery describes the resources a booking wants on a given day.
type ScheduleQuery struct {
	DateNeeded  time.Time
	VehicleID   uuid.UUID
	EmployeeIDs []uuid.UUID
	ExcludeID   *uuid.UUID
}

// ConflictingBooking references an existing booking that claims a requested resource.
type ConflictingBooking struct {
	ID              uuid.UUID   `json:"id"`
	ReservationID   string      `json:"reservationId"`
	TripNumber      string      `json:"tripNumber"`
	Status          Status      `json:"status"`
	VehicleConflict bool        `json:"vehicleConflict"`
	Employees       []uuid.UUID `json:"employees"`
}

// ConflictReport is the advisory result of a schedule conflict check.
type ConflictReport struct {
	Vehicle   bool                 `json:"vehicle"`
	Employees []uuid.UUID          `json:"employees"`
	Bookings  []ConflictingBooking `json:"bookings"`
}

// HasConflicts reports whether any resource is already claimed.
func (r ConflictReport) HasConflicts() bool {
	return r.Vehicle || len(r.Employees) > 0
}

// ScheduleQuery builds the conflict query for these details.
func (d Details) ScheduleQuery(exclude *uuid.UUID) ScheduleQuery {
	return ScheduleQuery{
		DateNeeded:  d.DateNeeded,
		VehicleID:   d.Vehicle.VehicleID,
		EmployeeIDs: crewIDs(d.Crew),
		ExcludeID:   exclude,
	}
}

// DetectConflicts compares q with candidate bookings. Candidates that are
// archived, not holding resources, excluded, or on another day are ignored, so
// callers may pass a coarser pre-filtered set. Conflicting employees are
// deduplicated and returned in request order.
func DetectConflicts(q ScheduleQuery, candidates []*Booking, loc *time.Location) ConflictReport {
	report := ConflictReport{Employees: []uuid.UUID{}, Bookings: []ConflictingBooking{}}
	claimed := make(map[uuid.UUID]bool)

	for _, b := range candidates {
		if b.isArchived || !b.status.HoldsResources() {
			continue
		}
		if q.ExcludeID != nil && b.id == *q.ExcludeID {
			continue
		}
		if !SameDay(b.dateNeeded, q.DateNeeded, loc) {
			continue
		}

		hit := ConflictingBooking{
			ID:            b.id,
			ReservationID: b.reservationID,
			TripNumber:    b.tripNumber,
			Status:        b.status,
			Employees:     []uuid.UUID{},
		}
		if q.VehicleID != uuid.Nil && b.vehicle.VehicleID == q.VehicleID {
			hit.VehicleConflict = true
			report.Vehicle = true
		}
		for _, id := range q.EmployeeIDs {
			if b.IsAssigned(id) {
				hit.Employees = append(hit.Employees, id)
				claimed[id] = true
			}
		}
		if hit.VehicleConflict || len(hit.Employees) > 0 {
			report.Bookings = append(report.Bookings, hit)
		}
	}

	seen := make(map[uuid.UUID]bool, len(claimed))
	for _, id := range q.EmployeeIDs {
		if claimed[id] && !seen[id] {
			report.Employees = append(report.Employees, id)
			seen[id] = true
		}
	}
	return report
}
