package booking

import "github.com/google/uuid"

// Conventional crew roles. The first crew member drives; the rest help.
const (
	RoleDriver = "Driver"
	RoleHelper = "Helper"
)

// CrewMember is one employee assigned to a booking.
type CrewMember struct {
	EmployeeID uuid.UUID `json:"employeeId"`
	Role       string    `json:"role"`
}

// NewCrew zips the parallel employee and role lists. Missing roles default to
// Driver for the first member and Helper for the rest.
func NewCrew(employeeIDs []uuid.UUID, roles []string) []CrewMember {
	crew := make([]CrewMember, len(employeeIDs))
	for i, id := range employeeIDs {
		role := RoleHelper
		if i == 0 {
			role = RoleDriver
		}
		if i < len(roles) && roles[i] != "" {
			role = roles[i]
		}
		crew[i] = CrewMember{EmployeeID: id, Role: role}
	}
	return crew
}

func crewIDs(crew []CrewMember) []uuid.UUID {
	ids := make([]uuid.UUID, len(crew))
	for i, m := range crew {
		ids[i] = m.EmployeeID
	}
	return ids
}

func sameCrew(a, b []CrewMember) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].EmployeeID != b[i].EmployeeID {
			return false
		}
	}
	return true
}
