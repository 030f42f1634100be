package booking

import (
	"fmt"

	"github.com/haulwise/service-dispatch/pkg/domain"
)

// Status represents the current state of a booking in its lifecycle.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusReadyToGo Status = "Ready to go"
	StatusInTransit Status = "In Transit"
	StatusDelivered Status = "Delivered"
	StatusCompleted Status = "Completed"
)

// validTransitions is the only place that decides which status changes are legal.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusReadyToGo, StatusInTransit},
	StatusReadyToGo: {StatusInTransit},
	StatusInTransit: {StatusDelivered, StatusCompleted},
	StatusDelivered: {StatusCompleted},
	StatusCompleted: {},
}

// ActiveStatuses are the statuses that claim a vehicle and crew for the day.
var ActiveStatuses = []Status{StatusPending, StatusReadyToGo, StatusInTransit}

// IsValid returns true if the status is one of the five canonical values.
func (s Status) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s Status) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	return !exists || len(allowed) == 0
}

// IsOnTheRoad is true while the trip is dispatched: editing and archiving are locked.
func (s Status) IsOnTheRoad() bool {
	return s == StatusReadyToGo || s == StatusInTransit
}

// HoldsResources is true for statuses that count toward schedule conflicts.
func (s Status) HoldsResources() bool {
	for _, a := range ActiveStatuses {
		if a == s {
			return true
		}
	}
	return false
}

// ReleasesResources is true for statuses that hand vehicle and crew back.
func (s Status) ReleasesResources() bool {
	return s == StatusDelivered || s == StatusCompleted
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// AllowedTransitions lists the statuses reachable from s.
func (s Status) AllowedTransitions() []Status {
	out := make([]Status, len(validTransitions[s]))
	copy(out, validTransitions[s])
	return out
}

// ParseStatus converts a string to a Status, returning a validation error if unknown.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", domain.NewValidationError(fmt.Sprintf("invalid booking status: %q", s))
	}
	return status, nil
}
