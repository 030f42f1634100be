package fleet

import (
	"fmt"

	"github.com/haulwise/service-dispatch/pkg/domain"
)

// ResourceStatus is the availability of a vehicle or employee.
type ResourceStatus string

const (
	StatusAvailable ResourceStatus = "Available"
	StatusOnTrip    ResourceStatus = "On Trip"
)

// IsValid returns true if the status is recognized.
func (s ResourceStatus) IsValid() bool {
	return s == StatusAvailable || s == StatusOnTrip
}

// ParseResourceStatus converts a string to a ResourceStatus.
func ParseResourceStatus(s string) (ResourceStatus, error) {
	status := ResourceStatus(s)
	if !status.IsValid() {
		return "", domain.NewValidationError(fmt.Sprintf("invalid resource status: %q", s))
	}
	return status, nil
}
