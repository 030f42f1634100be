package fleet

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haulwise/service-dispatch/pkg/domain"
)

// Employee is a driver or helper who can be assigned to a booking crew.
type Employee struct {
	id        uuid.UUID
	fullName  string
	position  string
	phone     string
	status    ResourceStatus
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewEmployee registers an Available employee.
func NewEmployee(fullName, position, phone string) (*Employee, error) {
	if strings.TrimSpace(fullName) == "" {
		return nil, domain.NewValidationError("full name is required")
	}
	if strings.TrimSpace(position) == "" {
		return nil, domain.NewValidationError("position is required")
	}

	now := time.Now().UTC()
	return &Employee{
		id:        uuid.New(),
		fullName:  strings.TrimSpace(fullName),
		position:  strings.TrimSpace(position),
		phone:     strings.TrimSpace(phone),
		status:    StatusAvailable,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructEmployee rebuilds an Employee from persistence data (no validation).
func ReconstructEmployee(
	id uuid.UUID,
	fullName, position, phone string,
	status ResourceStatus,
	version int64,
	createdAt, updatedAt time.Time,
) *Employee {
	return &Employee{
		id:        id,
		fullName:  fullName,
		position:  position,
		phone:     phone,
		status:    status,
		version:   version,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (e *Employee) ID() uuid.UUID          { return e.id }
func (e *Employee) FullName() string       { return e.fullName }
func (e *Employee) Position() string       { return e.position }
func (e *Employee) Phone() string          { return e.phone }
func (e *Employee) Status() ResourceStatus { return e.status }
func (e *Employee) Version() int64         { return e.version }
func (e *Employee) CreatedAt() time.Time   { return e.createdAt }
func (e *Employee) UpdatedAt() time.Time   { return e.updatedAt }
