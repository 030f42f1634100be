package fleet

import (
	"context"

	"github.com/google/uuid"
)

// VehicleRepository defines persistence operations for vehicles.
type VehicleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)
	List(ctx context.Context, status *ResourceStatus) ([]*Vehicle, error)
	Save(ctx context.Context, vehicle *Vehicle) error

	// UpdateStatus sets the vehicle's status. found is false when no vehicle has id.
	UpdateStatus(ctx context.Context, id uuid.UUID, status ResourceStatus) (found bool, err error)
}

// EmployeeRepository defines persistence operations for employees.
type EmployeeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Employee, error)
	List(ctx context.Context, status *ResourceStatus) ([]*Employee, error)
	Save(ctx context.Context, employee *Employee) error

	// UpdateStatus sets the status of every employee in ids and returns how many matched.
	UpdateStatus(ctx context.Context, ids []uuid.UUID, status ResourceStatus) (int64, error)
}
