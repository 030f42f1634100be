package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	fleetDomain "github.com/haulwise/service-dispatch/internal/domain/fleet"
	"github.com/haulwise/service-dispatch/pkg/domain"
)

// VehicleModel is the GORM model for the vehicles table.
type VehicleModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PlateNumber string    `gorm:"type:varchar(20);not null;uniqueIndex"`
	VehicleType string    `gorm:"type:varchar(50);not null"`
	CapacityKg  float64   `gorm:"type:decimal(10,2)"`
	Status      string    `gorm:"type:varchar(20);not null;default:'Available';index"`
	Version     int64     `gorm:"not null;default:1"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (VehicleModel) TableName() string { return "vehicles" }

// EmployeeModel is the GORM model for the employees table.
type EmployeeModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName  string    `gorm:"type:varchar(150);not null"`
	Position  string    `gorm:"type:varchar(50);not null"`
	Phone     string    `gorm:"type:varchar(30)"`
	Status    string    `gorm:"type:varchar(20);not null;default:'Available';index"`
	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (EmployeeModel) TableName() string { return "employees" }

// GormVehicleRepository implements VehicleRepository using GORM.
type GormVehicleRepository struct {
	db *gorm.DB
}

func NewGormVehicleRepository(db *gorm.DB) *GormVehicleRepository {
	return &GormVehicleRepository{db: db}
}

func (r *GormVehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*fleetDomain.Vehicle, error) {
	var model VehicleModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Vehicle", id.String())
		}
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	return toVehicleDomain(&model), nil
}

func (r *GormVehicleRepository) List(ctx context.Context, status *fleetDomain.ResourceStatus) ([]*fleetDomain.Vehicle, error) {
	query := r.db.WithContext(ctx).Order("plate_number ASC")
	if status != nil {
		query = query.Where("status = ?", string(*status))
	}
	var models []VehicleModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	vehicles := make([]*fleetDomain.Vehicle, len(models))
	for i := range models {
		vehicles[i] = toVehicleDomain(&models[i])
	}
	return vehicles, nil
}

func (r *GormVehicleRepository) Save(ctx context.Context, v *fleetDomain.Vehicle) error {
	model := toVehicleModel(v)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError(fmt.Sprintf("vehicle with plate number %s already exists", v.PlateNumber()))
		}
		return fmt.Errorf("failed to save vehicle: %w", err)
	}
	return nil
}

// UpdateStatus writes the status without a version check; the synchronizer is
// the only writer and repeated writes of the same value are harmless.
func (r *GormVehicleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status fleetDomain.ResourceStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&VehicleModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update vehicle status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GormEmployeeRepository implements EmployeeRepository using GORM.
type GormEmployeeRepository struct {
	db *gorm.DB
}

func NewGormEmployeeRepository(db *gorm.DB) *GormEmployeeRepository {
	return &GormEmployeeRepository{db: db}
}

func (r *GormEmployeeRepository) FindByID(ctx context.Context, id uuid.UUID) (*fleetDomain.Employee, error) {
	var model EmployeeModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Employee", id.String())
		}
		return nil, fmt.Errorf("failed to find employee: %w", err)
	}
	return toEmployeeDomain(&model), nil
}

func (r *GormEmployeeRepository) List(ctx context.Context, status *fleetDomain.ResourceStatus) ([]*fleetDomain.Employee, error) {
	query := r.db.WithContext(ctx).Order("full_name ASC")
	if status != nil {
		query = query.Where("status = ?", string(*status))
	}
	var models []EmployeeModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	employees := make([]*fleetDomain.Employee, len(models))
	for i := range models {
		employees[i] = toEmployeeDomain(&models[i])
	}
	return employees, nil
}

func (r *GormEmployeeRepository) Save(ctx context.Context, e *fleetDomain.Employee) error {
	if err := r.db.WithContext(ctx).Create(toEmployeeModel(e)).Error; err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// UpdateStatus sets the status of every employee in ids. Unknown ids are skipped.
func (r *GormEmployeeRepository) UpdateStatus(ctx context.Context, ids []uuid.UUID, status fleetDomain.ResourceStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&EmployeeModel{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update employee status: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// --- Conversions ---

func toVehicleModel(v *fleetDomain.Vehicle) *VehicleModel {
	return &VehicleModel{
		ID:          v.ID(),
		PlateNumber: v.PlateNumber(),
		VehicleType: v.VehicleType(),
		CapacityKg:  v.CapacityKg(),
		Status:      string(v.Status()),
		Version:     v.Version(),
		CreatedAt:   v.CreatedAt(),
		UpdatedAt:   v.UpdatedAt(),
	}
}

func toVehicleDomain(m *VehicleModel) *fleetDomain.Vehicle {
	return fleetDomain.ReconstructVehicle(
		m.ID,
		m.PlateNumber, m.VehicleType,
		m.CapacityKg,
		fleetDomain.ResourceStatus(m.Status),
		m.Version,
		m.CreatedAt, m.UpdatedAt,
	)
}

func toEmployeeModel(e *fleetDomain.Employee) *EmployeeModel {
	return &EmployeeModel{
		ID:        e.ID(),
		FullName:  e.FullName(),
		Position:  e.Position(),
		Phone:     e.Phone(),
		Status:    string(e.Status()),
		Version:   e.Version(),
		CreatedAt: e.CreatedAt(),
		UpdatedAt: e.UpdatedAt(),
	}
}

func toEmployeeDomain(m *EmployeeModel) *fleetDomain.Employee {
	return fleetDomain.ReconstructEmployee(
		m.ID,
		m.FullName, m.Position, m.Phone,
		fleetDomain.ResourceStatus(m.Status),
		m.Version,
		m.CreatedAt, m.UpdatedAt,
	)
}
