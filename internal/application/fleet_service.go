package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	fleetDomain "github.com/haulwise/service-dispatch/internal/domain/fleet"
)

// RegisterVehicleRequest is the request DTO for adding a vehicle to the fleet.
type RegisterVehicleRequest struct {
	PlateNumber string  `json:"plateNumber" binding:"required"`
	VehicleType string  `json:"vehicleType" binding:"required"`
	CapacityKg  float64 `json:"capacityKg" binding:"min=0"`
}

// RegisterEmployeeRequest is the request DTO for adding an employee.
type RegisterEmployeeRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Position string `json:"position" binding:"required"`
	Phone    string `json:"phone"`
}

// VehicleDTO is the API response representation of a vehicle.
type VehicleDTO struct {
	ID          uuid.UUID `json:"id"`
	PlateNumber string    `json:"plateNumber"`
	VehicleType string    `json:"vehicleType"`
	CapacityKg  float64   `json:"capacityKg"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// EmployeeDTO is the API response representation of an employee.
type EmployeeDTO struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Position  string    `json:"position"`
	Phone     string    `json:"phone,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FleetService manages the vehicle and employee registry.
type FleetService struct {
	vehicles  fleetDomain.VehicleRepository
	employees fleetDomain.EmployeeRepository
	logger    *zap.Logger
}

// NewFleetService creates a new FleetService.
func NewFleetService(vehicles fleetDomain.VehicleRepository, employees fleetDomain.EmployeeRepository, logger *zap.Logger) *FleetService {
	return &FleetService{vehicles: vehicles, employees: employees, logger: logger}
}

// RegisterVehicle adds an Available vehicle.
func (s *FleetService) RegisterVehicle(ctx context.Context, req RegisterVehicleRequest) (*VehicleDTO, error) {
	v, err := fleetDomain.NewVehicle(req.PlateNumber, req.VehicleType, req.CapacityKg)
	if err != nil {
		return nil, err
	}
	if err := s.vehicles.Save(ctx, v); err != nil {
		return nil, err
	}

	s.logger.Info("vehicle registered",
		zap.String("vehicle_id", v.ID().String()),
		zap.String("plate_number", v.PlateNumber()),
	)
	dto := toVehicleDTO(v)
	return &dto, nil
}

// ListVehicles lists vehicles, optionally only those with the given status.
func (s *FleetService) ListVehicles(ctx context.Context, status string) ([]VehicleDTO, error) {
	filter, err := parseResourceFilter(status)
	if err != nil {
		return nil, err
	}
	vehicles, err := s.vehicles.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	dtos := make([]VehicleDTO, len(vehicles))
	for i, v := range vehicles {
		dtos[i] = toVehicleDTO(v)
	}
	return dtos, nil
}

// GetVehicle returns a single vehicle.
func (s *FleetService) GetVehicle(ctx context.Context, id uuid.UUID) (*VehicleDTO, error) {
	v, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toVehicleDTO(v)
	return &dto, nil
}

// RegisterEmployee adds an Available employee.
func (s *FleetService) RegisterEmployee(ctx context.Context, req RegisterEmployeeRequest) (*EmployeeDTO, error) {
	e, err := fleetDomain.NewEmployee(req.FullName, req.Position, req.Phone)
	if err != nil {
		return nil, err
	}
	if err := s.employees.Save(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("employee registered", zap.String("employee_id", e.ID().String()))
	dto := toEmployeeDTO(e)
	return &dto, nil
}

// ListEmployees lists employees, optionally only those with the given status.
func (s *FleetService) ListEmployees(ctx context.Context, status string) ([]EmployeeDTO, error) {
	filter, err := parseResourceFilter(status)
	if err != nil {
		return nil, err
	}
	employees, err := s.employees.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	return dtos, nil
}

// GetEmployee returns a single employee.
func (s *FleetService) GetEmployee(ctx context.Context, id uuid.UUID) (*EmployeeDTO, error) {
	e, err := s.employees.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toEmployeeDTO(e)
	return &dto, nil
}

func parseResourceFilter(status string) (*fleetDomain.ResourceStatus, error) {
	if status == "" {
		return nil, nil
	}
	st, err := fleetDomain.ParseResourceStatus(status)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func toVehicleDTO(v *fleetDomain.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:          v.ID(),
		PlateNumber: v.PlateNumber(),
		VehicleType: v.VehicleType(),
		CapacityKg:  v.CapacityKg(),
		Status:      string(v.Status()),
		CreatedAt:   v.CreatedAt(),
		UpdatedAt:   v.UpdatedAt(),
	}
}

func toEmployeeDTO(e *fleetDomain.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        e.ID(),
		FullName:  e.FullName(),
		Position:  e.Position(),
		Phone:     e.Phone(),
		Status:    string(e.Status()),
		CreatedAt: e.CreatedAt(),
		UpdatedAt: e.UpdatedAt(),
	}
}
