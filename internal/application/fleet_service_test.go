package application

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haulwise/service-dispatch/pkg/domain"
)

func TestFleetService_RegisterAndListVehicles(t *testing.T) {
	f := newFixture()
	svc := NewFleetService(f.vehicles, f.employees, zap.NewNop())
	ctx := context.Background()

	v, err := svc.RegisterVehicle(ctx, RegisterVehicleRequest{PlateNumber: " nbc 1234 ", VehicleType: "Wing Van", CapacityKg: 8000})
	require.NoError(t, err)
	assert.Equal(t, "NBC 1234", v.PlateNumber)
	assert.Equal(t, "Available", v.Status)

	got, err := svc.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.PlateNumber, got.PlateNumber)

	// the fixture vehicle goes On Trip once a booking for today activates
	f.create(fixtureToday, 1)

	available, err := svc.ListVehicles(ctx, "Available")
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, v.ID, available[0].ID)

	onTrip, err := svc.ListVehicles(ctx, "On Trip")
	require.NoError(t, err)
	require.Len(t, onTrip, 1)
	assert.Equal(t, f.vehicleID, onTrip[0].ID)

	all, err := svc.ListVehicles(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListVehicles(ctx, "Parked")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.GetVehicle(ctx, uuid.New())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFleetService_RegisterVehicleValidation(t *testing.T) {
	f := newFixture()
	svc := NewFleetService(f.vehicles, f.employees, zap.NewNop())

	_, err := svc.RegisterVehicle(context.Background(), RegisterVehicleRequest{PlateNumber: "  ", VehicleType: "Truck"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.RegisterVehicle(context.Background(), RegisterVehicleRequest{PlateNumber: "ABC", VehicleType: "Truck", CapacityKg: -1})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestFleetService_Employees(t *testing.T) {
	f := newFixture()
	svc := NewFleetService(f.vehicles, f.employees, zap.NewNop())
	ctx := context.Background()

	e, err := svc.RegisterEmployee(ctx, RegisterEmployeeRequest{FullName: "Juan dela Cruz", Position: "Driver", Phone: "0917"})
	require.NoError(t, err)
	assert.Equal(t, "Available", e.Status)

	listed, err := svc.ListEmployees(ctx, "Available")
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	_, err = svc.GetEmployee(ctx, e.ID)
	require.NoError(t, err)

	_, err = svc.RegisterEmployee(ctx, RegisterEmployeeRequest{FullName: "", Position: "Driver"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
