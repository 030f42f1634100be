package application

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingDomain "github.com/haulwise/service-dispatch/internal/domain/booking"
	fleetDomain "github.com/haulwise/service-dispatch/internal/domain/fleet"
	"github.com/haulwise/service-dispatch/internal/events"
)

func TestProcessScheduledBookings_ActivatesDueBookingsOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tomorrow := f.create("2026-03-11", 1)
	later := f.create("2026-03-20", 1)

	f.advanceTo("2026-03-11")
	n, err := f.sync.ProcessScheduledBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored := f.bookings.load(tomorrow.ID)
	require.NotNil(t, stored.ActivatedAt())
	assert.Equal(t, bookingDomain.StatusPending, stored.Status(), "activation never changes the booking status")
	assert.Nil(t, f.bookings.load(later.ID).ActivatedAt())

	assert.Equal(t, fleetDomain.StatusOnTrip, f.vehicles.status(f.vehicleID))
	assert.Equal(t, fleetDomain.StatusOnTrip, f.employees.status(f.driverID))
	assert.Contains(t, f.publisher.types(), events.BookingActivated)

	// a second sweep on the same day finds nothing to do
	n, err = f.sync.ProcessScheduledBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestProcessScheduledBookings_CatchesUpOverdueBookings(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created := f.create("2026-03-11", 1)
	f.advanceTo("2026-03-14")

	n, err := f.sync.ProcessScheduledBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotNil(t, f.bookings.load(created.ID).ActivatedAt())
}

func TestProcessScheduledBookings_SkipsArchivedAndDispatched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	archived := f.create("2026-03-11", 1)
	_, err := f.booking.ArchiveBooking(ctx, archived.ID)
	require.NoError(t, err)

	dispatched := f.create("2026-03-11", 1)
	f.setStatus(dispatched.ID, bookingDomain.StatusInTransit)
	f.setStatus(dispatched.ID, bookingDomain.StatusDelivered)

	f.advanceTo("2026-03-11")
	n, err := f.sync.ProcessScheduledBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Nil(t, f.bookings.load(archived.ID).ActivatedAt())
	assert.Equal(t, fleetDomain.StatusAvailable, f.vehicles.status(f.vehicleID))
}

func TestProcessScheduledBookings_ConcurrentEditIsSkipped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created := f.create("2026-03-11", 1)
	f.bookings.beforeUpdate = func(bk *bookingDomain.Booking) {
		f.bookings.bump(bk.ID())
	}

	f.advanceTo("2026-03-11")
	n, err := f.sync.ProcessScheduledBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Nil(t, f.bookings.load(created.ID).ActivatedAt())

	// the next sweep picks it up
	f.bookings.beforeUpdate = nil
	n, err = f.sync.ProcessScheduledBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessScheduledBookings_StopsOnCancel(t *testing.T) {
	f := newFixture()
	f.create("2026-03-11", 1)
	f.advanceTo("2026-03-11")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := f.sync.ProcessScheduledBookings(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, n)
}

func TestSyncFailuresDoNotFailTheBooking(t *testing.T) {
	f := newFixture()
	f.vehicles.failWith = errors.New("registry offline")

	res, err := f.booking.CreateBooking(context.Background(), f.dispatcher, f.request(fixtureToday, 1))
	require.NoError(t, err)
	assert.NotNil(t, res.Booking.ActivatedAt)
	assert.Equal(t, fleetDomain.StatusOnTrip, f.employees.status(f.driverID))
}

func TestSyncSkipsUnknownResources(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	unknown := uuid.New()
	f.sync.SyncVehicle(ctx, unknown, fleetDomain.StatusOnTrip)
	f.sync.SyncVehicle(ctx, uuid.Nil, fleetDomain.StatusOnTrip)
	f.sync.SyncEmployees(ctx, []uuid.UUID{f.driverID, uuid.New()}, fleetDomain.StatusOnTrip)

	assert.Equal(t, fleetDomain.StatusAvailable, f.vehicles.status(f.vehicleID))
	assert.Equal(t, fleetDomain.StatusOnTrip, f.employees.status(f.driverID))
	assert.Equal(t, fleetDomain.StatusAvailable, f.employees.status(f.helperID))
}
