package application

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingDomain "github.com/haulwise/service-dispatch/internal/domain/booking"
	fleetDomain "github.com/haulwise/service-dispatch/internal/domain/fleet"
	proofDomain "github.com/haulwise/service-dispatch/internal/domain/proof"
	"github.com/haulwise/service-dispatch/internal/events"
	"github.com/haulwise/service-dispatch/pkg/domain"
)

var testPhoto = base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0})

// inTransit creates a booking for today with the given number of stops and
// starts the trip as the driver.
func (f *fixture) inTransit(t *testing.T, stops int) uuid.UUID {
	t.Helper()
	created := f.create(fixtureToday, stops)
	_, err := f.driver.UpdateStatus(context.Background(), f.driverID, created.ID, DriverStatusRequest{Status: "In Transit"})
	require.NoError(t, err)
	return created.ID
}

func TestDriverService_UnassignedEmployeeIsForbidden(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.create(fixtureToday, 1)
	stranger := f.employees.add()

	_, err := f.driver.GetAssignedBooking(ctx, stranger, created.ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = f.driver.DeliverDestination(ctx, stranger, created.ID, 0, DeliverDestinationRequest{ProofImage: testPhoto})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Zero(t, f.proofs.count())

	got, err := f.driver.GetAssignedBooking(ctx, f.helperID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestDriverService_ListAssignedBookings(t *testing.T) {
	f := newFixture()
	f.create(fixtureToday, 1)
	f.create("2026-03-12", 1)

	res, err := f.driver.ListAssignedBookings(context.Background(), f.helperID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)

	res, err = f.driver.ListAssignedBookings(context.Background(), uuid.New(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Total)
	assert.NotNil(t, res.Items)
}

func TestDriverService_UpdateStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.create("2026-03-12", 1)

	_, err := f.driver.UpdateStatus(ctx, f.driverID, created.ID, DriverStatusRequest{Status: "Delivered"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	res, err := f.driver.UpdateStatus(ctx, f.driverID, created.ID, DriverStatusRequest{Status: "In Transit"})
	require.NoError(t, err)
	assert.Equal(t, "In Transit", res.Status)
	assert.NotNil(t, f.bookings.load(created.ID).ActivatedAt())
	assert.Equal(t, fleetDomain.StatusOnTrip, f.vehicles.status(f.vehicleID))
	assert.Equal(t, fleetDomain.StatusOnTrip, f.employees.status(f.helperID))

	updates := f.bookings.updates
	_, err = f.driver.UpdateStatus(ctx, f.driverID, created.ID, DriverStatusRequest{Status: "In Transit"})
	require.NoError(t, err)
	assert.Equal(t, updates, f.bookings.updates)
}

func TestDriverService_MultiStopDelivery(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.inTransit(t, 3)

	res, err := f.driver.DeliverDestination(ctx, f.driverID, id, 1, DeliverDestinationRequest{ProofImage: testPhoto, Notes: "left at gate"})
	require.NoError(t, err)
	require.NotNil(t, res.ProofID)
	assert.False(t, res.AllDelivered)
	assert.Equal(t, "In Transit", res.Booking.Status)
	assert.Equal(t, 2, res.Booking.PendingStops)

	stop := res.Booking.DestinationDeliveries[1]
	assert.Equal(t, bookingDomain.DeliveryDelivered, stop.Status)
	assert.Equal(t, res.ProofID.String(), stop.ProofOfDelivery)
	assert.Equal(t, "left at gate", stop.Notes)
	require.NotNil(t, stop.DeliveredBy)
	assert.Equal(t, f.driverID, *stop.DeliveredBy)

	require.Equal(t, 1, f.proofs.count())
	p := f.proofs.proofs[0]
	assert.Equal(t, proofDomain.KindDelivery, p.Kind())
	require.NotNil(t, p.DestinationIndex())
	assert.Equal(t, 1, *p.DestinationIndex())
	assert.Equal(t, "image/png", p.ContentType())

	// helpers may deliver too, and proof is optional per stop
	res, err = f.driver.DeliverDestination(ctx, f.helperID, id, 0, DeliverDestinationRequest{})
	require.NoError(t, err)
	assert.Nil(t, res.ProofID)
	assert.Equal(t, fleetDomain.StatusOnTrip, f.vehicles.status(f.vehicleID))

	res, err = f.driver.DeliverDestination(ctx, f.driverID, id, 2, DeliverDestinationRequest{})
	require.NoError(t, err)
	assert.True(t, res.AllDelivered)
	assert.Equal(t, "Delivered", res.Booking.Status)

	assert.Equal(t, fleetDomain.StatusAvailable, f.vehicles.status(f.vehicleID))
	assert.Equal(t, fleetDomain.StatusAvailable, f.employees.status(f.driverID))
	assert.Equal(t, fleetDomain.StatusAvailable, f.employees.status(f.helperID))

	types := f.publisher.types()
	assert.Equal(t, events.BookingStatusChanged, types[len(types)-1])
	assert.Equal(t, events.BookingDestinationDelivered, types[len(types)-2])
}

func TestDriverService_DeliverRejectionsStoreNoProof(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pending := f.create(fixtureToday, 2)
	_, err := f.driver.DeliverDestination(ctx, f.driverID, pending.ID, 0, DeliverDestinationRequest{ProofImage: testPhoto})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	id := f.inTransit(t, 2)
	_, err = f.driver.DeliverDestination(ctx, f.driverID, id, 0, DeliverDestinationRequest{})
	require.NoError(t, err)

	_, err = f.driver.DeliverDestination(ctx, f.driverID, id, 0, DeliverDestinationRequest{ProofImage: testPhoto})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	_, err = f.driver.DeliverDestination(ctx, f.driverID, id, 7, DeliverDestinationRequest{ProofImage: testPhoto})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.driver.DeliverDestination(ctx, f.driverID, id, 1, DeliverDestinationRequest{ProofImage: "not an image"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	assert.Zero(t, f.proofs.count())
	assert.Equal(t, 1, f.bookings.load(id).PendingStops())
}

func TestDriverService_ConcurrentDeliveryIsRetried(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.inTransit(t, 2)

	// another crew member delivers stop 1 between our read and write
	fired := false
	f.bookings.beforeUpdate = func(*bookingDomain.Booking) {
		if fired {
			return
		}
		fired = true
		other := f.bookings.load(id)
		_, err := other.DeliverDestination(1, f.helperID, "", "", fixtureNow)
		require.NoError(t, err)
		other.IncrementVersion()
		f.bookings.put(other)
	}

	res, err := f.driver.DeliverDestination(ctx, f.driverID, id, 0, DeliverDestinationRequest{})
	require.NoError(t, err)
	assert.True(t, res.AllDelivered)
	assert.Equal(t, "Delivered", res.Booking.Status)

	stored := f.bookings.load(id)
	assert.True(t, stored.AllDelivered())
	assert.Equal(t, bookingDomain.StatusDelivered, stored.Status())
}

func TestDriverService_RetriesAreBounded(t *testing.T) {
	f := newFixture()
	id := f.inTransit(t, 2)

	f.bookings.beforeUpdate = func(bk *bookingDomain.Booking) {
		f.bookings.bump(bk.ID())
	}

	_, err := f.driver.DeliverDestination(context.Background(), f.driverID, id, 0, DeliverDestinationRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestDriverService_LostDeliveryRaceDiscardsProof(t *testing.T) {
	f := newFixture()
	id := f.inTransit(t, 2)

	// a helper delivers the same stop between our read and write
	fired := false
	f.bookings.beforeUpdate = func(*bookingDomain.Booking) {
		if fired {
			return
		}
		fired = true
		other := f.bookings.load(id)
		_, err := other.DeliverDestination(0, f.helperID, "", "", fixtureNow)
		require.NoError(t, err)
		other.IncrementVersion()
		f.bookings.put(other)
	}

	_, err := f.driver.DeliverDestination(context.Background(), f.driverID, id, 0, DeliverDestinationRequest{ProofImage: testPhoto})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	assert.Zero(t, f.proofs.count(), "the rejected delivery leaves no proof behind")

	stop, ok := f.bookings.load(id).Stop(0)
	require.True(t, ok)
	assert.Equal(t, f.helperID, *stop.DeliveredBy)
}

func TestDriverService_ConcurrentCompletionDiscardsProof(t *testing.T) {
	f := newFixture()
	id := f.inTransit(t, 1)

	fired := false
	f.bookings.beforeUpdate = func(*bookingDomain.Booking) {
		if fired {
			return
		}
		fired = true
		other := f.bookings.load(id)
		_, err := other.CompleteTrip(f.helperID, "", "", fixtureNow)
		require.NoError(t, err)
		other.IncrementVersion()
		f.bookings.put(other)
	}

	res, err := f.driver.CompleteTrip(context.Background(), f.driverID, id, CompleteTripRequest{ProofImage: testPhoto})
	require.NoError(t, err)
	assert.Equal(t, string(bookingDomain.StatusCompleted), res.Status)
	assert.Zero(t, f.proofs.count())
}

func TestDriverService_SetActiveDestination(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.inTransit(t, 3)

	res, err := f.driver.SetActiveDestination(ctx, f.driverID, id, 2)
	require.NoError(t, err)
	require.NotNil(t, res.ActiveDestination)
	assert.Equal(t, 2, *res.ActiveDestination)

	_, err = f.driver.DeliverDestination(ctx, f.driverID, id, 2, DeliverDestinationRequest{})
	require.NoError(t, err)

	got, err := f.driver.GetAssignedBooking(ctx, f.driverID, id)
	require.NoError(t, err)
	require.NotNil(t, got.ActiveDestination)
	assert.Equal(t, 0, *got.ActiveDestination, "falls back to the lowest pending stop")

	_, err = f.driver.SetActiveDestination(ctx, f.driverID, id, 2)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestDriverService_CompleteTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.inTransit(t, 2)

	_, err := f.driver.CompleteTrip(ctx, f.driverID, id, CompleteTripRequest{})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	// stops still pending
	_, err = f.driver.CompleteTrip(ctx, f.driverID, id, CompleteTripRequest{ProofImage: testPhoto})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	assert.Zero(t, f.proofs.count())

	for _, idx := range []int{0, 1} {
		_, err = f.driver.DeliverDestination(ctx, f.driverID, id, idx, DeliverDestinationRequest{})
		require.NoError(t, err)
	}

	res, err := f.driver.CompleteTrip(ctx, f.driverID, id, CompleteTripRequest{ProofImage: testPhoto, Notes: "signed by owner"})
	require.NoError(t, err)
	assert.Equal(t, "Completed", res.Status)

	require.Equal(t, 1, f.proofs.count())
	p := f.proofs.proofs[0]
	assert.Equal(t, proofDomain.KindCompletion, p.Kind())
	assert.Nil(t, p.DestinationIndex())

	stored := f.bookings.load(id)
	assert.Equal(t, p.ID().String(), stored.CompletionProof())
	assert.NotNil(t, stored.CompletedAt())

	// completing again is a no-op and stores nothing
	res, err = f.driver.CompleteTrip(ctx, f.driverID, id, CompleteTripRequest{ProofImage: testPhoto})
	require.NoError(t, err)
	assert.Equal(t, "Completed", res.Status)
	assert.Equal(t, 1, f.proofs.count())
}

func TestDriverService_CompleteSingleStopTripReleasesResources(t *testing.T) {
	f := newFixture()
	id := f.inTransit(t, 1)

	res, err := f.driver.CompleteTrip(context.Background(), f.driverID, id, CompleteTripRequest{ProofImage: testPhoto})
	require.NoError(t, err)
	assert.Equal(t, "Completed", res.Status)

	stored := f.bookings.load(id)
	assert.True(t, stored.AllDelivered())
	assert.Equal(t, fleetDomain.StatusAvailable, f.vehicles.status(f.vehicleID))
	assert.Equal(t, fleetDomain.StatusAvailable, f.employees.status(f.helperID))
}

func TestDriverService_UpdateLocation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pending := f.create(fixtureToday, 1)
	_, err := f.driver.UpdateLocation(ctx, f.driverID, pending.ID, LocationRequest{Latitude: 14.6, Longitude: 121.0})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	id := f.inTransit(t, 1)
	res, err := f.driver.UpdateLocation(ctx, f.driverID, id, LocationRequest{Latitude: 14.5995, Longitude: 120.9842, Accuracy: 5})
	require.NoError(t, err)
	require.NotNil(t, res.DriverLocation)
	assert.InDelta(t, 14.5995, res.DriverLocation.Latitude, 1e-9)
	assert.Equal(t, fixtureNow, res.DriverLocation.LastUpdated)

	_, err = f.driver.UpdateLocation(ctx, f.helperID, id, LocationRequest{Latitude: 1, Longitude: 1})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	require.NoError(t, f.driver.ReportLocation(ctx, f.driverID, id, 14.61, 121.01, 3))
	loc := f.bookings.load(id).DriverLocation()
	require.NotNil(t, loc)
	assert.InDelta(t, 121.01, loc.Longitude, 1e-9)
}

func TestDriverService_VehicleChangeRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.inTransit(t, 1)

	res, err := f.driver.RequestVehicleChange(ctx, f.helperID, id, VehicleChangeRequestBody{Reason: "engine overheating"})
	require.NoError(t, err)
	require.NotNil(t, res.VehicleChangeRequest)
	assert.Equal(t, bookingDomain.VehicleChangePending, res.VehicleChangeRequest.Status)
	assert.Equal(t, f.helperID, res.VehicleChangeRequest.RequestedBy)
	assert.Contains(t, f.publisher.types(), events.BookingVehicleChangeRequested)

	_, err = f.driver.RequestVehicleChange(ctx, f.driverID, id, VehicleChangeRequestBody{Reason: "still hot"})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	// the dispatcher's replacement approves the request and inherits its reason
	replacement := f.vehicles.add("RPL 7777", "Truck")
	updated, err := f.booking.ReplaceVehicle(ctx, id, ReplaceVehicleRequest{VehicleID: replacement})
	require.NoError(t, err)
	require.NotNil(t, updated.VehicleChangeRequest)
	assert.Equal(t, bookingDomain.VehicleChangeApproved, updated.VehicleChangeRequest.Status)
	assert.Equal(t, "engine overheating", updated.VehicleHistory[0].Reason)
	assert.Equal(t, fleetDomain.StatusOnTrip, f.vehicles.status(replacement))

	// a new request is allowed once the previous one was resolved
	_, err = f.driver.RequestVehicleChange(ctx, f.driverID, id, VehicleChangeRequestBody{Reason: "flat tire"})
	require.NoError(t, err)
}
