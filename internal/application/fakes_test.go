package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/haulwise/service-dispatch/internal/domain/booking"
	fleetDomain "github.com/haulwise/service-dispatch/internal/domain/fleet"
	proofDomain "github.com/haulwise/service-dispatch/internal/domain/proof"
	"github.com/haulwise/service-dispatch/pkg/domain"
	"github.com/haulwise/service-dispatch/pkg/kafka"
)

var (
	_ bookingDomain.BookingRepository = (*memoryBookingRepo)(nil)
	_ bookingDomain.SequenceStore     = (*memorySequences)(nil)
	_ fleetDomain.VehicleRepository   = (*memoryVehicleRepo)(nil)
	_ fleetDomain.EmployeeRepository  = (*memoryEmployeeRepo)(nil)
	_ proofDomain.ProofRepository     = (*memoryProofRepo)(nil)
	_ EventPublisher                  = (*recordingPublisher)(nil)
)

// --- Bookings ---

// memoryBookingRepo stores snapshots and enforces the optimistic version check.
type memoryBookingRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]bookingDomain.Snapshot

	// beforeUpdate runs before each Update with the lock released; tests use it
	// to simulate a concurrent writer.
	beforeUpdate func(bk *bookingDomain.Booking)
	updates      int

	// scanErr fails the same-day scan used by conflict checks.
	scanErr error
}

func newMemoryBookingRepo() *memoryBookingRepo {
	return &memoryBookingRepo{rows: map[uuid.UUID]bookingDomain.Snapshot{}}
}

func cloneSnapshot(s bookingDomain.Snapshot) bookingDomain.Snapshot {
	s.Stops = append([]bookingDomain.DeliveryStop(nil), s.Stops...)
	s.VehicleHistory = append([]bookingDomain.VehicleHistoryRecord(nil), s.VehicleHistory...)
	s.Crew = append([]bookingDomain.CrewMember(nil), s.Crew...)
	if s.VehicleChangeRequest != nil {
		cr := *s.VehicleChangeRequest
		s.VehicleChangeRequest = &cr
	}
	if s.DriverLocation != nil {
		loc := *s.DriverLocation
		s.DriverLocation = &loc
	}
	if s.ActiveDestination != nil {
		idx := *s.ActiveDestination
		s.ActiveDestination = &idx
	}
	return s
}

func (r *memoryBookingRepo) put(bk *bookingDomain.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[bk.ID()] = cloneSnapshot(bk.Snapshot())
}

func (r *memoryBookingRepo) load(id uuid.UUID) *bookingDomain.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil
	}
	return bookingDomain.ReconstructBooking(cloneSnapshot(s))
}

// bump advances the stored version as if another writer had saved first.
func (r *memoryBookingRepo) bump(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.rows[id]
	s.Version++
	r.rows[id] = s
}

func (r *memoryBookingRepo) all() []*bookingDomain.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*bookingDomain.Booking, 0, len(r.rows))
	for _, s := range r.rows {
		out = append(out, bookingDomain.ReconstructBooking(cloneSnapshot(s)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservationID() < out[j].ReservationID() })
	return out
}

func (r *memoryBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	bk := r.load(id)
	if bk == nil {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return bk, nil
}

func (r *memoryBookingRepo) FindByReservationID(_ context.Context, reservationID string) (*bookingDomain.Booking, error) {
	for _, bk := range r.all() {
		if bk.ReservationID() == reservationID {
			return bk, nil
		}
	}
	return nil, domain.NewNotFoundError("Booking", reservationID)
}

func (r *memoryBookingRepo) List(_ context.Context, filter bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	var out []*bookingDomain.Booking
	for _, bk := range r.all() {
		if bk.IsArchived() != filter.Archived {
			continue
		}
		if filter.Status != nil && bk.Status() != *filter.Status {
			continue
		}
		out = append(out, bk)
	}
	return out, int64(len(out)), nil
}

func (r *memoryBookingRepo) FindByEmployee(_ context.Context, employeeID uuid.UUID, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	var out []*bookingDomain.Booking
	for _, bk := range r.all() {
		if bk.IsAssigned(employeeID) {
			out = append(out, bk)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryBookingRepo) FindActiveOnDay(_ context.Context, start, end time.Time) ([]*bookingDomain.Booking, error) {
	if r.scanErr != nil {
		return nil, r.scanErr
	}
	var out []*bookingDomain.Booking
	for _, bk := range r.all() {
		d := bk.DateNeeded()
		if bk.IsArchived() || !bk.Status().HoldsResources() || d.Before(start) || !d.Before(end) {
			continue
		}
		out = append(out, bk)
	}
	return out, nil
}

func (r *memoryBookingRepo) FindDueForActivation(_ context.Context, before time.Time) ([]*bookingDomain.Booking, error) {
	var out []*bookingDomain.Booking
	for _, bk := range r.all() {
		if bk.Status() == bookingDomain.StatusPending && !bk.IsArchived() && bk.ActivatedAt() == nil && bk.DateNeeded().Before(before) {
			out = append(out, bk)
		}
	}
	return out, nil
}

func (r *memoryBookingRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, bk := range r.all() {
		counts[string(bk.Status())]++
	}
	return counts, nil
}

func (r *memoryBookingRepo) Save(_ context.Context, bk *bookingDomain.Booking) error {
	r.put(bk)
	return nil
}

func (r *memoryBookingRepo) Update(_ context.Context, bk *bookingDomain.Booking) error {
	if hook := r.beforeUpdate; hook != nil {
		hook(bk)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.rows[bk.ID()]
	if !ok {
		return domain.NewNotFoundError("Booking", bk.ID().String())
	}
	if current.Version != bk.Version()-1 {
		return domain.NewConflictError("booking was modified concurrently, please retry")
	}
	r.rows[bk.ID()] = cloneSnapshot(bk.Snapshot())
	r.updates++
	return nil
}

func (r *memoryBookingRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return domain.NewNotFoundError("Booking", id.String())
	}
	delete(r.rows, id)
	return nil
}

// --- Sequences ---

type memorySequences struct {
	mu   sync.Mutex
	seqs map[string]int64
}

func newMemorySequences() *memorySequences {
	return &memorySequences{seqs: map[string]int64{}}
}

func (s *memorySequences) Increment(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[name]++
	return s.seqs[name], nil
}

func (s *memorySequences) Set(_ context.Context, name string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[name] = value
	return nil
}

// --- Fleet ---

type memoryVehicleRepo struct {
	mu       sync.Mutex
	vehicles map[uuid.UUID]*fleetDomain.Vehicle
	failWith error
}

func newMemoryVehicleRepo() *memoryVehicleRepo {
	return &memoryVehicleRepo{vehicles: map[uuid.UUID]*fleetDomain.Vehicle{}}
}

func (r *memoryVehicleRepo) add(plate, vehicleType string) uuid.UUID {
	v, err := fleetDomain.NewVehicle(plate, vehicleType, 5000)
	if err != nil {
		panic(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vehicles[v.ID()] = v
	return v.ID()
}

func (r *memoryVehicleRepo) status(id uuid.UUID) fleetDomain.ResourceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.vehicles[id]; ok {
		return v.Status()
	}
	return ""
}

func (r *memoryVehicleRepo) FindByID(_ context.Context, id uuid.UUID) (*fleetDomain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[id]
	if !ok {
		return nil, domain.NewNotFoundError("Vehicle", id.String())
	}
	return v, nil
}

func (r *memoryVehicleRepo) List(_ context.Context, status *fleetDomain.ResourceStatus) ([]*fleetDomain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*fleetDomain.Vehicle
	for _, v := range r.vehicles {
		if status == nil || v.Status() == *status {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memoryVehicleRepo) Save(_ context.Context, v *fleetDomain.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vehicles[v.ID()] = v
	return nil
}

func (r *memoryVehicleRepo) UpdateStatus(_ context.Context, id uuid.UUID, status fleetDomain.ResourceStatus) (bool, error) {
	if r.failWith != nil {
		return false, r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[id]
	if !ok {
		return false, nil
	}
	r.vehicles[id] = fleetDomain.ReconstructVehicle(v.ID(), v.PlateNumber(), v.VehicleType(), v.CapacityKg(), status, v.Version()+1, v.CreatedAt(), time.Now())
	return true, nil
}

type memoryEmployeeRepo struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]fleetDomain.ResourceStatus
}

func newMemoryEmployeeRepo() *memoryEmployeeRepo {
	return &memoryEmployeeRepo{statuses: map[uuid.UUID]fleetDomain.ResourceStatus{}}
}

func (r *memoryEmployeeRepo) add() uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id] = fleetDomain.StatusAvailable
	return id
}

func (r *memoryEmployeeRepo) status(id uuid.UUID) fleetDomain.ResourceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[id]
}

func (r *memoryEmployeeRepo) FindByID(_ context.Context, id uuid.UUID) (*fleetDomain.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.statuses[id]
	if !ok {
		return nil, domain.NewNotFoundError("Employee", id.String())
	}
	now := time.Now()
	return fleetDomain.ReconstructEmployee(id, "Crew Member", "Driver", "", st, 1, now, now), nil
}

func (r *memoryEmployeeRepo) List(ctx context.Context, status *fleetDomain.ResourceStatus) ([]*fleetDomain.Employee, error) {
	r.mu.Lock()
	ids := make([]uuid.UUID, 0, len(r.statuses))
	for id, st := range r.statuses {
		if status == nil || st == *status {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()

	out := make([]*fleetDomain.Employee, 0, len(ids))
	for _, id := range ids {
		e, _ := r.FindByID(ctx, id)
		out = append(out, e)
	}
	return out, nil
}

func (r *memoryEmployeeRepo) Save(_ context.Context, e *fleetDomain.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[e.ID()] = e.Status()
	return nil
}

func (r *memoryEmployeeRepo) UpdateStatus(_ context.Context, ids []uuid.UUID, status fleetDomain.ResourceStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.statuses[id]; ok {
			r.statuses[id] = status
			n++
		}
	}
	return n, nil
}

// --- Proofs ---

type memoryProofRepo struct {
	mu     sync.Mutex
	proofs []*proofDomain.Proof
}

func (r *memoryProofRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proofs)
}

func (r *memoryProofRepo) Save(_ context.Context, p *proofDomain.Proof) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proofs = append(r.proofs, p)
	return nil
}

func (r *memoryProofRepo) FindByID(_ context.Context, id uuid.UUID) (*proofDomain.Proof, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.proofs {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, domain.NewNotFoundError("Proof", id.String())
}

func (r *memoryProofRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]*proofDomain.Proof, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*proofDomain.Proof
	for _, p := range r.proofs {
		if p.BookingID() == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryProofRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.proofs {
		if p.ID() == id {
			r.proofs = append(r.proofs[:i], r.proofs[i+1:]...)
			return nil
		}
	}
	return nil
}

// --- Events ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _ string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// --- Fixture ---

var (
	fixtureNow   = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	fixtureToday = "2026-03-10"
)

// fixture wires every service over in-memory storage at a fixed clock.
type fixture struct {
	bookings  *memoryBookingRepo
	vehicles  *memoryVehicleRepo
	employees *memoryEmployeeRepo
	proofs    *memoryProofRepo
	publisher *recordingPublisher

	sync    *ResourceSynchronizer
	booking *BookingService
	driver  *DriverService

	now        time.Time
	vehicleID  uuid.UUID
	driverID   uuid.UUID
	helperID   uuid.UUID
	dispatcher uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		bookings:   newMemoryBookingRepo(),
		vehicles:   newMemoryVehicleRepo(),
		employees:  newMemoryEmployeeRepo(),
		proofs:     &memoryProofRepo{},
		publisher:  &recordingPublisher{},
		dispatcher: uuid.New(),
		now:        fixtureNow,
	}
	f.vehicleID = f.vehicles.add("ABC 1234", "Wing Van")
	f.driverID = f.employees.add()
	f.helperID = f.employees.add()

	log := zap.NewNop()
	clock := func() time.Time { return f.now }
	ids := bookingDomain.NewIdentifierGenerator(newMemorySequences())

	f.sync = NewResourceSynchronizer(f.bookings, f.vehicles, f.employees, f.publisher, "test", nil, time.UTC, log)
	f.sync.now = clock
	f.booking = NewBookingService(f.bookings, f.vehicles, ids, f.sync, f.publisher, "test", nil, time.UTC, log)
	f.booking.now = clock
	f.driver = NewDriverService(f.bookings, f.proofs, f.sync, f.publisher, "test", nil, log)
	f.driver.now = clock
	return f
}

// advanceTo moves the shared clock to the given date at 09:00 UTC.
func (f *fixture) advanceTo(date string) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	f.now = d.Add(9 * time.Hour)
}

func (f *fixture) request(date string, stops int) BookingRequest {
	dests := make([]DestinationRequest, stops)
	for i := range dests {
		dests[i] = DestinationRequest{
			CustomerEstablishmentName: "Sari-sari Store",
			DestinationAddress:        "Quezon City",
			ProductName:               "Rice",
			Quantity:                  20,
			GrossWeight:               500,
			UnitPerPackage:            1,
			NumberOfPackages:          20,
		}
	}
	return BookingRequest{
		CompanyName:           "Acme Foods",
		OriginAddress:         "Pasig Warehouse",
		DestinationDeliveries: dests,
		VehicleID:             f.vehicleID,
		DateNeeded:            date,
		TimeNeeded:            "08:00",
		EmployeeAssigned:      []uuid.UUID{f.driverID, f.helperID},
		DeliveryFee:           1500,
		TotalDistance:         30,
	}
}

func (f *fixture) create(date string, stops int) BookingDTO {
	res, err := f.booking.CreateBooking(context.Background(), f.dispatcher, f.request(date, stops))
	if err != nil {
		panic(err)
	}
	return res.Booking
}

func (f *fixture) setStatus(id uuid.UUID, status bookingDomain.Status) {
	if _, err := f.booking.UpdateStatus(context.Background(), f.dispatcher, id, UpdateStatusRequest{Status: string(status)}); err != nil {
		panic(err)
	}
}
