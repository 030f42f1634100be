package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haulwise/service-dispatch/pkg/domain"
)

// TripType classifies a booking by its number of destinations.
type TripType string

const (
	TripTypeSingle   TripType = "single"
	TripTypeMultiple TripType = "multiple"
)

// Booking is the aggregate root for a dispatch order: one origin, one or more
// delivery stops, one vehicle and one crew.
type Booking struct {
	id            uuid.UUID
	reservationID string
	tripNumber    string
	companyName   string
	originAddress string

	stops         []DeliveryStop
	nextStopIndex int
	activeIndex   *int

	vehicle        VehicleAssignment
	vehicleHistory []VehicleHistoryRecord
	changeRequest  *VehicleChangeRequest

	dateNeeded time.Time
	timeNeeded string
	crew       []CrewMember

	status         Status
	isArchived     bool
	driverLocation *DriverLocation
	deliveryFee    float64
	totalDistance  float64

	activatedAt     *time.Time
	completedAt     *time.Time
	completionProof string
	completionNotes string
	createdBy       uuid.UUID

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// Details is the dispatcher-supplied content of a booking, used on create and edit.
type Details struct {
	CompanyName   string
	OriginAddress string
	Destinations  []StopDetails
	Vehicle       VehicleAssignment
	DateNeeded    time.Time
	TimeNeeded    string
	Crew          []CrewMember
	DeliveryFee   float64
	TotalDistance float64
}

// Validate checks the dispatcher-supplied content and reports every problem at once.
func (d Details) Validate() error {
	var problems []string
	if strings.TrimSpace(d.CompanyName) == "" {
		problems = append(problems, "companyName is required")
	}
	if strings.TrimSpace(d.OriginAddress) == "" {
		problems = append(problems, "originAddress is required")
	}
	if len(d.Destinations) == 0 {
		problems = append(problems, "destinationDeliveries must contain at least one destination")
	}
	seenIndex := map[int]bool{}
	for i, s := range d.Destinations {
		field := fmt.Sprintf("destinationDeliveries[%d]", i)
		if strings.TrimSpace(s.CustomerEstablishmentName) == "" {
			problems = append(problems, field+".customerEstablishmentName is required")
		}
		if strings.TrimSpace(s.DestinationAddress) == "" {
			problems = append(problems, field+".destinationAddress is required")
		}
		if strings.TrimSpace(s.ProductName) == "" {
			problems = append(problems, field+".productName is required")
		}
		if s.Quantity < 0 || s.GrossWeight < 0 || s.UnitPerPackage < 0 || s.NumberOfPackages < 0 {
			problems = append(problems, field+" quantities must not be negative")
		}
		if s.DestinationIndex != nil {
			if seenIndex[*s.DestinationIndex] {
				problems = append(problems, fmt.Sprintf("%s.destinationIndex %d is duplicated", field, *s.DestinationIndex))
			}
			seenIndex[*s.DestinationIndex] = true
		}
	}
	if d.Vehicle.VehicleID == uuid.Nil {
		problems = append(problems, "vehicleId is required")
	}
	if d.DateNeeded.IsZero() {
		problems = append(problems, "dateNeeded is required")
	}
	if d.TimeNeeded != "" {
		if _, err := time.Parse("15:04", d.TimeNeeded); err != nil {
			problems = append(problems, "timeNeeded must be HH:MM")
		}
	}
	if len(d.Crew) == 0 {
		problems = append(problems, "employeeAssigned must contain at least the driver")
	}
	seenCrew := map[uuid.UUID]bool{}
	for i, m := range d.Crew {
		if m.EmployeeID == uuid.Nil {
			problems = append(problems, fmt.Sprintf("employeeAssigned[%d] is required", i))
			continue
		}
		if seenCrew[m.EmployeeID] {
			problems = append(problems, fmt.Sprintf("employeeAssigned[%d] is assigned twice", i))
		}
		seenCrew[m.EmployeeID] = true
	}
	if d.DeliveryFee < 0 {
		problems = append(problems, "deliveryFee must not be negative")
	}
	if d.TotalDistance < 0 {
		problems = append(problems, "totalDistance must not be negative")
	}

	if len(problems) > 0 {
		return domain.NewFieldValidationError(problems)
	}
	return nil
}

// NewBooking creates a Pending booking. Stop indices are taken from array position.
func NewBooking(reservationID, tripNumber string, d Details, createdBy uuid.UUID, now time.Time) (*Booking, error) {
	if reservationID == "" || tripNumber == "" {
		return nil, domain.NewValidationError("reservation ID and trip number are required")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	stops := make([]DeliveryStop, len(d.Destinations))
	for i, s := range d.Destinations {
		stops[i] = newStop(i, s)
	}

	return &Booking{
		id:             uuid.New(),
		reservationID:  reservationID,
		tripNumber:     tripNumber,
		companyName:    strings.TrimSpace(d.CompanyName),
		originAddress:  strings.TrimSpace(d.OriginAddress),
		stops:          stops,
		nextStopIndex:  len(stops),
		vehicle:        d.Vehicle,
		vehicleHistory: []VehicleHistoryRecord{openHistory(d.Vehicle, now)},
		dateNeeded:     d.DateNeeded,
		timeNeeded:     d.TimeNeeded,
		crew:           append([]CrewMember(nil), d.Crew...),
		status:         StatusPending,
		deliveryFee:    d.DeliveryFee,
		totalDistance:  d.TotalDistance,
		createdBy:      createdBy,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// ReservationID returns the RES-prefixed identifier.
func (b *Booking) ReservationID() string { return b.reservationID }

// TripNumber returns the TRP-prefixed identifier.
func (b *Booking) TripNumber() string { return b.tripNumber }

// CompanyName returns the client company.
func (b *Booking) CompanyName() string { return b.companyName }

// OriginAddress returns the shared pickup address.
func (b *Booking) OriginAddress() string { return b.originAddress }

// Stops returns a copy of the delivery stops in route order.
func (b *Booking) Stops() []DeliveryStop {
	out := make([]DeliveryStop, len(b.stops))
	copy(out, b.stops)
	return out
}

// Vehicle returns the current vehicle assignment.
func (b *Booking) Vehicle() VehicleAssignment { return b.vehicle }

// VehicleHistory returns a copy of the assignment log.
func (b *Booking) VehicleHistory() []VehicleHistoryRecord {
	out := make([]VehicleHistoryRecord, len(b.vehicleHistory))
	copy(out, b.vehicleHistory)
	return out
}

// VehicleChangeRequest returns the outstanding or last resolved change request.
func (b *Booking) VehicleChangeRequest() *VehicleChangeRequest { return b.changeRequest }

// DateNeeded returns the scheduled service date.
func (b *Booking) DateNeeded() time.Time { return b.dateNeeded }

// TimeNeeded returns the scheduled time of day (HH:MM).
func (b *Booking) TimeNeeded() string { return b.timeNeeded }

// Crew returns a copy of the assigned crew, driver first.
func (b *Booking) Crew() []CrewMember { return append([]CrewMember(nil), b.crew...) }

// EmployeeIDs returns the crew's employee IDs in assignment order.
func (b *Booking) EmployeeIDs() []uuid.UUID { return crewIDs(b.crew) }

// Driver returns the first crew member's ID, or uuid.Nil without crew.
func (b *Booking) Driver() uuid.UUID {
	if len(b.crew) == 0 {
		return uuid.Nil
	}
	return b.crew[0].EmployeeID
}

// IsAssigned reports whether employeeID is part of the crew.
func (b *Booking) IsAssigned(employeeID uuid.UUID) bool {
	for _, m := range b.crew {
		if m.EmployeeID == employeeID {
			return true
		}
	}
	return false
}

// Status returns the current status.
func (b *Booking) Status() Status { return b.status }

// IsArchived reports the soft-delete flag.
func (b *Booking) IsArchived() bool { return b.isArchived }

// DriverLocation returns the last GPS fix, or nil.
func (b *Booking) DriverLocation() *DriverLocation { return b.driverLocation }

// DeliveryFee returns the externally computed fee.
func (b *Booking) DeliveryFee() float64 { return b.deliveryFee }

// TotalDistance returns the externally computed route distance.
func (b *Booking) TotalDistance() float64 { return b.totalDistance }

// ActivatedAt returns when vehicle and crew were first marked On Trip for this booking.
func (b *Booking) ActivatedAt() *time.Time { return b.activatedAt }

// CompletedAt returns when the booking reached Completed.
func (b *Booking) CompletedAt() *time.Time { return b.completedAt }

// CompletionProof returns the reference of the final proof photo.
func (b *Booking) CompletionProof() string { return b.completionProof }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// TripType is derived from the number of stops.
func (b *Booking) TripType() TripType {
	if len(b.stops) > 1 {
		return TripTypeMultiple
	}
	return TripTypeSingle
}

// NumberOfStops is derived from the stop list.
func (b *Booking) NumberOfStops() int { return len(b.stops) }

// PrimaryDestination returns the first stop, for single-destination displays.
func (b *Booking) PrimaryDestination() (DeliveryStop, bool) {
	if len(b.stops) == 0 {
		return DeliveryStop{}, false
	}
	return b.stops[0], true
}

// AllDelivered reports whether every stop is delivered.
func (b *Booking) AllDelivered() bool {
	return b.PendingStops() == 0 && len(b.stops) > 0
}

// PendingStops counts undelivered stops.
func (b *Booking) PendingStops() int {
	n := 0
	for _, s := range b.stops {
		if !s.IsDelivered() {
			n++
		}
	}
	return n
}

// Stop returns the stop with the given destination index.
func (b *Booking) Stop(index int) (DeliveryStop, bool) {
	if i := b.stopPosition(index); i >= 0 {
		return b.stops[i], true
	}
	return DeliveryStop{}, false
}

// --- Lifecycle ---

// TransitionTo moves the booking to target if the transition table allows it.
// Setting the current status again is a no-op and reports changed=false.
// Ready to go is only reachable on or after the scheduled day in loc.
// Delivered and Completed require every stop to be delivered; a single-stop
// booking has its only stop delivered implicitly by actor.
func (b *Booking) TransitionTo(target Status, actor uuid.UUID, now time.Time, loc *time.Location) (bool, error) {
	if !target.IsValid() {
		return false, domain.NewValidationError(fmt.Sprintf("invalid booking status: %q", target))
	}
	if target == b.status {
		return false, nil
	}
	if !b.status.CanTransitionTo(target) {
		return false, domain.NewInvalidStateError(string(b.status), string(target))
	}
	if target == StatusReadyToGo && !IsDue(b.dateNeeded, now, loc) {
		return false, domain.NewInvalidOperationError(fmt.Sprintf(
			"booking can only be confirmed on its scheduled day (%s)",
			StartOfDay(b.dateNeeded, loc).Format("2006-01-02")))
	}

	if target.ReleasesResources() {
		if len(b.stops) == 1 {
			if !b.stops[0].IsDelivered() {
				b.stops[0].markDelivered(actor, "", "", now)
			}
		} else if !b.AllDelivered() {
			return false, domain.NewInvalidOperationError(fmt.Sprintf(
				"cannot mark booking %s: %d of %d destinations still pending",
				target, b.PendingStops(), len(b.stops)))
		}
	}

	if target == StatusCompleted {
		b.completedAt = &now
	}
	b.status = target
	b.touch(now)
	return true, nil
}

// ConfirmReady is the dispatcher's confirmation on the scheduled day.
func (b *Booking) ConfirmReady(actor uuid.UUID, now time.Time, loc *time.Location) error {
	if b.status != StatusPending {
		return domain.NewInvalidStateError(string(b.status), string(StatusReadyToGo))
	}
	_, err := b.TransitionTo(StatusReadyToGo, actor, now, loc)
	return err
}

// EnsureEditable rejects edits while the trip is dispatched.
func (b *Booking) EnsureEditable() error {
	if b.status.IsOnTheRoad() {
		return domain.NewInvalidOperationError(fmt.Sprintf("booking cannot be edited while %s", b.status))
	}
	return nil
}

// ScheduleChanged reports whether d moves the booking to another day, vehicle or crew.
func (b *Booking) ScheduleChanged(d Details, loc *time.Location) bool {
	return !SameDay(b.dateNeeded, d.DateNeeded, loc) ||
		b.vehicle.VehicleID != d.Vehicle.VehicleID ||
		!sameCrew(b.crew, d.Crew)
}

// Edit replaces the dispatcher-owned content. Stops are merged by destination
// index: delivered stops cannot change or disappear and new stops get fresh indices.
func (b *Booking) Edit(d Details, now time.Time) error {
	if err := b.EnsureEditable(); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	stops, next, err := mergeStops(b.stops, b.nextStopIndex, d.Destinations)
	if err != nil {
		return err
	}

	if d.Vehicle.VehicleID != b.vehicle.VehicleID {
		b.swapVehicle(d.Vehicle, "reassigned by booking edit", now)
	} else {
		b.vehicle = d.Vehicle
	}

	b.companyName = strings.TrimSpace(d.CompanyName)
	b.originAddress = strings.TrimSpace(d.OriginAddress)
	b.stops = stops
	b.nextStopIndex = next
	b.dateNeeded = d.DateNeeded
	b.timeNeeded = d.TimeNeeded
	b.crew = append([]CrewMember(nil), d.Crew...)
	b.deliveryFee = d.DeliveryFee
	b.totalDistance = d.TotalDistance
	if b.activeIndex != nil {
		if s, ok := b.Stop(*b.activeIndex); !ok || s.IsDelivered() {
			b.activeIndex = nil
		}
	}
	b.touch(now)
	return nil
}

func mergeStops(existing []DeliveryStop, next int, incoming []StopDetails) ([]DeliveryStop, int, error) {
	byIndex := make(map[int]DeliveryStop, len(existing))
	for _, s := range existing {
		byIndex[s.DestinationIndex] = s
		if s.DestinationIndex >= next {
			next = s.DestinationIndex + 1
		}
	}

	kept := make(map[int]bool, len(incoming))
	merged := make([]DeliveryStop, 0, len(incoming))
	for _, d := range incoming {
		if d.DestinationIndex == nil {
			merged = append(merged, newStop(next, d))
			next++
			continue
		}
		idx := *d.DestinationIndex
		current, ok := byIndex[idx]
		if !ok {
			return nil, 0, domain.NewNotFoundError("Destination", strconv.Itoa(idx))
		}
		kept[idx] = true
		if current.IsDelivered() {
			if !current.sameContent(d) {
				return nil, 0, domain.NewInvalidOperationError(fmt.Sprintf("destination %d is already delivered and cannot be changed", idx))
			}
			merged = append(merged, current)
			continue
		}
		merged = append(merged, current.withContent(d))
	}

	for _, s := range existing {
		if !kept[s.DestinationIndex] && s.IsDelivered() {
			return nil, 0, domain.NewInvalidOperationError(fmt.Sprintf("destination %d is already delivered and cannot be removed", s.DestinationIndex))
		}
	}
	return merged, next, nil
}

// Archive soft-deletes the booking. Dispatched trips cannot be archived.
func (b *Booking) Archive(now time.Time) error {
	if b.status.IsOnTheRoad() {
		return domain.NewInvalidOperationError(fmt.Sprintf("booking cannot be archived while %s", b.status))
	}
	b.isArchived = true
	b.touch(now)
	return nil
}

// Restore clears the archive flag.
func (b *Booking) Restore(now time.Time) {
	b.isArchived = false
	b.touch(now)
}

// NeedsActivation reports whether vehicle and crew should now be marked On Trip.
func (b *Booking) NeedsActivation(now time.Time, loc *time.Location) bool {
	return b.status == StatusPending &&
		!b.isArchived &&
		b.activatedAt == nil &&
		IsDue(b.dateNeeded, now, loc)
}

// NeedsDeactivation reports whether a Pending booking holds resources for a day
// that is no longer due, which happens when an edit moves it into the future.
func (b *Booking) NeedsDeactivation(now time.Time, loc *time.Location) bool {
	return b.status == StatusPending &&
		b.activatedAt != nil &&
		!IsDue(b.dateNeeded, now, loc)
}

// Deactivate clears the activation stamp so the daily sweep picks the booking
// up again on its new day.
func (b *Booking) Deactivate(now time.Time) {
	b.activatedAt = nil
	b.touch(now)
}

// MarkActivated stamps the first activation of the booking's resources.
func (b *Booking) MarkActivated(now time.Time) {
	if b.activatedAt == nil {
		b.activatedAt = &now
	}
	b.touch(now)
}

// --- Delivery tracking ---

// DeliverDestination marks one stop delivered. A stop is delivered exactly once;
// when no stop is left pending the booking becomes Delivered and promoted is true.
func (b *Booking) DeliverDestination(index int, actor uuid.UUID, proofRef, notes string, now time.Time) (bool, error) {
	if b.status != StatusInTransit {
		return false, domain.NewInvalidOperationError(fmt.Sprintf(
			"destinations can only be delivered while the booking is %s (current: %s)", StatusInTransit, b.status))
	}
	i := b.stopPosition(index)
	if i < 0 {
		return false, domain.NewNotFoundError("Destination", strconv.Itoa(index))
	}
	if b.stops[i].IsDelivered() {
		return false, domain.NewInvalidOperationError(fmt.Sprintf("destination %d is already delivered", index))
	}

	b.stops[i].markDelivered(actor, proofRef, notes, now)
	if b.activeIndex != nil && *b.activeIndex == index {
		b.activeIndex = nil
	}

	promoted := false
	if b.AllDelivered() && b.status.CanTransitionTo(StatusDelivered) {
		b.status = StatusDelivered
		promoted = true
	}
	b.touch(now)
	return promoted, nil
}

// CompleteTrip is the driver's explicit "complete trip" action with a final proof.
func (b *Booking) CompleteTrip(actor uuid.UUID, proofRef, notes string, now time.Time) (bool, error) {
	changed, err := b.TransitionTo(StatusCompleted, actor, now, nil)
	if err != nil || !changed {
		return changed, err
	}
	b.completionProof = proofRef
	b.completionNotes = notes
	return true, nil
}

// SetActiveDestination designates the pending stop the driver is heading to.
// It is advisory: any pending stop can still be delivered.
func (b *Booking) SetActiveDestination(index int, now time.Time) error {
	s, ok := b.Stop(index)
	if !ok {
		return domain.NewNotFoundError("Destination", strconv.Itoa(index))
	}
	if s.IsDelivered() {
		return domain.NewInvalidOperationError(fmt.Sprintf("destination %d is already delivered", index))
	}
	b.activeIndex = &index
	b.touch(now)
	return nil
}

// ActiveDestination returns the designated stop if still pending, otherwise the
// lowest-index pending stop.
func (b *Booking) ActiveDestination() (DeliveryStop, bool) {
	if b.activeIndex != nil {
		if s, ok := b.Stop(*b.activeIndex); ok && !s.IsDelivered() {
			return s, true
		}
	}
	var best *DeliveryStop
	for i := range b.stops {
		s := &b.stops[i]
		if s.IsDelivered() {
			continue
		}
		if best == nil || s.DestinationIndex < best.DestinationIndex {
			best = s
		}
	}
	if best == nil {
		return DeliveryStop{}, false
	}
	return *best, true
}

// --- Vehicle assignment ---

// RequestVehicleChange records a driver's request; at most one can be pending.
func (b *Booking) RequestVehicleChange(requestedBy uuid.UUID, reason string, now time.Time) error {
	if b.status.ReleasesResources() {
		return domain.NewInvalidOperationError("vehicle change cannot be requested for a finished trip")
	}
	if strings.TrimSpace(reason) == "" {
		return domain.NewValidationError("reason is required")
	}
	if b.changeRequest.IsPending() {
		return domain.NewInvalidOperationError("a vehicle change request is already pending")
	}
	b.changeRequest = &VehicleChangeRequest{
		Requested:   true,
		Reason:      strings.TrimSpace(reason),
		Status:      VehicleChangePending,
		RequestedBy: requestedBy,
		RequestedAt: now,
	}
	b.touch(now)
	return nil
}

// ReplaceVehicle swaps the assigned vehicle, closing the current history record
// and approving a pending change request. It returns the previous assignment.
func (b *Booking) ReplaceVehicle(v VehicleAssignment, reason string, now time.Time) (VehicleAssignment, error) {
	if b.status.ReleasesResources() {
		return VehicleAssignment{}, domain.NewInvalidOperationError("vehicle cannot be replaced on a finished trip")
	}
	if v.VehicleID == uuid.Nil {
		return VehicleAssignment{}, domain.NewValidationError("vehicleId is required")
	}
	if v.VehicleID == b.vehicle.VehicleID {
		return VehicleAssignment{}, domain.NewValidationError("booking is already assigned to this vehicle")
	}
	if strings.TrimSpace(reason) == "" && b.changeRequest.IsPending() {
		reason = b.changeRequest.Reason
	}

	previous := b.swapVehicle(v, reason, now)
	if b.changeRequest.IsPending() {
		b.changeRequest.Status = VehicleChangeApproved
		b.changeRequest.ResolvedAt = &now
	}
	b.touch(now)
	return previous, nil
}

func (b *Booking) swapVehicle(v VehicleAssignment, reason string, now time.Time) VehicleAssignment {
	previous := b.vehicle
	closed := false
	for i := len(b.vehicleHistory) - 1; i >= 0; i-- {
		if b.vehicleHistory[i].Status == VehicleHistoryActive {
			b.vehicleHistory[i].Status = VehicleHistoryReplaced
			b.vehicleHistory[i].EndedAt = &now
			b.vehicleHistory[i].Reason = reason
			closed = true
			break
		}
	}
	if !closed && previous.VehicleID != uuid.Nil {
		rec := openHistory(previous, b.createdAt)
		rec.Status = VehicleHistoryReplaced
		rec.EndedAt = &now
		rec.Reason = reason
		b.vehicleHistory = append(b.vehicleHistory, rec)
	}
	b.vehicleHistory = append(b.vehicleHistory, openHistory(v, now))
	b.vehicle = v
	return previous
}

// --- Driver location ---

// UpdateDriverLocation stores a GPS fix from the assigned driver during the trip.
func (b *Booking) UpdateDriverLocation(driverID uuid.UUID, latitude, longitude, accuracy float64, now time.Time) error {
	if b.status != StatusInTransit {
		return domain.NewInvalidOperationError(fmt.Sprintf(
			"driver location can only be reported while the booking is %s", StatusInTransit))
	}
	if driverID == uuid.Nil || driverID != b.Driver() {
		return domain.NewForbiddenError("only the assigned driver can report location")
	}
	b.driverLocation = &DriverLocation{
		Latitude:    latitude,
		Longitude:   longitude,
		Accuracy:    accuracy,
		LastUpdated: now,
	}
	b.touch(now)
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
}

func (b *Booking) touch(now time.Time) {
	b.updatedAt = now
}

func (b *Booking) stopPosition(index int) int {
	for i, s := range b.stops {
		if s.DestinationIndex == index {
			return i
		}
	}
	return -1
}
