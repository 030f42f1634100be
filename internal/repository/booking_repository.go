package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/haulwise/service-dispatch/internal/domain/booking"
	"github.com/haulwise/service-dispatch/pkg/domain"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReservationID        string          `gorm:"uniqueIndex;not null;size:20"`
	TripNumber           string          `gorm:"uniqueIndex;not null;size:20"`
	CompanyName          string          `gorm:"not null;size:200"`
	OriginAddress        string          `gorm:"not null;size:500"`
	Destinations         json.RawMessage `gorm:"type:jsonb;not null"`
	NextDestinationIndex int             `gorm:"not null;default:0"`
	ActiveDestination    *int            `gorm:""`
	VehicleID            uuid.UUID       `gorm:"type:uuid;index;not null"`
	VehicleType          string          `gorm:"size:50"`
	PlateNumber          string          `gorm:"size:20"`
	VehicleHistory       json.RawMessage `gorm:"type:jsonb;not null"`
	VehicleChangeRequest json.RawMessage `gorm:"type:jsonb"`
	DateNeeded           time.Time       `gorm:"not null;index"`
	TimeNeeded           string          `gorm:"size:5"`
	Crew                 json.RawMessage `gorm:"type:jsonb;not null"`
	Status               string          `gorm:"not null;size:20;index"`
	IsArchived           bool            `gorm:"not null;default:false;index"`
	DriverLocation       json.RawMessage `gorm:"type:jsonb"`
	DeliveryFee          float64         `gorm:"not null;default:0"`
	TotalDistance        float64         `gorm:"not null;default:0"`
	ActivatedAt          *time.Time      `gorm:""`
	CompletedAt          *time.Time      `gorm:""`
	CompletionProof      string          `gorm:"size:64"`
	CompletionNotes      string          `gorm:"size:1000"`
	CreatedBy            uuid.UUID       `gorm:"type:uuid"`
	Version              int64           `gorm:"not null;default:1"`
	CreatedAt            time.Time       `gorm:"not null"`
	UpdatedAt            time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByReservationID retrieves a booking by its reservation identifier.
func (r *GormBookingRepository) FindByReservationID(ctx context.Context, reservationID string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("reservation_id = ?", reservationID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", reservationID)
		}
		return nil, fmt.Errorf("failed to find booking by reservation ID: %w", err)
	}
	return toDomainBooking(&model)
}

// List retrieves active or archived bookings with pagination.
func (r *GormBookingRepository) List(ctx context.Context, filter bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	query := r.db.WithContext(ctx).Model(&BookingModel{}).Where("is_archived = ?", filter.Archived)
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (filter.Page - 1) * filter.Limit
	if err := query.
		Order("date_needed DESC, created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// FindByEmployee retrieves non-archived bookings whose crew contains the employee.
func (r *GormBookingRepository) FindByEmployee(ctx context.Context, employeeID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	member, err := json.Marshal([]map[string]uuid.UUID{{"employeeId": employeeID}})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal crew filter: %w", err)
	}
	query := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("is_archived = ?", false).
		Where("crew @> CAST(? AS jsonb)", string(member)).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count employee bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := query.
		Order("date_needed ASC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find employee bookings: %w", err)
	}

	bookings, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// FindActiveOnDay retrieves non-archived bookings holding resources within [start, end).
func (r *GormBookingRepository) FindActiveOnDay(ctx context.Context, start, end time.Time) ([]*bookingDomain.Booking, error) {
	query, args, err := squirrel.Select("*").
		From("bookings").
		Where(squirrel.Eq{"is_archived": false, "status": statusStrings(bookingDomain.ActiveStatuses)}).
		Where(squirrel.GtOrEq{"date_needed": start}).
		Where(squirrel.Lt{"date_needed": end}).
		OrderBy("date_needed ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build day-window query: %w", err)
	}

	var models []BookingModel
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find bookings on day: %w", err)
	}
	return toDomainBookings(models)
}

// FindDueForActivation retrieves Pending, non-archived bookings never activated
// whose dateNeeded is before the given instant.
func (r *GormBookingRepository) FindDueForActivation(ctx context.Context, before time.Time) ([]*bookingDomain.Booking, error) {
	query, args, err := squirrel.Select("*").
		From("bookings").
		Where(squirrel.Eq{
			"is_archived":  false,
			"status":       string(bookingDomain.StatusPending),
			"activated_at": nil,
		}).
		Where(squirrel.Lt{"date_needed": before}).
		OrderBy("date_needed ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build activation query: %w", err)
	}

	var models []BookingModel
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find bookings due for activation: %w", err)
	}
	return toDomainBookings(models)
}

// CountByStatus returns booking counts grouped by status.
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Where("is_archived = ?", false).
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("booking identifier already in use, please retry")
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	// IncrementVersion was called, so the stored row carries version-1.
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"company_name":           model.CompanyName,
			"origin_address":         model.OriginAddress,
			"destinations":           model.Destinations,
			"next_destination_index": model.NextDestinationIndex,
			"active_destination":     model.ActiveDestination,
			"vehicle_id":             model.VehicleID,
			"vehicle_type":           model.VehicleType,
			"plate_number":           model.PlateNumber,
			"vehicle_history":        model.VehicleHistory,
			"vehicle_change_request": model.VehicleChangeRequest,
			"date_needed":            model.DateNeeded,
			"time_needed":            model.TimeNeeded,
			"crew":                   model.Crew,
			"status":                 model.Status,
			"is_archived":            model.IsArchived,
			"driver_location":        model.DriverLocation,
			"delivery_fee":           model.DeliveryFee,
			"total_distance":         model.TotalDistance,
			"activated_at":           model.ActivatedAt,
			"completed_at":           model.CompletedAt,
			"completion_proof":       model.CompletionProof,
			"completion_notes":       model.CompletionNotes,
			"version":                model.Version,
			"updated_at":             model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

// Delete removes a booking permanently.
func (r *GormBookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&BookingModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Booking", id.String())
	}
	return nil
}

func statusStrings(statuses []bookingDomain.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	s := bk.Snapshot()

	destinations, err := json.Marshal(s.Stops)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal destinations: %w", err)
	}
	history, err := json.Marshal(s.VehicleHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vehicle history: %w", err)
	}
	crew, err := json.Marshal(s.Crew)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal crew: %w", err)
	}

	var changeRequest json.RawMessage
	if s.VehicleChangeRequest != nil {
		if changeRequest, err = json.Marshal(s.VehicleChangeRequest); err != nil {
			return nil, fmt.Errorf("failed to marshal vehicle change request: %w", err)
		}
	}
	var location json.RawMessage
	if s.DriverLocation != nil {
		if location, err = json.Marshal(s.DriverLocation); err != nil {
			return nil, fmt.Errorf("failed to marshal driver location: %w", err)
		}
	}

	return &BookingModel{
		ID:                   s.ID,
		ReservationID:        s.ReservationID,
		TripNumber:           s.TripNumber,
		CompanyName:          s.CompanyName,
		OriginAddress:        s.OriginAddress,
		Destinations:         destinations,
		NextDestinationIndex: s.NextStopIndex,
		ActiveDestination:    s.ActiveDestination,
		VehicleID:            s.Vehicle.VehicleID,
		VehicleType:          s.Vehicle.VehicleType,
		PlateNumber:          s.Vehicle.PlateNumber,
		VehicleHistory:       history,
		VehicleChangeRequest: changeRequest,
		DateNeeded:           s.DateNeeded,
		TimeNeeded:           s.TimeNeeded,
		Crew:                 crew,
		Status:               string(s.Status),
		IsArchived:           s.IsArchived,
		DriverLocation:       location,
		DeliveryFee:          s.DeliveryFee,
		TotalDistance:        s.TotalDistance,
		ActivatedAt:          s.ActivatedAt,
		CompletedAt:          s.CompletedAt,
		CompletionProof:      s.CompletionProof,
		CompletionNotes:      s.CompletionNotes,
		CreatedBy:            s.CreatedBy,
		Version:              s.Version,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var stops []bookingDomain.DeliveryStop
	if err := json.Unmarshal(m.Destinations, &stops); err != nil {
		return nil, fmt.Errorf("failed to unmarshal destinations: %w", err)
	}

	var history []bookingDomain.VehicleHistoryRecord
	if len(m.VehicleHistory) > 0 {
		if err := json.Unmarshal(m.VehicleHistory, &history); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vehicle history: %w", err)
		}
	}

	var crew []bookingDomain.CrewMember
	if err := json.Unmarshal(m.Crew, &crew); err != nil {
		return nil, fmt.Errorf("failed to unmarshal crew: %w", err)
	}

	var changeRequest *bookingDomain.VehicleChangeRequest
	if len(m.VehicleChangeRequest) > 0 && string(m.VehicleChangeRequest) != "null" {
		changeRequest = &bookingDomain.VehicleChangeRequest{}
		if err := json.Unmarshal(m.VehicleChangeRequest, changeRequest); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vehicle change request: %w", err)
		}
	}

	var location *bookingDomain.DriverLocation
	if len(m.DriverLocation) > 0 && string(m.DriverLocation) != "null" {
		location = &bookingDomain.DriverLocation{}
		if err := json.Unmarshal(m.DriverLocation, location); err != nil {
			return nil, fmt.Errorf("failed to unmarshal driver location: %w", err)
		}
	}

	status, err := bookingDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(bookingDomain.Snapshot{
		ID:                m.ID,
		ReservationID:     m.ReservationID,
		TripNumber:        m.TripNumber,
		CompanyName:       m.CompanyName,
		OriginAddress:     m.OriginAddress,
		Stops:             stops,
		NextStopIndex:     m.NextDestinationIndex,
		ActiveDestination: m.ActiveDestination,
		Vehicle: bookingDomain.VehicleAssignment{
			VehicleID:   m.VehicleID,
			VehicleType: m.VehicleType,
			PlateNumber: m.PlateNumber,
		},
		VehicleHistory:       history,
		VehicleChangeRequest: changeRequest,
		DateNeeded:           m.DateNeeded,
		TimeNeeded:           m.TimeNeeded,
		Crew:                 crew,
		Status:               status,
		IsArchived:           m.IsArchived,
		DriverLocation:       location,
		DeliveryFee:          m.DeliveryFee,
		TotalDistance:        m.TotalDistance,
		ActivatedAt:          m.ActivatedAt,
		CompletedAt:          m.CompletedAt,
		CompletionProof:      m.CompletionProof,
		CompletionNotes:      m.CompletionNotes,
		CreatedBy:            m.CreatedBy,
		Version:              m.Version,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}
