package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/haulwise/service-dispatch/internal/application"
	bookingDomain "github.com/haulwise/service-dispatch/internal/domain/booking"
	"github.com/haulwise/service-dispatch/pkg/auth"
	"github.com/haulwise/service-dispatch/pkg/domain"
	"github.com/haulwise/service-dispatch/pkg/middleware"
	"github.com/haulwise/service-dispatch/pkg/response"
)

// BookingService is the dispatcher-facing booking API.
type BookingService interface {
	CreateBooking(ctx context.Context, createdBy uuid.UUID, req application.BookingRequest) (*application.CreateBookingResult, error)
	UpdateBooking(ctx context.Context, bookingID uuid.UUID, req application.BookingRequest) (*application.BookingDTO, error)
	UpdateStatus(ctx context.Context, actor, bookingID uuid.UUID, req application.UpdateStatusRequest) (*application.StatusUpdateResult, error)
	ConfirmReady(ctx context.Context, actor, bookingID uuid.UUID) (*application.StatusUpdateResult, error)
	ArchiveBooking(ctx context.Context, bookingID uuid.UUID) (*application.BookingDTO, error)
	RestoreBooking(ctx context.Context, bookingID uuid.UUID) (*application.BookingDTO, error)
	DeleteBooking(ctx context.Context, bookingID uuid.UUID) error
	ReplaceVehicle(ctx context.Context, bookingID uuid.UUID, req application.ReplaceVehicleRequest) (*application.BookingDTO, error)
	CheckScheduleConflicts(ctx context.Context, req application.ConflictCheckRequest) (*bookingDomain.ConflictReport, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*application.BookingDTO, error)
	GetByReservationID(ctx context.Context, reservationID string) (*application.BookingDTO, error)
	ListBookings(ctx context.Context, archived bool, status string, page, limit int) (*domain.PaginatedResult[application.BookingDTO], error)
	GetBookingStats(ctx context.Context) (*application.BookingStatsDTO, error)
}

// BookingHandler handles dispatcher HTTP requests for booking operations.
type BookingHandler struct {
	service BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all dispatcher booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	dispatchRole := middleware.RequireRole(auth.RoleDispatcher, auth.RoleAdmin)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW, dispatchRole)
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.POST("/conflicts", h.CheckConflicts)
		bookings.GET("/reservation/:reservationId", h.GetByReservationID)
		bookings.GET("/:id", h.GetBooking)
		bookings.PUT("/:id", h.UpdateBooking)
		bookings.DELETE("/:id", h.DeleteBooking)
		bookings.PATCH("/:id/status", h.UpdateStatus)
		bookings.POST("/:id/confirm-ready", h.ConfirmReady)
		bookings.POST("/:id/archive", h.ArchiveBooking)
		bookings.POST("/:id/restore", h.RestoreBooking)
		bookings.PUT("/:id/vehicle", h.ReplaceVehicle)
	}
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListBookings handles GET /api/v1/bookings?archived=&status=.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)
	archived, _ := strconv.ParseBool(c.DefaultQuery("archived", "false"))

	result, err := h.service.ListBookings(c.Request.Context(), archived, c.Query("status"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetByReservationID handles GET /api/v1/bookings/reservation/:reservationId.
func (h *BookingHandler) GetByReservationID(c *gin.Context) {
	result, err := h.service.GetByReservationID(c.Request.Context(), c.Param("reservationId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateBooking handles PUT /api/v1/bookings/:id.
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var req application.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.UpdateBooking(c.Request.Context(), bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateStatus handles PATCH /api/v1/bookings/:id/status.
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.UpdateStatus(c.Request.Context(), userID, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ConfirmReady handles POST /api/v1/bookings/:id/confirm-ready.
func (h *BookingHandler) ConfirmReady(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	result, err := h.service.ConfirmReady(c.Request.Context(), userID, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ArchiveBooking handles POST /api/v1/bookings/:id/archive.
func (h *BookingHandler) ArchiveBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	result, err := h.service.ArchiveBooking(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RestoreBooking handles POST /api/v1/bookings/:id/restore.
func (h *BookingHandler) RestoreBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	result, err := h.service.RestoreBooking(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteBooking handles DELETE /api/v1/bookings/:id.
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	if err := h.service.DeleteBooking(c.Request.Context(), bookingID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ReplaceVehicle handles PUT /api/v1/bookings/:id/vehicle.
func (h *BookingHandler) ReplaceVehicle(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var req application.ReplaceVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.ReplaceVehicle(c.Request.Context(), bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CheckConflicts handles POST /api/v1/bookings/conflicts.
func (h *BookingHandler) CheckConflicts(c *gin.Context) {
	var req application.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	report, err := h.service.CheckScheduleConflicts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"hasConflicts": report.HasConflicts(),
		"conflicts":    report,
	})
}

// bookingIDParam parses the :id path parameter, writing a 400 when malformed.
func bookingIDParam(c *gin.Context) (uuid.UUID, bool) {
	return uuidParam(c, "id", "invalid booking ID")
}

func uuidParam(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
