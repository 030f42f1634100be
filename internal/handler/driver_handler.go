package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/haulwise/service-dispatch/internal/application"
	"github.com/haulwise/service-dispatch/pkg/auth"
	"github.com/haulwise/service-dispatch/pkg/domain"
	"github.com/haulwise/service-dispatch/pkg/middleware"
	"github.com/haulwise/service-dispatch/pkg/response"
)

// DriverService is the crew-facing booking API.
type DriverService interface {
	ListAssignedBookings(ctx context.Context, employeeID uuid.UUID, page, limit int) (*domain.PaginatedResult[application.BookingDTO], error)
	GetAssignedBooking(ctx context.Context, employeeID, bookingID uuid.UUID) (*application.BookingDTO, error)
	UpdateStatus(ctx context.Context, employeeID, bookingID uuid.UUID, req application.DriverStatusRequest) (*application.StatusUpdateResult, error)
	DeliverDestination(ctx context.Context, employeeID, bookingID uuid.UUID, index int, req application.DeliverDestinationRequest) (*application.DeliveryResult, error)
	SetActiveDestination(ctx context.Context, employeeID, bookingID uuid.UUID, index int) (*application.BookingDTO, error)
	CompleteTrip(ctx context.Context, employeeID, bookingID uuid.UUID, req application.CompleteTripRequest) (*application.StatusUpdateResult, error)
	RequestVehicleChange(ctx context.Context, employeeID, bookingID uuid.UUID, req application.VehicleChangeRequestBody) (*application.BookingDTO, error)
	UpdateLocation(ctx context.Context, driverID, bookingID uuid.UUID, req application.LocationRequest) (*application.BookingDTO, error)
}

// DriverHandler handles HTTP requests from drivers and helpers.
type DriverHandler struct {
	service DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(service DriverService) *DriverHandler {
	return &DriverHandler{service: service}
}

// RegisterRoutes registers driver routes. The caller's user ID is the employee ID.
func (h *DriverHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	driverRole := middleware.RequireRole(auth.RoleDriver)

	driver := r.Group("/api/v1/driver/bookings")
	driver.Use(authMW, driverRole)
	{
		driver.GET("", h.ListAssigned)
		driver.GET("/:id", h.GetAssigned)
		driver.PATCH("/:id/status", h.UpdateStatus)
		driver.POST("/:id/destinations/:index/deliver", h.DeliverDestination)
		driver.PUT("/:id/active-destination", h.SetActiveDestination)
		driver.POST("/:id/complete", h.CompleteTrip)
		driver.POST("/:id/location", h.UpdateLocation)
		driver.POST("/:id/vehicle-change-request", h.RequestVehicleChange)
	}
}

// ListAssigned handles GET /api/v1/driver/bookings.
func (h *DriverHandler) ListAssigned(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	page, limit := parsePagination(c)

	result, err := h.service.ListAssignedBookings(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetAssigned handles GET /api/v1/driver/bookings/:id.
func (h *DriverHandler) GetAssigned(c *gin.Context) {
	userID, bookingID, ok := driverParams(c)
	if !ok {
		return
	}

	result, err := h.service.GetAssignedBooking(c.Request.Context(), userID, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateStatus handles PATCH /api/v1/driver/bookings/:id/status.
func (h *DriverHandler) UpdateStatus(c *gin.Context) {
	userID, bookingID, ok := driverParams(c)
	if !ok {
		return
	}

	var req application.DriverStatusRequest
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

// DeliverDestination handles POST /api/v1/driver/bookings/:id/destinations/:index/deliver.
func (h *DriverHandler) DeliverDestination(c *gin.Context) {
	userID, bookingID, ok := driverParams(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.BadRequest(c, "invalid destination index")
		return
	}

	var req application.DeliverDestinationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BindError(c, err)
			return
		}
	}

	result, err := h.service.DeliverDestination(c.Request.Context(), userID, bookingID, index, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// SetActiveDestination handles PUT /api/v1/driver/bookings/:id/active-destination.
func (h *DriverHandler) SetActiveDestination(c *gin.Context) {
	userID, bookingID, ok := driverParams(c)
	if !ok {
		return
	}

	var body struct {
		DestinationIndex *int `json:"destinationIndex" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.SetActiveDestination(c.Request.Context(), userID, bookingID, *body.DestinationIndex)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CompleteTrip handles POST /api/v1/driver/bookings/:id/complete.
func (h *DriverHandler) CompleteTrip(c *gin.Context) {
	userID, bookingID, ok := driverParams(c)
	if !ok {
		return
	}

	var req application.CompleteTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.CompleteTrip(c.Request.Context(), userID, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateLocation handles POST /api/v1/driver/bookings/:id/location.
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	userID, bookingID, ok := driverParams(c)
	if !ok {
		return
	}

	var req application.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.UpdateLocation(c.Request.Context(), userID, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"driverLocation": result.DriverLocation})
}

// RequestVehicleChange handles POST /api/v1/driver/bookings/:id/vehicle-change-request.
func (h *DriverHandler) RequestVehicleChange(c *gin.Context) {
	userID, bookingID, ok := driverParams(c)
	if !ok {
		return
	}

	var req application.VehicleChangeRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.RequestVehicleChange(c.Request.Context(), userID, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

func driverParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, bookingID, true
}
