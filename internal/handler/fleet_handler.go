package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/haulwise/service-dispatch/internal/application"
	"github.com/haulwise/service-dispatch/pkg/auth"
	"github.com/haulwise/service-dispatch/pkg/middleware"
	"github.com/haulwise/service-dispatch/pkg/response"
)

// FleetService manages vehicles and employees.
type FleetService interface {
	RegisterVehicle(ctx context.Context, req application.RegisterVehicleRequest) (*application.VehicleDTO, error)
	ListVehicles(ctx context.Context, status string) ([]application.VehicleDTO, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (*application.VehicleDTO, error)
	RegisterEmployee(ctx context.Context, req application.RegisterEmployeeRequest) (*application.EmployeeDTO, error)
	ListEmployees(ctx context.Context, status string) ([]application.EmployeeDTO, error)
	GetEmployee(ctx context.Context, id uuid.UUID) (*application.EmployeeDTO, error)
}

// FleetHandler handles HTTP requests for the vehicle and employee registry.
type FleetHandler struct {
	service FleetService
}

// NewFleetHandler creates a new FleetHandler.
func NewFleetHandler(service FleetService) *FleetHandler {
	return &FleetHandler{service: service}
}

// RegisterRoutes registers fleet routes. Reads are open to dispatchers,
// registration is admin only.
func (h *FleetHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	readRole := middleware.RequireRole(auth.RoleDispatcher, auth.RoleAdmin)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	fleet := r.Group("/api/v1/fleet")
	fleet.Use(authMW)
	{
		fleet.GET("/vehicles", readRole, h.ListVehicles)
		fleet.GET("/vehicles/:id", readRole, h.GetVehicle)
		fleet.POST("/vehicles", adminRole, h.RegisterVehicle)
		fleet.GET("/employees", readRole, h.ListEmployees)
		fleet.GET("/employees/:id", readRole, h.GetEmployee)
		fleet.POST("/employees", adminRole, h.RegisterEmployee)
	}
}

// RegisterVehicle handles POST /api/v1/fleet/vehicles.
func (h *FleetHandler) RegisterVehicle(c *gin.Context) {
	var req application.RegisterVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.RegisterVehicle(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListVehicles handles GET /api/v1/fleet/vehicles?status=.
func (h *FleetHandler) ListVehicles(c *gin.Context) {
	result, err := h.service.ListVehicles(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetVehicle handles GET /api/v1/fleet/vehicles/:id.
func (h *FleetHandler) GetVehicle(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid vehicle ID")
	if !ok {
		return
	}

	result, err := h.service.GetVehicle(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RegisterEmployee handles POST /api/v1/fleet/employees.
func (h *FleetHandler) RegisterEmployee(c *gin.Context) {
	var req application.RegisterEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.RegisterEmployee(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListEmployees handles GET /api/v1/fleet/employees?status=.
func (h *FleetHandler) ListEmployees(c *gin.Context) {
	result, err := h.service.ListEmployees(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetEmployee handles GET /api/v1/fleet/employees/:id.
func (h *FleetHandler) GetEmployee(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid employee ID")
	if !ok {
		return
	}

	result, err := h.service.GetEmployee(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
