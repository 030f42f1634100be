package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haulwise/service-dispatch/internal/application"
	"github.com/haulwise/service-dispatch/pkg/auth"
	"github.com/haulwise/service-dispatch/pkg/middleware"
	"github.com/haulwise/service-dispatch/pkg/response"
)

// StatsProvider reports booking counts.
type StatsProvider interface {
	GetBookingStats(ctx context.Context) (*application.BookingStatsDTO, error)
}

// SweepRunner triggers the scheduled-booking sweep on demand.
type SweepRunner interface {
	RunOnce(ctx context.Context) (int, bool)
}

// AdminHandler handles admin HTTP requests.
type AdminHandler struct {
	stats   StatsProvider
	sweeper SweepRunner
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(stats StatsProvider, sweeper SweepRunner) *AdminHandler {
	return &AdminHandler{stats: stats, sweeper: sweeper}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/stats/bookings", h.BookingStats)
		admin.POST("/sweep", h.RunSweep)
	}
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminHandler) BookingStats(c *gin.Context) {
	stats, err := h.stats.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// RunSweep handles POST /api/v1/admin/sweep.
func (h *AdminHandler) RunSweep(c *gin.Context) {
	activated, ran := h.sweeper.RunOnce(c.Request.Context())
	if !ran {
		c.JSON(http.StatusAccepted, response.Envelope{
			Success: true,
			Data:    gin.H{"ran": false, "message": "a sweep is already in progress"},
		})
		return
	}

	response.Success(c, gin.H{"ran": true, "activated": activated})
}
