// Package health exposes liveness and readiness endpoints.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Checker is an optional dependency probed by the readiness endpoint.
type Checker interface {
	Ping(ctx context.Context) error
}

// Handler serves /health and /ready.
type Handler struct {
	db      *gorm.DB
	service string
	checks  map[string]Checker
}

// NewHandler creates a Handler; extra named checks are added with AddCheck.
func NewHandler(db *gorm.DB, service string) *Handler {
	return &Handler{db: db, service: service, checks: map[string]Checker{}}
}

// AddCheck registers an additional readiness dependency.
func (h *Handler) AddCheck(name string, c Checker) {
	h.checks[name] = c
}

// RegisterRoutes mounts the probes on the engine root.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Live)
	r.GET("/ready", h.Ready)
}

// Live always reports ok while the process is serving.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

// Ready pings the database and every registered dependency.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	results := gin.H{}
	healthy := true

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	results["database"] = statusOf(err)
	healthy = healthy && err == nil

	for name, check := range h.checks {
		err := check.Ping(ctx)
		results[name] = statusOf(err)
		healthy = healthy && err == nil
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"service": h.service, "checks": results})
}

func statusOf(err error) string {
	if err != nil {
		return "down: " + err.Error()
	}
	return "up"
}
