package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/haulwise/service-dispatch/internal/application"
	proofDomain "github.com/haulwise/service-dispatch/internal/domain/proof"
	"github.com/haulwise/service-dispatch/pkg/auth"
	"github.com/haulwise/service-dispatch/pkg/middleware"
	"github.com/haulwise/service-dispatch/pkg/response"
)

// ProofService serves stored proof photos.
type ProofService interface {
	ListProofs(ctx context.Context, bookingID uuid.UUID) ([]application.ProofDTO, error)
	GetProof(ctx context.Context, proofID uuid.UUID) (*proofDomain.Proof, error)
}

// ProofHandler handles HTTP requests for proof-of-delivery photos.
type ProofHandler struct {
	service ProofService
}

// NewProofHandler creates a new ProofHandler.
func NewProofHandler(service ProofService) *ProofHandler {
	return &ProofHandler{service: service}
}

// RegisterRoutes registers proof routes.
func (h *ProofHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	dispatchRole := middleware.RequireRole(auth.RoleDispatcher, auth.RoleAdmin)

	r.GET("/api/v1/bookings/:id/proofs", authMW, dispatchRole, h.ListProofs)
	r.GET("/api/v1/proofs/:proofId", authMW, dispatchRole, h.GetProof)
}

// ListProofs handles GET /api/v1/bookings/:id/proofs.
func (h *ProofHandler) ListProofs(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	result, err := h.service.ListProofs(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetProof handles GET /api/v1/proofs/:proofId and streams the image bytes.
func (h *ProofHandler) GetProof(c *gin.Context) {
	proofID, ok := uuidParam(c, "proofId", "invalid proof ID")
	if !ok {
		return
	}

	p, err := h.service.GetProof(c.Request.Context(), proofID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=86400")
	c.Data(http.StatusOK, p.ContentType(), p.Data())
}
