package apitokens

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/pkg/response"
)

// CreateRequest is the body for POST /api-tokens.
type CreateRequest struct {
	Name          string     `json:"name" binding:"required"`
	RestaurantID  *uuid.UUID `json:"restaurantId"`
	PropertyID    *uuid.UUID `json:"propertyId"`
	ExpiresInDays *int       `json:"expiresInDays"`
}

// Handler serves the SuperAdmin token management endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an API token handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /api-tokens.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /api-tokens. The raw token appears only in this response.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	var createdBy *uuid.UUID
	if p := auth.PrincipalFrom(c); p != nil && p.User != nil {
		id := p.User.ID
		createdBy = &id
	}
	t, err := h.svc.Generate(c.Request.Context(), CreateInput{
		Name: req.Name, RestaurantID: req.RestaurantID, PropertyID: req.PropertyID, ExpiresInDays: req.ExpiresInDays,
	}, createdBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, t)
}

// Revoke handles PATCH /api-tokens/:id/revoke.
func (h *Handler) Revoke(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid token id")
		return
	}
	t, err := h.svc.Revoke(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// Activate handles PATCH /api-tokens/:id/activate.
func (h *Handler) Activate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid token id")
		return
	}
	t, err := h.svc.Activate(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// Delete handles DELETE /api-tokens/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid token id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
