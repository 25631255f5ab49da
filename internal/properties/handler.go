package properties

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/response"
)

// Store is the property persistence the handler needs.
type Store interface {
	List(ctx context.Context, only *uuid.UUID) ([]models.Property, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	Create(ctx context.Context, p *models.Property) error
	Update(ctx context.Context, p *models.Property) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PropertyRequest is the body for POST/PUT /properties.
type PropertyRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

// Handler handles property HTTP endpoints.
type Handler struct {
	repo Store
}

// NewHandler creates a properties handler.
func NewHandler(repo Store) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /properties. Callers scoped to a property only see their own.
func (h *Handler) List(c *gin.Context) {
	var only *uuid.UUID
	if p := auth.PrincipalFrom(c); p != nil && p.User != nil && p.User.Role.Scoped() {
		if p.User.PropertyID == nil {
			response.OK(c, []models.Property{})
			return
		}
		only = p.User.PropertyID
	}
	list, err := h.repo.List(c.Request.Context(), only)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /properties/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid property id")
		return
	}
	prop, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, prop)
}

// Create handles POST /properties.
func (h *Handler) Create(c *gin.Context) {
	var body PropertyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	prop := &models.Property{Name: strings.TrimSpace(body.Name), Address: strings.TrimSpace(body.Address)}
	if prop.Name == "" {
		response.BadRequest(c, "name required")
		return
	}
	if err := h.repo.Create(c.Request.Context(), prop); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, prop)
}

// Update handles PUT /properties/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid property id")
		return
	}
	if !canManage(auth.PrincipalFrom(c), id) {
		response.Error(c, apperr.Forbidden("not authorized for this property"))
		return
	}
	var body PropertyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	prop := &models.Property{ID: id, Name: strings.TrimSpace(body.Name), Address: strings.TrimSpace(body.Address)}
	if err := h.repo.Update(c.Request.Context(), prop); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, prop)
}

// Delete handles DELETE /properties/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid property id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

func canManage(p *auth.Principal, propertyID uuid.UUID) bool {
	return p != nil && p.User != nil && p.User.CanAccessProperty(propertyID)
}
