package restaurants

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/response"
)

// Store is the restaurant persistence the handler needs.
type Store interface {
	Lookup
	List(ctx context.Context, f Filter) ([]models.Restaurant, error)
	Create(ctx context.Context, r *models.Restaurant) error
	Update(ctx context.Context, r *models.Restaurant) error
}

// Deleter removes a restaurant together with its menu, modifier groups and orders.
type Deleter interface {
	DeleteRestaurant(ctx context.Context, id uuid.UUID) error
}

// RestaurantRequest is the body for POST/PUT /restaurants.
type RestaurantRequest struct {
	PropertyID  uuid.UUID `json:"propertyId" binding:"required"`
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	IsActive    *bool     `json:"isActive"`
}

// Handler handles restaurant HTTP endpoints.
type Handler struct {
	repo    Store
	guard   *Guard
	deleter Deleter
	logger  *zap.Logger
}

// NewHandler creates a restaurants handler.
func NewHandler(repo Store, deleter Deleter, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, guard: NewGuard(repo), deleter: deleter, logger: logger}
}

// List handles GET /restaurants, optionally filtered by ?propertyId=.
func (h *Handler) List(c *gin.Context) {
	f := Scope(auth.PrincipalFrom(c))
	if s := c.Query("propertyId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid propertyId")
			return
		}
		if f.PropertyID != nil && *f.PropertyID != id {
			response.OK(c, []models.Restaurant{})
			return
		}
		f.PropertyID = &id
	}
	list, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /restaurants/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid restaurant id")
		return
	}
	rest, err := h.guard.Restaurant(c.Request.Context(), auth.PrincipalFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rest)
}

// Create handles POST /restaurants.
func (h *Handler) Create(c *gin.Context) {
	var body RestaurantRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "propertyId and name required")
		return
	}
	p := auth.PrincipalFrom(c)
	if !p.User.CanAccessProperty(body.PropertyID) {
		response.Error(c, apperr.Forbidden("not authorized for this property"))
		return
	}
	rest := fromRequest(body)
	rest.IsActive = body.IsActive == nil || *body.IsActive
	if rest.Name == "" {
		response.BadRequest(c, "name required")
		return
	}
	if err := h.repo.Create(c.Request.Context(), rest); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("restaurant created", zap.String("restaurant_id", rest.ID.String()))
	response.Created(c, rest)
}

// Update handles PUT /restaurants/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid restaurant id")
		return
	}
	p := auth.PrincipalFrom(c)
	existing, err := h.guard.Restaurant(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	var body RestaurantRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "propertyId and name required")
		return
	}
	if !p.User.CanAccessProperty(body.PropertyID) {
		response.Error(c, apperr.Forbidden("not authorized for this property"))
		return
	}
	rest := fromRequest(body)
	rest.ID = id
	rest.IsActive = existing.IsActive
	if body.IsActive != nil {
		rest.IsActive = *body.IsActive
	}
	if err := h.repo.Update(c.Request.Context(), rest); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rest)
}

// Delete handles DELETE /restaurants/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid restaurant id")
		return
	}
	if _, err := h.guard.Restaurant(c.Request.Context(), auth.PrincipalFrom(c), id); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.deleter.DeleteRestaurant(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("restaurant deleted", zap.String("restaurant_id", id.String()))
	response.OK(c, gin.H{"deleted": true})
}

func fromRequest(body RestaurantRequest) *models.Restaurant {
	return &models.Restaurant{
		PropertyID:  body.PropertyID,
		Name:        strings.TrimSpace(body.Name),
		Description: body.Description,
		Location:    body.Location,
	}
}
