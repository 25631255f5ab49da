package menu

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/internal/restaurants"
	"github.com/menuportal/backend/pkg/response"
)

// RestaurantDirectory lists and resolves restaurants for scope checks.
type RestaurantDirectory = restaurants.Directory

// Handler serves the menu entity endpoints and the public menu tree.
type Handler struct {
	repo        *Repository
	cascade     *Cascader
	restaurants RestaurantDirectory
	guard       *restaurants.Guard
	logger      *zap.Logger
}

// NewHandler creates a menu handler.
func NewHandler(repo *Repository, cascade *Cascader, dir RestaurantDirectory, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, cascade: cascade, restaurants: dir, guard: restaurants.NewGuard(dir), logger: logger}
}

func (h *Handler) scopeIDs(c *gin.Context) ([]uuid.UUID, error) {
	return restaurants.ScopeIDs(c.Request.Context(), h.restaurants, auth.PrincipalFrom(c), c.Query("restaurantId"))
}

// authorize checks the caller may act on the restaurant owning the entity.
func (h *Handler) authorize(c *gin.Context, kind Kind, id uuid.UUID) (uuid.UUID, error) {
	rid, err := h.repo.OwnerRestaurant(c.Request.Context(), kind, id)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := h.guard.Restaurant(c.Request.Context(), auth.PrincipalFrom(c), rid); err != nil {
		return uuid.Nil, err
	}
	return rid, nil
}

func (h *Handler) deleteOwned(c *gin.Context, kind Kind) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := h.authorize(c, kind, id); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.cascade.Delete(c.Request.Context(), kind, id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	s := c.Query(key)
	if s == "" {
		return nil, true
	}
	id, err := uuid.Parse(s)
	if err != nil {
		response.BadRequest(c, "invalid "+key)
		return nil, false
	}
	return &id, true
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// PublicMenu handles GET /public/menu/:restaurantId. Only active categories and subcategories and
// available items are included; sold-out items stay visible with their flag.
func (h *Handler) PublicMenu(c *gin.Context) {
	id, err := uuid.Parse(c.Param("restaurantId"))
	if err != nil {
		response.BadRequest(c, "invalid restaurant id")
		return
	}
	ctx := c.Request.Context()
	rest, err := h.restaurants.GetByID(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !rest.IsActive {
		response.Error(c, apperr.NotFound("restaurant not found"))
		return
	}
	ids := []uuid.UUID{id}
	cats, err := h.repo.ListCategories(ctx, ids, true)
	if err != nil {
		response.Error(c, err)
		return
	}
	catIDs := make([]uuid.UUID, 0, len(cats))
	for _, cat := range cats {
		catIDs = append(catIDs, cat.ID)
	}
	subs, err := h.repo.ListSubCategories(ctx, catIDs, true)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.repo.ListItems(ctx, ItemFilter{RestaurantIDs: ids, AvailableOnly: true})
	if err != nil {
		response.Error(c, err)
		return
	}
	groups, err := h.repo.ListModifierGroups(ctx, ids)
	if err != nil {
		response.Error(c, err)
		return
	}
	allergens, err := h.repo.ListAllergens(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, PublicMenu{
		Restaurant:     rest,
		Categories:     BuildTree(cats, subs, items),
		ModifierGroups: groups,
		Allergens:      allergens,
		GeneratedAt:    time.Now().UTC(),
	})
}
