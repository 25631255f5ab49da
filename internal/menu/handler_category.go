package menu

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/response"
)

// CategoryRequest is the body for POST/PUT /categories.
type CategoryRequest struct {
	RestaurantID uuid.UUID `json:"restaurantId" binding:"required"`
	Name         string    `json:"name" binding:"required"`
	Description  string    `json:"description"`
	SortOrder    int       `json:"sortOrder"`
	IsActive     *bool     `json:"isActive"`
}

// SubCategoryRequest is the body for POST/PUT /subcategories.
type SubCategoryRequest struct {
	CategoryID  uuid.UUID `json:"categoryId" binding:"required"`
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sortOrder"`
	IsActive    *bool     `json:"isActive"`
}

// ListCategories handles GET /categories?restaurantId=.
func (h *Handler) ListCategories(c *gin.Context) {
	ids, err := h.scopeIDs(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.repo.ListCategories(c.Request.Context(), ids, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetCategory handles GET /categories/:id.
func (h *Handler) GetCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := h.authorize(c, KindCategory, id); err != nil {
		response.Error(c, err)
		return
	}
	cat, err := h.repo.GetCategory(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cat)
}

// CreateCategory handles POST /categories.
func (h *Handler) CreateCategory(c *gin.Context) {
	var body CategoryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "restaurantId and name required")
		return
	}
	if _, err := h.guard.Restaurant(c.Request.Context(), auth.PrincipalFrom(c), body.RestaurantID); err != nil {
		response.Error(c, err)
		return
	}
	cat := &models.MenuCategory{
		RestaurantID: body.RestaurantID,
		Name:         strings.TrimSpace(body.Name),
		Description:  body.Description,
		SortOrder:    body.SortOrder,
		IsActive:     boolOr(body.IsActive, true),
	}
	if err := h.repo.CreateCategory(c.Request.Context(), cat); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cat)
}

// UpdateCategory handles PUT /categories/:id. Categories cannot move between restaurants.
func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body CategoryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "restaurantId and name required")
		return
	}
	if _, err := h.authorize(c, KindCategory, id); err != nil {
		response.Error(c, err)
		return
	}
	existing, err := h.repo.GetCategory(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	existing.Name = strings.TrimSpace(body.Name)
	existing.Description = body.Description
	existing.SortOrder = body.SortOrder
	existing.IsActive = boolOr(body.IsActive, existing.IsActive)
	if err := h.repo.UpdateCategory(c.Request.Context(), existing); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, existing)
}

// DeleteCategory handles DELETE /categories/:id, removing its subcategories and items.
func (h *Handler) DeleteCategory(c *gin.Context) { h.deleteOwned(c, KindCategory) }

// ListSubCategories handles GET /subcategories?categoryId=.
func (h *Handler) ListSubCategories(c *gin.Context) {
	catID, ok := optionalUUID(c, "categoryId")
	if !ok {
		return
	}
	var catIDs []uuid.UUID
	if catID != nil {
		if _, err := h.authorize(c, KindCategory, *catID); err != nil {
			response.Error(c, err)
			return
		}
		catIDs = []uuid.UUID{*catID}
	} else {
		ids, err := h.scopeIDs(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		if ids != nil {
			cats, err := h.repo.ListCategories(c.Request.Context(), ids, false)
			if err != nil {
				response.Error(c, err)
				return
			}
			catIDs = make([]uuid.UUID, 0, len(cats))
			for _, cat := range cats {
				catIDs = append(catIDs, cat.ID)
			}
		}
	}
	list, err := h.repo.ListSubCategories(c.Request.Context(), catIDs, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// CreateSubCategory handles POST /subcategories.
func (h *Handler) CreateSubCategory(c *gin.Context) {
	var body SubCategoryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "categoryId and name required")
		return
	}
	if _, err := h.authorize(c, KindCategory, body.CategoryID); err != nil {
		response.Error(c, err)
		return
	}
	sub := &models.SubCategory{
		CategoryID:  body.CategoryID,
		Name:        strings.TrimSpace(body.Name),
		Description: body.Description,
		SortOrder:   body.SortOrder,
		IsActive:    boolOr(body.IsActive, true),
	}
	if err := h.repo.CreateSubCategory(c.Request.Context(), sub); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// UpdateSubCategory handles PUT /subcategories/:id.
func (h *Handler) UpdateSubCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body SubCategoryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "categoryId and name required")
		return
	}
	if _, err := h.authorize(c, KindSubCategory, id); err != nil {
		response.Error(c, err)
		return
	}
	existing, err := h.repo.GetSubCategory(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	existing.Name = strings.TrimSpace(body.Name)
	existing.Description = body.Description
	existing.SortOrder = body.SortOrder
	existing.IsActive = boolOr(body.IsActive, existing.IsActive)
	if err := h.repo.UpdateSubCategory(c.Request.Context(), existing); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, existing)
}

// DeleteSubCategory handles DELETE /subcategories/:id, removing its items.
func (h *Handler) DeleteSubCategory(c *gin.Context) { h.deleteOwned(c, KindSubCategory) }
