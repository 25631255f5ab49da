package menu

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/response"
	"github.com/menuportal/backend/pkg/utils"
)

// ModifierItemRequest is one option of a modifier group.
type ModifierItemRequest struct {
	Name        string  `json:"name" binding:"required"`
	Price       float64 `json:"price" binding:"gte=0"`
	IsAvailable *bool   `json:"isAvailable"`
	SortOrder   int     `json:"sortOrder"`
}

// ModifierGroupRequest is the body for POST/PUT /modifier-groups. Items are only read on create.
type ModifierGroupRequest struct {
	RestaurantID uuid.UUID             `json:"restaurantId" binding:"required"`
	Name         string                `json:"name" binding:"required"`
	Code         string                `json:"code"`
	MinSelection int                   `json:"minSelection" binding:"gte=0"`
	MaxSelection int                   `json:"maxSelection" binding:"gtefield=MinSelection"`
	Items        []ModifierItemRequest `json:"items" binding:"dive"`
}

// ListModifierGroups handles GET /modifier-groups?restaurantId=.
func (h *Handler) ListModifierGroups(c *gin.Context) {
	ids, err := h.scopeIDs(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.repo.ListModifierGroups(c.Request.Context(), ids)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetModifierGroup handles GET /modifier-groups/:id.
func (h *Handler) GetModifierGroup(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := h.authorize(c, KindModifierGroup, id); err != nil {
		response.Error(c, err)
		return
	}
	g, err := h.repo.GetModifierGroup(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, g)
}

// CreateModifierGroup handles POST /modifier-groups.
func (h *Handler) CreateModifierGroup(c *gin.Context) {
	var body ModifierGroupRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if _, err := h.guard.Restaurant(c.Request.Context(), auth.PrincipalFrom(c), body.RestaurantID); err != nil {
		response.Error(c, err)
		return
	}
	g := &models.ModifierGroup{
		RestaurantID: body.RestaurantID,
		Name:         strings.TrimSpace(body.Name),
		Code:         strings.TrimSpace(body.Code),
		MinSelection: body.MinSelection,
		MaxSelection: body.MaxSelection,
	}
	for i, it := range body.Items {
		mi := modifierItemFromRequest(it)
		if mi.SortOrder == 0 {
			mi.SortOrder = i
		}
		g.Items = append(g.Items, mi)
	}
	if err := h.repo.CreateModifierGroup(c.Request.Context(), g); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, g)
}

// UpdateModifierGroup handles PUT /modifier-groups/:id.
func (h *Handler) UpdateModifierGroup(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body ModifierGroupRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if _, err := h.authorize(c, KindModifierGroup, id); err != nil {
		response.Error(c, err)
		return
	}
	g := &models.ModifierGroup{
		ID:           id,
		Name:         strings.TrimSpace(body.Name),
		Code:         strings.TrimSpace(body.Code),
		MinSelection: body.MinSelection,
		MaxSelection: body.MaxSelection,
	}
	if err := h.repo.UpdateModifierGroup(c.Request.Context(), g); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, g)
}

// DeleteModifierGroup handles DELETE /modifier-groups/:id, removing its items and item links.
func (h *Handler) DeleteModifierGroup(c *gin.Context) { h.deleteOwned(c, KindModifierGroup) }

// CreateModifierItem handles POST /modifier-groups/:id/items.
func (h *Handler) CreateModifierItem(c *gin.Context) {
	groupID, ok := parseID(c)
	if !ok {
		return
	}
	var body ModifierItemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if _, err := h.authorize(c, KindModifierGroup, groupID); err != nil {
		response.Error(c, err)
		return
	}
	mi := modifierItemFromRequest(body)
	mi.GroupID = groupID
	if err := h.repo.CreateModifierItem(c.Request.Context(), &mi); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mi)
}

// UpdateModifierItem handles PUT /modifier-items/:id.
func (h *Handler) UpdateModifierItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body ModifierItemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if _, err := h.authorize(c, KindModifierItem, id); err != nil {
		response.Error(c, err)
		return
	}
	mi := modifierItemFromRequest(body)
	mi.ID = id
	if err := h.repo.UpdateModifierItem(c.Request.Context(), &mi); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mi)
}

// DeleteModifierItem handles DELETE /modifier-items/:id.
func (h *Handler) DeleteModifierItem(c *gin.Context) { h.deleteOwned(c, KindModifierItem) }

func modifierItemFromRequest(body ModifierItemRequest) models.ModifierItem {
	return models.ModifierItem{
		Name:        strings.TrimSpace(body.Name),
		Price:       utils.RoundMoney(body.Price),
		IsAvailable: boolOr(body.IsAvailable, true),
		SortOrder:   body.SortOrder,
	}
}
