package menu

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/response"
	"github.com/menuportal/backend/pkg/utils"
)

// MenuItemRequest is the body for POST/PUT /menu-items.
type MenuItemRequest struct {
	CategoryID       uuid.UUID         `json:"categoryId" binding:"required"`
	SubCategoryID    *uuid.UUID        `json:"subCategoryId"`
	Name             string            `json:"name" binding:"required"`
	Description      string            `json:"description"`
	Price            float64           `json:"price" binding:"gte=0"`
	Currency         string            `json:"currency" binding:"omitempty,len=3"`
	IsAvailable      *bool             `json:"isAvailable"`
	SoldOut          bool              `json:"soldOut"`
	ItemCode         string            `json:"itemCode"`
	ImageURL         string            `json:"imageUrl" binding:"omitempty,url"`
	SortOrder        int               `json:"sortOrder"`
	AllergenIDs      []uuid.UUID       `json:"allergenIds"`
	ModifierGroupIDs []uuid.UUID       `json:"modifierGroupIds"`
	Attributes       map[string]string `json:"attributes"`
}

// AvailabilityRequest is the body for PATCH /menu-items/:id/availability.
type AvailabilityRequest struct {
	IsAvailable *bool `json:"isAvailable"`
	SoldOut     *bool `json:"soldOut"`
}

// ListItems handles GET /menu-items?restaurantId=&categoryId=&subCategoryId=.
func (h *Handler) ListItems(c *gin.Context) {
	catID, ok := optionalUUID(c, "categoryId")
	if !ok {
		return
	}
	subID, ok := optionalUUID(c, "subCategoryId")
	if !ok {
		return
	}
	ids, err := h.scopeIDs(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.repo.ListItems(c.Request.Context(), ItemFilter{RestaurantIDs: ids, CategoryID: catID, SubCategoryID: subID})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetItem handles GET /menu-items/:id.
func (h *Handler) GetItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := h.authorize(c, KindMenuItem, id); err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.repo.GetItem(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// CreateItem handles POST /menu-items.
func (h *Handler) CreateItem(c *gin.Context) {
	var body MenuItemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	item := itemFromRequest(body)
	if err := h.validateItem(c, item); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.CreateItem(c.Request.Context(), item); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateItem handles PUT /menu-items/:id.
func (h *Handler) UpdateItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body MenuItemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	prevRestaurant, err := h.authorize(c, KindMenuItem, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	item := itemFromRequest(body)
	item.ID = id
	if err := h.validateItem(c, item); err != nil {
		response.Error(c, err)
		return
	}
	if rid, _ := h.repo.OwnerRestaurant(c.Request.Context(), KindCategory, item.CategoryID); rid != prevRestaurant {
		response.Error(c, apperr.Validation("menu items cannot move between restaurants"))
		return
	}
	if err := h.repo.UpdateItem(c.Request.Context(), item); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// SetAvailability handles PATCH /menu-items/:id/availability.
func (h *Handler) SetAvailability(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body AvailabilityRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if _, err := h.authorize(c, KindMenuItem, id); err != nil {
		response.Error(c, err)
		return
	}
	existing, err := h.repo.GetItem(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.repo.SetAvailability(c.Request.Context(), id,
		boolOr(body.IsAvailable, existing.IsAvailable), boolOr(body.SoldOut, existing.SoldOut))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// DeleteItem handles DELETE /menu-items/:id.
func (h *Handler) DeleteItem(c *gin.Context) { h.deleteOwned(c, KindMenuItem) }

// validateItem checks the caller owns the category and that every reference is consistent with it.
func (h *Handler) validateItem(c *gin.Context, item *models.MenuItem) error {
	ctx := c.Request.Context()
	rid, err := h.authorize(c, KindCategory, item.CategoryID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.Validation("category does not exist")
		}
		return err
	}
	refs, err := h.loadRefs(ctx, rid, item)
	if err != nil {
		return err
	}
	return checkItemRefs(item, rid, refs)
}

type itemRefs struct {
	sub        *models.SubCategory
	groupOwner map[uuid.UUID]uuid.UUID
	attributes map[uuid.UUID]bool
}

func (h *Handler) loadRefs(ctx context.Context, restaurantID uuid.UUID, item *models.MenuItem) (itemRefs, error) {
	refs := itemRefs{groupOwner: map[uuid.UUID]uuid.UUID{}}
	if item.SubCategoryID != nil {
		sub, err := h.repo.GetSubCategory(ctx, *item.SubCategoryID)
		if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			return refs, err
		}
		refs.sub = sub
	}
	for _, gid := range item.ModifierGroupIDs {
		owner, err := h.repo.OwnerRestaurant(ctx, KindModifierGroup, gid)
		if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			return refs, err
		}
		if err == nil {
			refs.groupOwner[gid] = owner
		}
	}
	if len(item.Attributes) > 0 {
		ids, err := h.repo.AttributeIDs(ctx)
		if err != nil {
			return refs, err
		}
		refs.attributes = ids
	}
	return refs, nil
}

func checkItemRefs(item *models.MenuItem, restaurantID uuid.UUID, refs itemRefs) error {
	if item.SubCategoryID != nil {
		if refs.sub == nil || refs.sub.CategoryID != item.CategoryID {
			return apperr.Validation("subCategoryId must reference a subcategory of the item's category")
		}
	}
	for _, gid := range item.ModifierGroupIDs {
		if owner, ok := refs.groupOwner[gid]; !ok || owner != restaurantID {
			return apperr.Validation("modifier group " + gid.String() + " does not belong to the item's restaurant")
		}
	}
	for key := range item.Attributes {
		id, err := uuid.Parse(key)
		if err != nil || !refs.attributes[id] {
			return apperr.Validation("unknown attribute " + key)
		}
	}
	return nil
}

func itemFromRequest(body MenuItemRequest) *models.MenuItem {
	return &models.MenuItem{
		CategoryID:       body.CategoryID,
		SubCategoryID:    body.SubCategoryID,
		Name:             strings.TrimSpace(body.Name),
		Description:      body.Description,
		Price:            utils.RoundMoney(body.Price),
		Currency:         strings.ToUpper(body.Currency),
		IsAvailable:      boolOr(body.IsAvailable, true),
		SoldOut:          body.SoldOut,
		ItemCode:         strings.TrimSpace(body.ItemCode),
		ImageURL:         body.ImageURL,
		SortOrder:        body.SortOrder,
		AllergenIDs:      dedupe(body.AllergenIDs),
		ModifierGroupIDs: dedupe(body.ModifierGroupIDs),
		Attributes:       body.Attributes,
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
