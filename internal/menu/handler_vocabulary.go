package menu

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/response"
)

// AllergenRequest is the body for POST/PUT /allergens.
type AllergenRequest struct {
	Name string `json:"name" binding:"required"`
	Icon string `json:"icon"`
}

// AttributeRequest is the body for POST/PUT /attributes.
type AttributeRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListAllergens handles GET /allergens.
func (h *Handler) ListAllergens(c *gin.Context) {
	list, err := h.repo.ListAllergens(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// CreateAllergen handles POST /allergens.
func (h *Handler) CreateAllergen(c *gin.Context) {
	var body AllergenRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	a := &models.Allergen{Name: strings.TrimSpace(body.Name), Icon: body.Icon}
	if err := h.repo.CreateAllergen(c.Request.Context(), a); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, a)
}

// UpdateAllergen handles PUT /allergens/:id.
func (h *Handler) UpdateAllergen(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body AllergenRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	a := &models.Allergen{ID: id, Name: strings.TrimSpace(body.Name), Icon: body.Icon}
	if err := h.repo.UpdateAllergen(c.Request.Context(), a); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

// DeleteAllergen handles DELETE /allergens/:id. Items lose the reference but are kept.
func (h *Handler) DeleteAllergen(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.cascade.Delete(c.Request.Context(), KindAllergen, id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

// ListAttributes handles GET /attributes.
func (h *Handler) ListAttributes(c *gin.Context) {
	list, err := h.repo.ListAttributes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// CreateAttribute handles POST /attributes.
func (h *Handler) CreateAttribute(c *gin.Context) {
	var body AttributeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	a := &models.Attribute{Name: strings.TrimSpace(body.Name)}
	if err := h.repo.CreateAttribute(c.Request.Context(), a); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, a)
}

// UpdateAttribute handles PUT /attributes/:id.
func (h *Handler) UpdateAttribute(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body AttributeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	a := &models.Attribute{ID: id, Name: strings.TrimSpace(body.Name)}
	if err := h.repo.UpdateAttribute(c.Request.Context(), a); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

// DeleteAttribute handles DELETE /attributes/:id. The key is removed from every item's attribute map.
func (h *Handler) DeleteAttribute(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.cascade.Delete(c.Request.Context(), KindAttribute, id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
