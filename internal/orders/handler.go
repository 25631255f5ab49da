package orders

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/internal/restaurants"
	"github.com/menuportal/backend/pkg/response"
)

// Handler serves order placement and the kitchen endpoints.
type Handler struct {
	svc         *Service
	restaurants restaurants.Directory
	guard       *restaurants.Guard
	logger      *zap.Logger
}

// NewHandler creates an order handler.
func NewHandler(svc *Service, dir restaurants.Directory, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, restaurants: dir, guard: restaurants.NewGuard(dir), logger: logger}
}

// LineRequest is one line of a placed order.
type LineRequest struct {
	MenuItemID  uuid.UUID   `json:"menuItemId" binding:"required"`
	Quantity    int         `json:"quantity" binding:"required,gte=1"`
	ModifierIDs []uuid.UUID `json:"modifierIds"`
}

// PlaceOrderRequest is the public order body. Any client-sent total is ignored.
type PlaceOrderRequest struct {
	RestaurantID uuid.UUID     `json:"restaurantId" binding:"required"`
	TableNumber  string        `json:"tableNumber" binding:"max=32"`
	CustomerName string        `json:"customerName" binding:"max=120"`
	Notes        string        `json:"notes" binding:"max=500"`
	Items        []LineRequest `json:"items" binding:"required,min=1,dive"`
}

// StatusRequest is the PATCH /orders/:id/status body.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Place handles POST /public/orders.
func (h *Handler) Place(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	in := PlaceOrderInput{
		RestaurantID: req.RestaurantID,
		TableNumber:  req.TableNumber,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
	}
	for _, l := range req.Items {
		in.Items = append(in.Items, LineInput{MenuItemID: l.MenuItemID, Quantity: l.Quantity, ModifierIDs: l.ModifierIDs})
	}
	order, err := h.svc.CreateOrder(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, order)
}

// List handles GET /orders. Completed orders are only included with ?includeCompleted=true.
func (h *Handler) List(c *gin.Context) {
	ids, err := restaurants.ScopeIDs(c.Request.Context(), h.restaurants, auth.PrincipalFrom(c), c.Query("restaurantId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var list []models.LiveOrder
	if c.Query("includeCompleted") == "true" {
		list, err = h.svc.ListOrders(c.Request.Context(), ListFilter{RestaurantIDs: ids, IncludeCompleted: true})
	} else {
		list, err = h.svc.GetLiveOrders(c.Request.Context(), ids)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	if list == nil {
		list = []models.LiveOrder{}
	}
	response.OK(c, list)
}

// order loads the order named by :id and checks the caller may see its restaurant.
func (h *Handler) order(c *gin.Context) (*models.LiveOrder, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return nil, false
	}
	o, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if _, err := h.guard.Restaurant(c.Request.Context(), auth.PrincipalFrom(c), o.RestaurantID); err != nil {
		response.Error(c, err)
		return nil, false
	}
	return o, true
}

// Get handles GET /orders/:id.
func (h *Handler) Get(c *gin.Context) {
	o, ok := h.order(c)
	if !ok {
		return
	}
	response.OK(c, o)
}

// UpdateStatus handles PATCH /orders/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	target, ok := models.ParseOrderStatus(req.Status)
	if !ok {
		response.Error(c, apperr.Validation("unknown status "+req.Status))
		return
	}
	o, ok := h.order(c)
	if !ok {
		return
	}
	updated, err := h.svc.UpdateOrderStatus(c.Request.Context(), o.ID, target, auth.PrincipalFrom(c).Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// History handles GET /orders/:id/history.
func (h *Handler) History(c *gin.Context) {
	o, ok := h.order(c)
	if !ok {
		return
	}
	log, err := h.svc.History(c.Request.Context(), o.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, log)
}
