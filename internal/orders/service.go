// Package orders owns live-order placement and the New → Preparing → Ready → Completed lifecycle.
package orders

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/internal/restaurants"
	"github.com/menuportal/backend/pkg/queue"
	"github.com/menuportal/backend/pkg/utils"
)

// Push event names.
const (
	EventOrderCreated = "order_created"
	EventOrderUpdated = "order_updated"
)

// ListFilter narrows order listings. A nil RestaurantIDs means every restaurant.
type ListFilter struct {
	RestaurantIDs    []uuid.UUID
	IncludeCompleted bool
}

// Store persists orders.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*models.LiveOrder, error)
	List(ctx context.Context, f ListFilter) ([]models.LiveOrder, error)
	Insert(ctx context.Context, o *models.LiveOrder, actor string) error
	// Transition moves the order from one status to another only if it is still in from.
	// It fails with an invalid-transition error when the row has moved on.
	Transition(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, actor string) (*models.LiveOrder, error)
	History(ctx context.Context, id uuid.UUID) ([]models.OrderStatusLog, error)
}

// Catalog prices order lines from the menu.
type Catalog interface {
	ItemsByIDs(ctx context.Context, restaurantID uuid.UUID, ids []uuid.UUID) ([]models.MenuItem, error)
	ModifierItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ModifierItem, error)
}

// Publisher pushes an event to the clients watching a restaurant.
type Publisher interface {
	Publish(restaurantID uuid.UUID, event string, payload interface{})
}

// EventQueue hands order events to the export worker.
type EventQueue interface {
	EnqueueOrderEvent(ctx context.Context, p queue.OrderEventPayload) error
}

// Service implements order placement and status changes.
type Service struct {
	store       Store
	catalog     Catalog
	restaurants restaurants.Lookup
	publisher   Publisher
	events      EventQueue
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates the order service. publisher and events may be nil.
func NewService(store Store, catalog Catalog, rests restaurants.Lookup, publisher Publisher, events EventQueue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, catalog: catalog, restaurants: rests, publisher: publisher, events: events, logger: logger, now: time.Now}
}

// LineInput is one requested order line.
type LineInput struct {
	MenuItemID  uuid.UUID
	Quantity    int
	ModifierIDs []uuid.UUID
}

// PlaceOrderInput is a customer order. Client-side totals are never accepted.
type PlaceOrderInput struct {
	RestaurantID uuid.UUID
	TableNumber  string
	CustomerName string
	Notes        string
	Items        []LineInput
}

// CreateOrder prices every line from the menu, snapshots names and prices onto the order and
// stores it in New.
func (s *Service) CreateOrder(ctx context.Context, in PlaceOrderInput) (*models.LiveOrder, error) {
	if len(in.Items) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}
	rest, err := s.restaurants.GetByID(ctx, in.RestaurantID)
	if err != nil {
		return nil, err
	}
	if !rest.IsActive {
		return nil, apperr.Validation("restaurant is not accepting orders")
	}

	itemIDs := make([]uuid.UUID, 0, len(in.Items))
	var modIDs []uuid.UUID
	for _, l := range in.Items {
		if l.Quantity < 1 {
			return nil, apperr.Validation("quantity must be at least 1")
		}
		itemIDs = append(itemIDs, l.MenuItemID)
		modIDs = append(modIDs, l.ModifierIDs...)
	}
	items, err := s.catalog.ItemsByIDs(ctx, in.RestaurantID, itemIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.MenuItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}
	mods := map[uuid.UUID]*models.ModifierItem{}
	if len(modIDs) > 0 {
		list, err := s.catalog.ModifierItemsByIDs(ctx, modIDs)
		if err != nil {
			return nil, err
		}
		for i := range list {
			mods[list[i].ID] = &list[i]
		}
	}

	order := &models.LiveOrder{
		RestaurantID: in.RestaurantID,
		TableNumber:  strings.TrimSpace(in.TableNumber),
		CustomerName: strings.TrimSpace(in.CustomerName),
		Notes:        strings.TrimSpace(in.Notes),
		Status:       models.OrderStatusNew,
	}
	for _, l := range in.Items {
		line, currency, err := priceLine(l, byID, mods)
		if err != nil {
			return nil, err
		}
		if order.Currency == "" {
			order.Currency = currency
		} else if order.Currency != currency {
			return nil, apperr.Validation("order items must share one currency")
		}
		order.Items = append(order.Items, line)
		order.Total += line.LineTotal
	}
	order.Total = utils.RoundMoney(order.Total)

	if err := s.store.Insert(ctx, order, "customer"); err != nil {
		return nil, err
	}
	s.logger.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("restaurant_id", order.RestaurantID.String()),
		zap.Float64("total", order.Total))
	s.emit(ctx, EventOrderCreated, order)
	return order, nil
}

// priceLine builds a line from catalog prices: unit price times quantity plus each chosen modifier.
func priceLine(l LineInput, items map[uuid.UUID]*models.MenuItem, mods map[uuid.UUID]*models.ModifierItem) (models.OrderLine, string, error) {
	item, ok := items[l.MenuItemID]
	if !ok {
		return models.OrderLine{}, "", apperr.Validation("menu item " + l.MenuItemID.String() + " is not on this restaurant's menu")
	}
	if !item.Orderable() {
		return models.OrderLine{}, "", apperr.Validation(item.Name + " is not available")
	}
	line := models.OrderLine{
		MenuItemID: item.ID,
		Name:       item.Name,
		Quantity:   l.Quantity,
		UnitPrice:  item.Price,
		Modifiers:  []models.OrderLineModifier{},
	}
	total := item.Price * float64(l.Quantity)
	seen := map[uuid.UUID]bool{}
	for _, id := range l.ModifierIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		m, ok := mods[id]
		if !ok || !linked(item, m.GroupID) {
			return models.OrderLine{}, "", apperr.Validation("modifier " + id.String() + " does not apply to " + item.Name)
		}
		if !m.IsAvailable {
			return models.OrderLine{}, "", apperr.Validation(m.Name + " is not available")
		}
		line.Modifiers = append(line.Modifiers, models.OrderLineModifier{ModifierItemID: m.ID, Name: m.Name, Price: m.Price})
		total += m.Price
	}
	line.LineTotal = utils.RoundMoney(total)
	return line, item.Currency, nil
}

func linked(item *models.MenuItem, groupID uuid.UUID) bool {
	for _, g := range item.ModifierGroupIDs {
		if g == groupID {
			return true
		}
	}
	return false
}

// Get returns one order with its lines.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.LiveOrder, error) {
	return s.store.Get(ctx, id)
}

// UpdateOrderStatus applies the single legal transition to target. Two clients racing on the same
// transition see one success and one invalid-transition error.
func (s *Service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, target models.OrderStatus, actor string) (*models.LiveOrder, error) {
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(cur.Status, target); err != nil {
		return nil, err
	}
	updated, err := s.store.Transition(ctx, id, cur.Status, target, actor)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order status changed",
		zap.String("order_id", id.String()),
		zap.String("from", string(cur.Status)),
		zap.String("to", string(target)),
		zap.String("actor", actor))
	s.emit(ctx, EventOrderUpdated, updated)
	return updated, nil
}

// GetLiveOrders lists non-completed orders, oldest first.
func (s *Service) GetLiveOrders(ctx context.Context, restaurantIDs []uuid.UUID) ([]models.LiveOrder, error) {
	return s.store.List(ctx, ListFilter{RestaurantIDs: restaurantIDs})
}

// ListOrders lists orders including completed ones when asked.
func (s *Service) ListOrders(ctx context.Context, f ListFilter) ([]models.LiveOrder, error) {
	return s.store.List(ctx, f)
}

// History returns the status log of an order.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]models.OrderStatusLog, error) {
	return s.store.History(ctx, id)
}

// emit pushes the event to connected clients and queues it for export. Neither failure affects the
// already committed order.
func (s *Service) emit(ctx context.Context, event string, o *models.LiveOrder) {
	if s.publisher != nil {
		s.publisher.Publish(o.RestaurantID, event, o)
	}
	if s.events == nil {
		return
	}
	body, err := json.Marshal(o)
	if err != nil {
		s.logger.Warn("order event encode failed", zap.Error(err))
		return
	}
	err = s.events.EnqueueOrderEvent(ctx, queue.OrderEventPayload{
		Event:        event,
		OrderID:      o.ID,
		RestaurantID: o.RestaurantID,
		Status:       string(o.Status),
		Order:        body,
		OccurredAt:   s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("order event not queued", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}
