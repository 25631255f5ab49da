package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/internal/restaurants"
	"github.com/menuportal/backend/pkg/queue"
)

type memOrders struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.LiveOrder
	log    []models.OrderStatusLog
	clock  time.Time
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[uuid.UUID]*models.LiveOrder{}, clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (m *memOrders) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func clone(o *models.LiveOrder) *models.LiveOrder {
	cp := *o
	cp.Items = append([]models.OrderLine{}, o.Items...)
	return &cp
}

func (m *memOrders) Get(_ context.Context, id uuid.UUID) (*models.LiveOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	return clone(o), nil
}

func (m *memOrders) List(_ context.Context, f ListFilter) ([]models.LiveOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := map[uuid.UUID]bool{}
	for _, id := range f.RestaurantIDs {
		allowed[id] = true
	}
	out := []models.LiveOrder{}
	for _, o := range m.orders {
		if f.RestaurantIDs != nil && !allowed[o.RestaurantID] {
			continue
		}
		if !f.IncludeCompleted && o.Status == models.OrderStatusCompleted {
			continue
		}
		out = append(out, *clone(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.Before(out[j].PlacedAt) })
	return out, nil
}

func (m *memOrders) Insert(_ context.Context, o *models.LiveOrder, actor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = uuid.New()
	o.PlacedAt = m.tick()
	o.UpdatedAt = o.PlacedAt
	for i := range o.Items {
		o.Items[i].ID, o.Items[i].OrderID = uuid.New(), o.ID
	}
	m.orders[o.ID] = clone(o)
	m.log = append(m.log, models.OrderStatusLog{ID: int64(len(m.log) + 1), OrderID: o.ID, Status: o.Status, ChangedBy: actor, ChangedAt: o.PlacedAt})
	return nil
}

func (m *memOrders) Transition(_ context.Context, id uuid.UUID, from, to models.OrderStatus, actor string) (*models.LiveOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	if o.Status != from {
		return nil, apperr.InvalidTransition("order was already moved past " + string(from))
	}
	o.Status = to
	o.UpdatedAt = m.tick()
	m.log = append(m.log, models.OrderStatusLog{ID: int64(len(m.log) + 1), OrderID: id, Status: to, ChangedBy: actor, ChangedAt: o.UpdatedAt})
	return clone(o), nil
}

func (m *memOrders) History(_ context.Context, id uuid.UUID) ([]models.OrderStatusLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return nil, apperr.NotFound("order not found")
	}
	out := []models.OrderStatusLog{}
	for _, e := range m.log {
		if e.OrderID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

// memCatalog maps restaurant → items and holds modifier options.
type memCatalog struct {
	items map[uuid.UUID][]*models.MenuItem
	mods  map[uuid.UUID]*models.ModifierItem
}

func (c *memCatalog) ItemsByIDs(_ context.Context, rid uuid.UUID, ids []uuid.UUID) ([]models.MenuItem, error) {
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []models.MenuItem
	for _, it := range c.items[rid] {
		if want[it.ID] {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (c *memCatalog) ModifierItemsByIDs(_ context.Context, ids []uuid.UUID) ([]models.ModifierItem, error) {
	var out []models.ModifierItem
	for _, id := range ids {
		if m, ok := c.mods[id]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

type memRestaurants map[uuid.UUID]*models.Restaurant

func (m memRestaurants) GetByID(_ context.Context, id uuid.UUID) (*models.Restaurant, error) {
	if r, ok := m[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, apperr.NotFound("restaurant not found")
}

func (m memRestaurants) List(_ context.Context, f restaurants.Filter) ([]models.Restaurant, error) {
	var out []models.Restaurant
	for _, r := range m {
		if f.PropertyID != nil && r.PropertyID != *f.PropertyID {
			continue
		}
		if f.RestaurantID != nil && r.ID != *f.RestaurantID {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

type published struct {
	restaurantID uuid.UUID
	event        string
	status       models.OrderStatus
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(rid uuid.UUID, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o := payload.(*models.LiveOrder)
	p.events = append(p.events, published{restaurantID: rid, event: event, status: o.Status})
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) EnqueueOrderEvent(ctx context.Context, p queue.OrderEventPayload) error {
	return m.Called(ctx, p).Error(0)
}
