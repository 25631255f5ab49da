package importer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/internal/restaurants"
)

type memRestaurants struct {
	list []models.Restaurant
}

func (m *memRestaurants) GetByID(_ context.Context, id uuid.UUID) (*models.Restaurant, error) {
	for i := range m.list {
		if m.list[i].ID == id {
			r := m.list[i]
			return &r, nil
		}
	}
	return nil, apperr.NotFound("restaurant not found")
}

func (m *memRestaurants) List(_ context.Context, f restaurants.Filter) ([]models.Restaurant, error) {
	var out []models.Restaurant
	for _, r := range m.list {
		if f.PropertyID != nil && r.PropertyID != *f.PropertyID {
			continue
		}
		if f.RestaurantID != nil && r.ID != *f.RestaurantID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// memMenu is a concurrency-safe in-memory MenuStore.
type memMenu struct {
	mu         sync.Mutex
	categories []*models.MenuCategory
	subs       []*models.SubCategory
	groups     []*models.ModifierGroup
	items      []*models.MenuItem
	updates    int
}

func (m *memMenu) FindCategoryByName(_ context.Context, rid uuid.UUID, name string) (*models.MenuCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.RestaurantID == rid && models.NameKey(c.Name) == models.NameKey(name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("category not found")
}

func (m *memMenu) CreateCategory(_ context.Context, c *models.MenuCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID, c.CreatedAt = uuid.New(), time.Now()
	cp := *c
	m.categories = append(m.categories, &cp)
	return nil
}

func (m *memMenu) FindSubCategoryByName(_ context.Context, cid uuid.UUID, name string) (*models.SubCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.CategoryID == cid && models.NameKey(s.Name) == models.NameKey(name) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("subcategory not found")
}

func (m *memMenu) CreateSubCategory(_ context.Context, s *models.SubCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	cp := *s
	m.subs = append(m.subs, &cp)
	return nil
}

func (m *memMenu) FindModifierGroupByCode(_ context.Context, rid uuid.UUID, code string) (*models.ModifierGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.groups {
		if g.RestaurantID == rid && code != "" && g.Code == code {
			cp := *g
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("modifier group not found")
}

func (m *memMenu) FindModifierGroupByName(_ context.Context, rid uuid.UUID, name string) (*models.ModifierGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.ModifierGroup
	for _, g := range m.groups {
		if g.RestaurantID != rid || models.NameKey(g.Name) != models.NameKey(name) {
			continue
		}
		if found == nil || (found.Code != "" && g.Code == "") {
			found = g
		}
	}
	if found == nil {
		return nil, apperr.NotFound("modifier group not found")
	}
	cp := *found
	return &cp, nil
}

func (m *memMenu) CreateModifierGroup(_ context.Context, g *models.ModifierGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = uuid.New()
	for i := range g.Items {
		g.Items[i].ID, g.Items[i].GroupID = uuid.New(), g.ID
	}
	cp := *g
	m.groups = append(m.groups, &cp)
	return nil
}

func (m *memMenu) FindItemByCode(_ context.Context, cid uuid.UUID, code string) (*models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.CategoryID == cid && it.ItemCode == code {
			cp := *it
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("menu item not found")
}

func (m *memMenu) CreateItem(_ context.Context, it *models.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it.ID = uuid.New()
	cp := *it
	m.items = append(m.items, &cp)
	return nil
}

func (m *memMenu) UpdateItem(_ context.Context, it *models.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.items {
		if cur.ID == it.ID {
			cp := *it
			m.items[i] = &cp
			m.updates++
			return nil
		}
	}
	return apperr.NotFound("menu item not found")
}

func (m *memMenu) item(code string) *models.MenuItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.ItemCode == code {
			return it
		}
	}
	return nil
}

type memArchive struct {
	bodies [][]byte
	err    error
}

func (a *memArchive) ArchiveImport(_ context.Context, body []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.bodies = append(a.bodies, body)
	return "imports/test.json", nil
}
