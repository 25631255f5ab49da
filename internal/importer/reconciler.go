// Package importer reconciles externally supplied menu documents with the entity store by name
// and item-code matching, creating what is missing and merging what already exists.
package importer

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/internal/restaurants"
)

// RestaurantSource lists the restaurants an import may target.
type RestaurantSource = restaurants.Directory

// MenuStore is the menu persistence the reconciler matches against.
type MenuStore interface {
	FindCategoryByName(ctx context.Context, restaurantID uuid.UUID, name string) (*models.MenuCategory, error)
	CreateCategory(ctx context.Context, c *models.MenuCategory) error
	FindSubCategoryByName(ctx context.Context, categoryID uuid.UUID, name string) (*models.SubCategory, error)
	CreateSubCategory(ctx context.Context, s *models.SubCategory) error
	FindModifierGroupByCode(ctx context.Context, restaurantID uuid.UUID, code string) (*models.ModifierGroup, error)
	FindModifierGroupByName(ctx context.Context, restaurantID uuid.UUID, name string) (*models.ModifierGroup, error)
	CreateModifierGroup(ctx context.Context, g *models.ModifierGroup) error
	FindItemByCode(ctx context.Context, categoryID uuid.UUID, code string) (*models.MenuItem, error)
	CreateItem(ctx context.Context, m *models.MenuItem) error
	UpdateItem(ctx context.Context, m *models.MenuItem) error
}

// Archiver stores the raw payload of a system import and returns its object key.
type Archiver interface {
	ArchiveImport(ctx context.Context, body []byte) (string, error)
}

// SkippedRestaurant identifies a restaurant entry that matched nothing.
type SkippedRestaurant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Stats are the counters reported by an import run.
type Stats struct {
	CategoriesCreated     int                 `json:"categoriesCreated"`
	SubcategoriesCreated  int                 `json:"subcategoriesCreated"`
	ItemsCreated          int                 `json:"itemsCreated"`
	ItemsUpdated          int                 `json:"itemsUpdated"`
	ItemsUnchanged        int                 `json:"itemsUnchanged"`
	ItemsSkipped          int                 `json:"itemsSkipped"`
	ModifierGroupsCreated int                 `json:"modifierGroupsCreated"`
	ModifierItemsCreated  int                 `json:"modifierItemsCreated"`
	RestaurantsSkipped    []SkippedRestaurant `json:"restaurantsSkipped"`
	ArchiveKey            string              `json:"archiveKey,omitempty"`
}

// Reconciler runs menu imports.
type Reconciler struct {
	restaurants RestaurantSource
	store       MenuStore
	archive     Archiver
	validate    *validator.Validate
	concurrency int
	logger      *zap.Logger
}

// NewReconciler creates an import reconciler. concurrency bounds parallel datastore work; archive
// may be nil.
func NewReconciler(rs RestaurantSource, store MenuStore, archive Archiver, concurrency int, logger *zap.Logger) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		restaurants: rs,
		store:       store,
		archive:     archive,
		validate:    validator.New(),
		concurrency: concurrency,
		logger:      logger,
	}
}

// run holds the per-import caches and counters. Caches never outlive the import.
type run struct {
	rec *Reconciler

	mu         sync.Mutex
	stats      Stats
	categories map[string]*models.MenuCategory
	subs       map[string]*models.SubCategory
	groups     map[string]uuid.UUID
	adopted    map[uuid.UUID]bool
	sf         singleflight.Group
}

func (r *Reconciler) newRun() *run {
	return &run{
		rec:        r,
		stats:      Stats{RestaurantsSkipped: []SkippedRestaurant{}},
		categories: map[string]*models.MenuCategory{},
		subs:       map[string]*models.SubCategory{},
		groups:     map[string]uuid.UUID{},
		adopted:    map[uuid.UUID]bool{},
	}
}

func (r *run) count(f func(s *Stats)) {
	r.mu.Lock()
	f(&r.stats)
	r.mu.Unlock()
}

func (r *run) result() *Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	return &s
}

// category resolves a category by name within a restaurant. With create set, a missing category is
// created from node; otherwise nil is returned for a miss.
func (r *run) category(ctx context.Context, restaurantID uuid.UUID, name string, create *models.MenuCategory) (*models.MenuCategory, error) {
	key := restaurantID.String() + "|" + models.NameKey(name)
	v, err, _ := r.sf.Do("cat:"+key, func() (interface{}, error) {
		r.mu.Lock()
		c, ok := r.categories[key]
		r.mu.Unlock()
		if ok {
			return c, nil
		}
		c, err := r.rec.store.FindCategoryByName(ctx, restaurantID, name)
		if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			return nil, err
		}
		if err != nil {
			if create == nil {
				return (*models.MenuCategory)(nil), nil
			}
			c = create
			c.RestaurantID = restaurantID
			c.Name = strings.TrimSpace(name)
			if err := r.rec.store.CreateCategory(ctx, c); err != nil {
				return nil, err
			}
			r.count(func(s *Stats) { s.CategoriesCreated++ })
		}
		r.mu.Lock()
		r.categories[key] = c
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.MenuCategory), nil
}

// subCategory mirrors category one level down.
func (r *run) subCategory(ctx context.Context, categoryID uuid.UUID, name string, create *models.SubCategory) (*models.SubCategory, error) {
	key := categoryID.String() + "|" + models.NameKey(name)
	v, err, _ := r.sf.Do("sub:"+key, func() (interface{}, error) {
		r.mu.Lock()
		s, ok := r.subs[key]
		r.mu.Unlock()
		if ok {
			return s, nil
		}
		s, err := r.rec.store.FindSubCategoryByName(ctx, categoryID, name)
		if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			return nil, err
		}
		if err != nil {
			if create == nil {
				return (*models.SubCategory)(nil), nil
			}
			s = create
			s.CategoryID = categoryID
			s.Name = strings.TrimSpace(name)
			if err := r.rec.store.CreateSubCategory(ctx, s); err != nil {
				return nil, err
			}
			r.count(func(st *Stats) { st.SubcategoriesCreated++ })
		}
		r.mu.Lock()
		r.subs[key] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.SubCategory), nil
}

// modifierGroup resolves or creates the group for a condiment, once per restaurant and code.
// Groups match on code; a group without a code is adopted by name so re-runs over hand-made
// groups create nothing.
func (r *run) modifierGroup(ctx context.Context, restaurantID uuid.UUID, c Condiment) (uuid.UUID, error) {
	key := restaurantID.String() + "|" + c.Code
	v, err, _ := r.sf.Do("grp:"+key, func() (interface{}, error) {
		r.mu.Lock()
		id, ok := r.groups[key]
		r.mu.Unlock()
		if ok {
			return id, nil
		}
		g, err := r.findGroup(ctx, restaurantID, c)
		if err != nil {
			return nil, err
		}
		if g == nil {
			g = groupFromCondiment(restaurantID, c)
			if err := r.rec.store.CreateModifierGroup(ctx, g); err != nil {
				return nil, err
			}
			n := len(g.Items)
			r.count(func(s *Stats) {
				s.ModifierGroupsCreated++
				s.ModifierItemsCreated += n
			})
		}
		r.mu.Lock()
		r.groups[key] = g.ID
		r.mu.Unlock()
		return g.ID, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return v.(uuid.UUID), nil
}

// findGroup returns nil when neither the code nor an uncoded group of the same name matches. An
// uncoded group is adopted by at most one code per run.
func (r *run) findGroup(ctx context.Context, restaurantID uuid.UUID, c Condiment) (*models.ModifierGroup, error) {
	g, err := r.rec.store.FindModifierGroupByCode(ctx, restaurantID, c.Code)
	if err == nil {
		return g, nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}
	g, err = r.rec.store.FindModifierGroupByName(ctx, restaurantID, c.Name)
	switch {
	case err == nil && g.Code == "":
		r.mu.Lock()
		taken := r.adopted[g.ID]
		r.adopted[g.ID] = true
		r.mu.Unlock()
		if taken {
			return nil, nil
		}
		return g, nil
	case err == nil, apperr.KindOf(err) == apperr.KindNotFound:
		return nil, nil
	default:
		return nil, err
	}
}

func groupFromCondiment(restaurantID uuid.UUID, c Condiment) *models.ModifierGroup {
	g := &models.ModifierGroup{
		RestaurantID: restaurantID,
		Name:         strings.TrimSpace(c.Name),
		Code:         c.Code,
		MinSelection: 0,
		MaxSelection: 1,
	}
	if c.MinSelection != nil && c.MaxSelection != nil && *c.MinSelection <= *c.MaxSelection {
		g.MinSelection, g.MaxSelection = *c.MinSelection, *c.MaxSelection
	}
	for i, it := range c.Items {
		g.Items = append(g.Items, models.ModifierItem{Name: strings.TrimSpace(it.Name), Price: 0, IsAvailable: true, SortOrder: i})
	}
	return g
}

// upsertItem matches by (categoryID, itemCode): a miss creates, a hit merges and writes only when
// a field actually changed.
func (r *run) upsertItem(ctx context.Context, categoryID uuid.UUID, f itemFields) error {
	existing, err := r.rec.store.FindItemByCode(ctx, categoryID, f.ItemCode)
	if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		return err
	}
	if err != nil {
		item := f.newItem(categoryID)
		if err := r.rec.store.CreateItem(ctx, item); err != nil {
			return err
		}
		r.count(func(s *Stats) { s.ItemsCreated++ })
		return nil
	}
	merged, changed := f.merge(existing)
	if !changed {
		r.count(func(s *Stats) { s.ItemsUnchanged++ })
		return nil
	}
	if err := r.rec.store.UpdateItem(ctx, merged); err != nil {
		return err
	}
	r.count(func(s *Stats) { s.ItemsUpdated++ })
	return nil
}

func (r *Reconciler) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	return g, gctx
}
