package importer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/internal/restaurants"
)

// resolver matches payload restaurant references by exact id, then case-insensitive name.
type resolver struct {
	byID   map[string]*models.Restaurant
	byName map[string]*models.Restaurant
}

func newResolver(list []models.Restaurant) resolver {
	r := resolver{byID: map[string]*models.Restaurant{}, byName: map[string]*models.Restaurant{}}
	for i := range list {
		rest := &list[i]
		r.byID[rest.ID.String()] = rest
		if _, ok := r.byName[models.NameKey(rest.Name)]; !ok {
			r.byName[models.NameKey(rest.Name)] = rest
		}
	}
	return r
}

func (r resolver) resolve(id, name string) *models.Restaurant {
	if id != "" {
		if parsed, err := uuid.Parse(id); err == nil {
			if rest, ok := r.byID[parsed.String()]; ok {
				return rest
			}
		}
	}
	if name != "" {
		return r.byName[models.NameKey(name)]
	}
	return nil
}

// ImportSystemMenu reconciles a system payload against the restaurants visible under scope.
// Unresolvable restaurants and categories are reported through counters; only datastore failures
// abort the run. raw, when non-nil, is archived before reconciliation starts.
func (r *Reconciler) ImportSystemMenu(ctx context.Context, payload SystemPayload, scope restaurants.Filter, raw []byte) (*Stats, error) {
	if err := r.validate.Struct(payload); err != nil {
		return nil, apperr.Validation("invalid import payload: " + err.Error())
	}
	run := r.newRun()
	if r.archive != nil && raw != nil {
		key, err := r.archive.ArchiveImport(ctx, raw)
		if err != nil {
			r.logger.Warn("import archive failed", zap.Error(err))
		} else {
			run.stats.ArchiveKey = key
		}
	}

	list, err := r.restaurants.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	res := newResolver(list)

	skipped := map[string]bool{}
	g, gctx := r.group(ctx)
	for _, entry := range payload.RestaurantCategory {
		rest := res.resolve(entry.RestaurantID, entry.RestaurantName)
		if rest == nil {
			key := entry.RestaurantID + "|" + models.NameKey(entry.RestaurantName)
			if !skipped[key] {
				skipped[key] = true
				run.stats.RestaurantsSkipped = append(run.stats.RestaurantsSkipped,
					SkippedRestaurant{ID: entry.RestaurantID, Name: entry.RestaurantName})
			}
			r.logger.Warn("import restaurant not found",
				zap.String("restaurant_id", entry.RestaurantID), zap.String("restaurant_name", entry.RestaurantName))
			continue
		}
		entry, rid := entry, rest.ID
		g.Go(func() error { return run.materializeTree(gctx, rid, entry.Categories) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	condiments := make(map[string]Condiment, len(payload.Condiments))
	for _, c := range payload.Condiments {
		condiments[c.Code] = c
	}

	type job struct {
		rid  uuid.UUID
		item FlatItem
	}
	var order []string
	batches := map[string][]job{}
	for _, it := range payload.Items {
		if err := r.validate.Struct(it); err != nil {
			r.logger.Warn("import item invalid", zap.String("item_code", it.ItemCode), zap.Error(err))
			run.stats.ItemsSkipped++
			continue
		}
		rest := res.resolve(it.RestaurantID, it.RestaurantName)
		if rest == nil {
			run.stats.ItemsSkipped++
			continue
		}
		key := rest.ID.String() + "|" + models.NameKey(it.Category) + "|" + it.ItemCode
		if _, ok := batches[key]; !ok {
			order = append(order, key)
		}
		batches[key] = append(batches[key], job{rid: rest.ID, item: it})
	}

	g, gctx = r.group(ctx)
	for _, key := range order {
		jobs := batches[key]
		g.Go(func() error {
			for _, j := range jobs {
				if err := run.importFlatItem(gctx, j.rid, j.item, condiments); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := run.result()
	r.logger.Info("system import finished",
		zap.Int("categories_created", stats.CategoriesCreated),
		zap.Int("subcategories_created", stats.SubcategoriesCreated),
		zap.Int("items_created", stats.ItemsCreated),
		zap.Int("items_updated", stats.ItemsUpdated),
		zap.Int("items_skipped", stats.ItemsSkipped),
		zap.Int("modifier_groups_created", stats.ModifierGroupsCreated),
		zap.Int("restaurants_skipped", len(stats.RestaurantsSkipped)))
	return stats, nil
}

// materializeTree creates missing categories (depth 0) and subcategories (depth 1) of one
// restaurant. Deeper nodes are flattened into subcategories of their top-level category.
func (r *run) materializeTree(ctx context.Context, restaurantID uuid.UUID, nodes []CategoryNode) error {
	for _, node := range nodes {
		if models.NameKey(node.Name) == "" {
			r.rec.logger.Warn("import category without name ignored", zap.String("restaurant_id", restaurantID.String()))
			continue
		}
		cat, err := r.category(ctx, restaurantID, node.Name, &models.MenuCategory{SortOrder: node.SortOrder, IsActive: true})
		if err != nil {
			return err
		}
		children, deep := flatten(node.Children)
		if deep > 0 {
			r.rec.logger.Warn("import category tree deeper than one level flattened",
				zap.String("category", cat.Name), zap.Int("flattened_nodes", deep))
		}
		for _, child := range children {
			if models.NameKey(child.Name) == "" {
				continue
			}
			_, err := r.subCategory(ctx, cat.ID, child.Name, &models.SubCategory{SortOrder: child.SortOrder, IsActive: true})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// flatten returns the depth-1 children of a category followed, in pre-order, by their
// descendants, and how many of the returned nodes came from depth 2 or deeper.
func flatten(children []CategoryNode) ([]CategoryNode, int) {
	var out []CategoryNode
	deep := 0
	var walk func(nodes []CategoryNode, depth int)
	walk = func(nodes []CategoryNode, depth int) {
		for _, n := range nodes {
			out = append(out, CategoryNode{Name: n.Name, SortOrder: n.SortOrder})
			if depth >= 2 {
				deep++
			}
			walk(n.Children, depth+1)
		}
	}
	walk(children, 1)
	return out, deep
}

func (r *run) importFlatItem(ctx context.Context, restaurantID uuid.UUID, it FlatItem, condiments map[string]Condiment) error {
	cat, err := r.category(ctx, restaurantID, it.Category, nil)
	if err != nil {
		return err
	}
	if cat == nil {
		r.rec.logger.Debug("import item category not found",
			zap.String("item_code", it.ItemCode), zap.String("category", it.Category))
		r.count(func(s *Stats) { s.ItemsSkipped++ })
		return nil
	}

	f := itemFields{
		ItemCode:    it.ItemCode,
		Name:        it.Name,
		Description: it.Description,
		Price:       it.Price,
		Currency:    it.Currency,
		IsAvailable: it.IsAvailable,
		SoldOut:     it.SoldOut,
		ImageURL:    it.ImageURL,
		SortOrder:   it.SortOrder,
		Attributes:  it.Attributes,
	}
	if it.SubCategory != "" {
		sub, err := r.subCategory(ctx, cat.ID, it.SubCategory, nil)
		if err != nil {
			return err
		}
		if sub != nil {
			f.SubCategoryID = &sub.ID
		}
	}
	for _, code := range codes(it.Condiments) {
		c, ok := condiments[code]
		if !ok {
			r.rec.logger.Warn("import condiment code not defined", zap.String("code", code), zap.String("item_code", it.ItemCode))
			continue
		}
		gid, err := r.modifierGroup(ctx, restaurantID, c)
		if err != nil {
			return err
		}
		if !containsID(f.ModifierGroupIDs, gid) {
			f.ModifierGroupIDs = append(f.ModifierGroupIDs, gid)
		}
	}
	return r.upsertItem(ctx, cat.ID, f)
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
