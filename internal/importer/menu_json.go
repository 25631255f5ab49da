package importer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
)

// ImportMenuFromJSON reconciles a nested categories → (subcategories →) items document into one
// restaurant, with the same matching rules as the system import.
func (r *Reconciler) ImportMenuFromJSON(ctx context.Context, restaurantID uuid.UUID, payload MenuPayload) (*Stats, error) {
	if _, err := r.restaurants.GetByID(ctx, restaurantID); err != nil {
		return nil, err
	}
	if err := r.validate.Struct(payload); err != nil {
		return nil, apperr.Validation("invalid menu payload: " + err.Error())
	}
	run := r.newRun()

	// Nodes naming the same category run in one goroutine so their items never race on a code.
	var order []string
	byName := map[string][]MenuCategoryNode{}
	for _, node := range payload.Categories {
		key := models.NameKey(node.Name)
		if _, ok := byName[key]; !ok {
			order = append(order, key)
		}
		byName[key] = append(byName[key], node)
	}
	g, gctx := r.group(ctx)
	for _, key := range order {
		nodes := byName[key]
		g.Go(func() error {
			for _, node := range nodes {
				if err := run.importCategoryNode(gctx, restaurantID, node); err != nil {
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
	r.logger.Info("menu import finished",
		zap.String("restaurant_id", restaurantID.String()),
		zap.Int("categories_created", stats.CategoriesCreated),
		zap.Int("items_created", stats.ItemsCreated),
		zap.Int("items_updated", stats.ItemsUpdated),
		zap.Int("items_skipped", stats.ItemsSkipped))
	return stats, nil
}

func (r *run) importCategoryNode(ctx context.Context, restaurantID uuid.UUID, node MenuCategoryNode) error {
	cat, err := r.category(ctx, restaurantID, node.Name, &models.MenuCategory{
		Description: node.Description,
		SortOrder:   node.SortOrder,
		IsActive:    node.IsActive == nil || *node.IsActive,
	})
	if err != nil {
		return err
	}
	if err := r.importNestedItems(ctx, cat.ID, nil, node.Items); err != nil {
		return err
	}
	for _, subNode := range node.SubCategories {
		sub, err := r.subCategory(ctx, cat.ID, subNode.Name, &models.SubCategory{
			Description: subNode.Description,
			SortOrder:   subNode.SortOrder,
			IsActive:    subNode.IsActive == nil || *subNode.IsActive,
		})
		if err != nil {
			return err
		}
		subID := sub.ID
		if err := r.importNestedItems(ctx, cat.ID, &subID, subNode.Items); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) importNestedItems(ctx context.Context, categoryID uuid.UUID, subID *uuid.UUID, items []MenuItemNode) error {
	for _, it := range items {
		if err := r.rec.validate.Struct(it); err != nil {
			r.rec.logger.Warn("import item invalid", zap.String("item_code", it.ItemCode), zap.Error(err))
			r.count(func(s *Stats) { s.ItemsSkipped++ })
			continue
		}
		err := r.upsertItem(ctx, categoryID, itemFields{
			ItemCode:      it.ItemCode,
			Name:          it.Name,
			Description:   it.Description,
			Price:         it.Price,
			Currency:      it.Currency,
			IsAvailable:   it.IsAvailable,
			SoldOut:       it.SoldOut,
			ImageURL:      it.ImageURL,
			SortOrder:     it.SortOrder,
			SubCategoryID: subID,
			Attributes:    it.Attributes,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
