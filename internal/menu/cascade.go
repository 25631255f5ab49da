package menu

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/pkg/database"
)

// Kind names an entity for cascade deletes and ownership lookups.
type Kind string

const (
	KindRestaurant    Kind = "restaurant"
	KindCategory      Kind = "category"
	KindSubCategory   Kind = "subcategory"
	KindMenuItem      Kind = "menu item"
	KindModifierGroup Kind = "modifier group"
	KindModifierItem  Kind = "modifier item"
	KindAllergen      Kind = "allergen"
	KindAttribute     Kind = "attribute"
)

// Step is one cleanup statement. $1 is always the id of the entity being deleted.
type Step struct {
	Name string
	SQL  string
}

const (
	itemsOfCategory    = `SELECT id FROM menu_items WHERE category_id = $1`
	itemsOfSubCategory = `SELECT id FROM menu_items WHERE sub_category_id = $1`
	itemsOfRestaurant  = `SELECT i.id FROM menu_items i JOIN menu_categories c ON c.id = i.category_id WHERE c.restaurant_id = $1`
	groupsOfRestaurant = `SELECT id FROM modifier_groups WHERE restaurant_id = $1`
)

// CascadePolicy lists, per entity kind, the dependent cleanup steps in execution order. The last
// step of every entry deletes the entity itself; zero rows there means the id did not exist.
// Sibling aggregate roots are never touched.
var CascadePolicy = map[Kind][]Step{
	KindRestaurant: {
		{"orders", `DELETE FROM live_orders WHERE restaurant_id = $1`},
		{"item allergen links", `DELETE FROM menu_item_allergens WHERE menu_item_id IN (` + itemsOfRestaurant + `)`},
		{"item modifier links", `DELETE FROM menu_item_modifier_groups WHERE menu_item_id IN (` + itemsOfRestaurant + `)
			OR modifier_group_id IN (` + groupsOfRestaurant + `)`},
		{"items", `DELETE FROM menu_items WHERE id IN (` + itemsOfRestaurant + `)`},
		{"subcategories", `DELETE FROM sub_categories WHERE category_id IN (SELECT id FROM menu_categories WHERE restaurant_id = $1)`},
		{"categories", `DELETE FROM menu_categories WHERE restaurant_id = $1`},
		{"modifier items", `DELETE FROM modifier_items WHERE group_id IN (` + groupsOfRestaurant + `)`},
		{"modifier groups", `DELETE FROM modifier_groups WHERE restaurant_id = $1`},
		{"restaurant", `DELETE FROM restaurants WHERE id = $1`},
	},
	KindCategory: {
		{"item allergen links", `DELETE FROM menu_item_allergens WHERE menu_item_id IN (` + itemsOfCategory + `)`},
		{"item modifier links", `DELETE FROM menu_item_modifier_groups WHERE menu_item_id IN (` + itemsOfCategory + `)`},
		{"items", `DELETE FROM menu_items WHERE category_id = $1`},
		{"subcategories", `DELETE FROM sub_categories WHERE category_id = $1`},
		{"category", `DELETE FROM menu_categories WHERE id = $1`},
	},
	KindSubCategory: {
		{"item allergen links", `DELETE FROM menu_item_allergens WHERE menu_item_id IN (` + itemsOfSubCategory + `)`},
		{"item modifier links", `DELETE FROM menu_item_modifier_groups WHERE menu_item_id IN (` + itemsOfSubCategory + `)`},
		{"items", `DELETE FROM menu_items WHERE sub_category_id = $1`},
		{"subcategory", `DELETE FROM sub_categories WHERE id = $1`},
	},
	KindMenuItem: {
		{"allergen links", `DELETE FROM menu_item_allergens WHERE menu_item_id = $1`},
		{"modifier links", `DELETE FROM menu_item_modifier_groups WHERE menu_item_id = $1`},
		{"menu item", `DELETE FROM menu_items WHERE id = $1`},
	},
	KindModifierGroup: {
		{"item links", `DELETE FROM menu_item_modifier_groups WHERE modifier_group_id = $1`},
		{"modifier items", `DELETE FROM modifier_items WHERE group_id = $1`},
		{"modifier group", `DELETE FROM modifier_groups WHERE id = $1`},
	},
	KindModifierItem: {
		{"modifier item", `DELETE FROM modifier_items WHERE id = $1`},
	},
	KindAllergen: {
		{"item links", `DELETE FROM menu_item_allergens WHERE allergen_id = $1`},
		{"allergen", `DELETE FROM allergens WHERE id = $1`},
	},
	KindAttribute: {
		{"item attribute keys", `UPDATE menu_items SET attributes = attributes - ($1::uuid)::text, updated_at = NOW()
			WHERE attributes ? ($1::uuid)::text`},
		{"attribute", `DELETE FROM attributes WHERE id = $1`},
	},
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Cascader executes CascadePolicy entries atomically.
type Cascader struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewCascader creates a cascade executor.
func NewCascader(pool *pgxpool.Pool, logger *zap.Logger) *Cascader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cascader{pool: pool, logger: logger}
}

// Delete removes the entity and its dependents in a single transaction.
func (c *Cascader) Delete(ctx context.Context, kind Kind, id uuid.UUID) error {
	err := database.InTx(ctx, c.pool, func(tx pgx.Tx) error {
		return runCascade(ctx, tx, kind, id)
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			c.logger.Error("cascade delete failed", zap.String("kind", string(kind)), zap.String("id", id.String()), zap.Error(err))
		}
		return apperr.FromDB(err, string(kind)+" not found")
	}
	c.logger.Info("cascade delete", zap.String("kind", string(kind)), zap.String("id", id.String()))
	return nil
}

// DeleteRestaurant removes a restaurant with its menu, modifier groups and orders.
func (c *Cascader) DeleteRestaurant(ctx context.Context, id uuid.UUID) error {
	return c.Delete(ctx, KindRestaurant, id)
}

func runCascade(ctx context.Context, ex execer, kind Kind, id uuid.UUID) error {
	steps, ok := CascadePolicy[kind]
	if !ok || len(steps) == 0 {
		return apperr.Validation("entity kind " + string(kind) + " cannot be deleted")
	}
	for i, s := range steps {
		tag, err := ex.Exec(ctx, s.SQL, id)
		if err != nil {
			return apperr.Internal(err)
		}
		if i == len(steps)-1 && tag.RowsAffected() == 0 {
			return apperr.NotFound(string(kind) + " not found")
		}
	}
	return nil
}
