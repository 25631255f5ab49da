package menu

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/database"
)

const itemColumns = `i.id, i.category_id, i.sub_category_id, i.name, i.description, i.price, i.currency,
	i.is_available, i.sold_out, i.item_code, i.image_url, i.sort_order, i.attributes,
	COALESCE(ARRAY(SELECT allergen_id FROM menu_item_allergens a WHERE a.menu_item_id = i.id), '{}'),
	COALESCE(ARRAY(SELECT modifier_group_id FROM menu_item_modifier_groups g WHERE g.menu_item_id = i.id), '{}'),
	i.created_at, i.updated_at`

func scanItem(row pgx.Row) (*models.MenuItem, error) {
	var m models.MenuItem
	err := row.Scan(&m.ID, &m.CategoryID, &m.SubCategoryID, &m.Name, &m.Description, &m.Price, &m.Currency,
		&m.IsAvailable, &m.SoldOut, &m.ItemCode, &m.ImageURL, &m.SortOrder, &m.Attributes,
		&m.AllergenIDs, &m.ModifierGroupIDs, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if m.Attributes == nil {
		m.Attributes = map[string]string{}
	}
	return &m, nil
}

// ItemFilter narrows ListItems. Nil fields are ignored.
type ItemFilter struct {
	RestaurantIDs []uuid.UUID
	CategoryID    *uuid.UUID
	SubCategoryID *uuid.UUID
	AvailableOnly bool
}

// ListItems returns menu items ordered by sort order then creation.
func (r *Repository) ListItems(ctx context.Context, f ItemFilter) ([]models.MenuItem, error) {
	q := `SELECT ` + itemColumns + ` FROM menu_items i JOIN menu_categories c ON c.id = i.category_id
		WHERE ($1::uuid[] IS NULL OR c.restaurant_id = ANY($1))
		  AND ($2::uuid IS NULL OR i.category_id = $2)
		  AND ($3::uuid IS NULL OR i.sub_category_id = $3)
		  AND (NOT $4 OR i.is_available)
		ORDER BY i.sort_order, i.created_at`
	rows, err := r.pool.Query(ctx, q, f.RestaurantIDs, f.CategoryID, f.SubCategoryID, f.AvailableOnly)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return collect(rows, scanItem)
}

// GetItem returns a menu item with its allergen and modifier-group links.
func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	m, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM menu_items i WHERE i.id = $1`, id))
	return m, apperr.FromDB(err, "menu item not found")
}

// ItemsByIDs returns the listed items that belong to the restaurant; foreign ids are left out.
func (r *Repository) ItemsByIDs(ctx context.Context, restaurantID uuid.UUID, ids []uuid.UUID) ([]models.MenuItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM menu_items i JOIN menu_categories c ON c.id = i.category_id
		WHERE c.restaurant_id = $1 AND i.id = ANY($2)`, restaurantID, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return collect(rows, scanItem)
}

// FindItemByCode matches an item by its import key within a category.
func (r *Repository) FindItemByCode(ctx context.Context, categoryID uuid.UUID, code string) (*models.MenuItem, error) {
	m, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM menu_items i
		WHERE i.category_id = $1 AND i.item_code = $2 ORDER BY i.created_at LIMIT 1`, categoryID, code))
	return m, apperr.FromDB(err, "menu item not found")
}

// CreateItem inserts an item and its link rows in one transaction.
func (r *Repository) CreateItem(ctx context.Context, m *models.MenuItem) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id uuid.UUID
		err := tx.QueryRow(ctx, `INSERT INTO menu_items (category_id, sub_category_id, name, description, price, currency,
			is_available, sold_out, item_code, image_url, sort_order, attributes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
			m.CategoryID, m.SubCategoryID, m.Name, m.Description, m.Price, currencyOrDefault(m.Currency),
			m.IsAvailable, m.SoldOut, m.ItemCode, m.ImageURL, m.SortOrder, attributesOrEmpty(m.Attributes)).Scan(&id)
		if err != nil {
			return writeErr(err, "")
		}
		if err := replaceLinks(ctx, tx, id, m.AllergenIDs, m.ModifierGroupIDs); err != nil {
			return err
		}
		created, err := scanItem(tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM menu_items i WHERE i.id = $1`, id))
		if err != nil {
			return apperr.Internal(err)
		}
		*m = *created
		return nil
	})
}

// UpdateItem overwrites an item and replaces its link rows in one transaction.
func (r *Repository) UpdateItem(ctx context.Context, m *models.MenuItem) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE menu_items SET category_id = $2, sub_category_id = $3, name = $4, description = $5,
			price = $6, currency = $7, is_available = $8, sold_out = $9, item_code = $10, image_url = $11,
			sort_order = $12, attributes = $13, updated_at = NOW() WHERE id = $1`,
			m.ID, m.CategoryID, m.SubCategoryID, m.Name, m.Description, m.Price, currencyOrDefault(m.Currency),
			m.IsAvailable, m.SoldOut, m.ItemCode, m.ImageURL, m.SortOrder, attributesOrEmpty(m.Attributes))
		if err != nil {
			return writeErr(err, "")
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("menu item not found")
		}
		if err := replaceLinks(ctx, tx, m.ID, m.AllergenIDs, m.ModifierGroupIDs); err != nil {
			return err
		}
		updated, err := scanItem(tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM menu_items i WHERE i.id = $1`, m.ID))
		if err != nil {
			return apperr.Internal(err)
		}
		*m = *updated
		return nil
	})
}

// SetAvailability flips the two independent availability flags.
func (r *Repository) SetAvailability(ctx context.Context, id uuid.UUID, available, soldOut bool) (*models.MenuItem, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE menu_items SET is_available = $2, sold_out = $3, updated_at = NOW() WHERE id = $1`,
		id, available, soldOut)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("menu item not found")
	}
	return r.GetItem(ctx, id)
}

func replaceLinks(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, allergens, groups []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM menu_item_allergens WHERE menu_item_id = $1`, itemID); err != nil {
		return apperr.Internal(err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM menu_item_modifier_groups WHERE menu_item_id = $1`, itemID); err != nil {
		return apperr.Internal(err)
	}
	if len(allergens) > 0 {
		_, err := tx.Exec(ctx, `INSERT INTO menu_item_allergens (menu_item_id, allergen_id)
			SELECT $1, unnest($2::uuid[]) ON CONFLICT DO NOTHING`, itemID, allergens)
		if err != nil {
			return writeErr(err, "")
		}
	}
	if len(groups) > 0 {
		_, err := tx.Exec(ctx, `INSERT INTO menu_item_modifier_groups (menu_item_id, modifier_group_id)
			SELECT $1, unnest($2::uuid[]) ON CONFLICT DO NOTHING`, itemID, groups)
		if err != nil {
			return writeErr(err, "")
		}
	}
	return nil
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "USD"
	}
	return c
}

func attributesOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
