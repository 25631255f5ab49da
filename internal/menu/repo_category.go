package menu

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
)

const categoryColumns = `id, restaurant_id, name, description, sort_order, is_active, created_at, updated_at`
const subCategoryColumns = `id, category_id, name, description, sort_order, is_active, created_at, updated_at`

func scanCategory(row pgx.Row) (*models.MenuCategory, error) {
	var c models.MenuCategory
	err := row.Scan(&c.ID, &c.RestaurantID, &c.Name, &c.Description, &c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanSubCategory(row pgx.Row) (*models.SubCategory, error) {
	var s models.SubCategory
	err := row.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Description, &s.SortOrder, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListCategories returns categories ordered by sort order then creation. restaurantIDs limits the
// result; nil means all restaurants.
func (r *Repository) ListCategories(ctx context.Context, restaurantIDs []uuid.UUID, activeOnly bool) ([]models.MenuCategory, error) {
	q := `SELECT ` + categoryColumns + ` FROM menu_categories
		WHERE ($1::uuid[] IS NULL OR restaurant_id = ANY($1)) AND (NOT $2 OR is_active)
		ORDER BY sort_order, created_at`
	rows, err := r.pool.Query(ctx, q, restaurantIDs, activeOnly)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return collect(rows, scanCategory)
}

// GetCategory returns a category by id.
func (r *Repository) GetCategory(ctx context.Context, id uuid.UUID) (*models.MenuCategory, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM menu_categories WHERE id = $1`, id))
	return c, apperr.FromDB(err, "category not found")
}

// FindCategoryByName matches a category within a restaurant case-insensitively. The oldest match
// wins when names collide.
func (r *Repository) FindCategoryByName(ctx context.Context, restaurantID uuid.UUID, name string) (*models.MenuCategory, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM menu_categories
		WHERE restaurant_id = $1 AND lower(name) = lower(btrim($2)) ORDER BY created_at LIMIT 1`, restaurantID, name))
	return c, apperr.FromDB(err, "category not found")
}

// CreateCategory inserts a category.
func (r *Repository) CreateCategory(ctx context.Context, c *models.MenuCategory) error {
	const q = `INSERT INTO menu_categories (restaurant_id, name, description, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING ` + categoryColumns
	created, err := scanCategory(r.pool.QueryRow(ctx, q, c.RestaurantID, c.Name, c.Description, c.SortOrder, c.IsActive))
	if err != nil {
		return writeErr(err, "")
	}
	*c = *created
	return nil
}

// UpdateCategory overwrites the editable fields. The owning restaurant never changes.
func (r *Repository) UpdateCategory(ctx context.Context, c *models.MenuCategory) error {
	const q = `UPDATE menu_categories SET name = $2, description = $3, sort_order = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1 RETURNING ` + categoryColumns
	updated, err := scanCategory(r.pool.QueryRow(ctx, q, c.ID, c.Name, c.Description, c.SortOrder, c.IsActive))
	if err != nil {
		return writeErr(err, "category not found")
	}
	*c = *updated
	return nil
}

// ListSubCategories returns subcategories of the given categories (nil = all), ordered per parent.
func (r *Repository) ListSubCategories(ctx context.Context, categoryIDs []uuid.UUID, activeOnly bool) ([]models.SubCategory, error) {
	q := `SELECT ` + subCategoryColumns + ` FROM sub_categories
		WHERE ($1::uuid[] IS NULL OR category_id = ANY($1)) AND (NOT $2 OR is_active)
		ORDER BY category_id, sort_order, created_at`
	rows, err := r.pool.Query(ctx, q, categoryIDs, activeOnly)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return collect(rows, scanSubCategory)
}

// GetSubCategory returns a subcategory by id.
func (r *Repository) GetSubCategory(ctx context.Context, id uuid.UUID) (*models.SubCategory, error) {
	s, err := scanSubCategory(r.pool.QueryRow(ctx, `SELECT `+subCategoryColumns+` FROM sub_categories WHERE id = $1`, id))
	return s, apperr.FromDB(err, "subcategory not found")
}

// FindSubCategoryByName matches a subcategory within its parent case-insensitively.
func (r *Repository) FindSubCategoryByName(ctx context.Context, categoryID uuid.UUID, name string) (*models.SubCategory, error) {
	s, err := scanSubCategory(r.pool.QueryRow(ctx, `SELECT `+subCategoryColumns+` FROM sub_categories
		WHERE category_id = $1 AND lower(name) = lower(btrim($2)) ORDER BY created_at LIMIT 1`, categoryID, name))
	return s, apperr.FromDB(err, "subcategory not found")
}

// CreateSubCategory inserts a subcategory.
func (r *Repository) CreateSubCategory(ctx context.Context, s *models.SubCategory) error {
	const q = `INSERT INTO sub_categories (category_id, name, description, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING ` + subCategoryColumns
	created, err := scanSubCategory(r.pool.QueryRow(ctx, q, s.CategoryID, s.Name, s.Description, s.SortOrder, s.IsActive))
	if err != nil {
		return writeErr(err, "")
	}
	*s = *created
	return nil
}

// UpdateSubCategory overwrites the editable fields.
func (r *Repository) UpdateSubCategory(ctx context.Context, s *models.SubCategory) error {
	const q = `UPDATE sub_categories SET name = $2, description = $3, sort_order = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1 RETURNING ` + subCategoryColumns
	updated, err := scanSubCategory(r.pool.QueryRow(ctx, q, s.ID, s.Name, s.Description, s.SortOrder, s.IsActive))
	if err != nil {
		return writeErr(err, "subcategory not found")
	}
	*s = *updated
	return nil
}
