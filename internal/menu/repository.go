package menu

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/menuportal/backend/internal/apperr"
)

// Repository handles menu persistence: categories, subcategories, items, modifiers and the
// tenant-wide allergen/attribute vocabulary.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a menu repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var ownerQueries = map[Kind]string{
	KindCategory:      `SELECT restaurant_id FROM menu_categories WHERE id = $1`,
	KindSubCategory:   `SELECT c.restaurant_id FROM sub_categories s JOIN menu_categories c ON c.id = s.category_id WHERE s.id = $1`,
	KindMenuItem:      `SELECT c.restaurant_id FROM menu_items i JOIN menu_categories c ON c.id = i.category_id WHERE i.id = $1`,
	KindModifierGroup: `SELECT restaurant_id FROM modifier_groups WHERE id = $1`,
	KindModifierItem:  `SELECT g.restaurant_id FROM modifier_items m JOIN modifier_groups g ON g.id = m.group_id WHERE m.id = $1`,
}

// OwnerRestaurant returns the restaurant an entity belongs to.
func (r *Repository) OwnerRestaurant(ctx context.Context, kind Kind, id uuid.UUID) (uuid.UUID, error) {
	q, ok := ownerQueries[kind]
	if !ok {
		return uuid.Nil, apperr.Internal(errors.New("no owner query for " + string(kind)))
	}
	var rid uuid.UUID
	err := r.pool.QueryRow(ctx, q, id).Scan(&rid)
	return rid, apperr.FromDB(err, string(kind)+" not found")
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, *v)
	}
	return out, apperr.FromDB(rows.Err(), "")
}

// writeErr maps constraint violations on insert/update to client errors.
func writeErr(err error, notFound string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return apperr.Validation("referenced entity does not exist")
		case "23505":
			return apperr.Conflict("duplicate " + pgErr.ConstraintName)
		case "23514":
			return apperr.Validation("value violates " + pgErr.ConstraintName)
		}
	}
	return apperr.FromDB(err, notFound)
}
