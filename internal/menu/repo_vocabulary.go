package menu

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
)

func scanAllergen(row pgx.Row) (*models.Allergen, error) {
	var a models.Allergen
	if err := row.Scan(&a.ID, &a.Name, &a.Icon, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAttribute(row pgx.Row) (*models.Attribute, error) {
	var a models.Attribute
	if err := row.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAllergens returns the allergen vocabulary by name.
func (r *Repository) ListAllergens(ctx context.Context) ([]models.Allergen, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, icon, created_at FROM allergens ORDER BY name`)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return collect(rows, scanAllergen)
}

// CreateAllergen inserts an allergen; names are unique.
func (r *Repository) CreateAllergen(ctx context.Context, a *models.Allergen) error {
	created, err := scanAllergen(r.pool.QueryRow(ctx,
		`INSERT INTO allergens (name, icon) VALUES ($1, $2) RETURNING id, name, icon, created_at`, a.Name, a.Icon))
	if err != nil {
		return writeErr(err, "")
	}
	*a = *created
	return nil
}

// UpdateAllergen renames an allergen.
func (r *Repository) UpdateAllergen(ctx context.Context, a *models.Allergen) error {
	updated, err := scanAllergen(r.pool.QueryRow(ctx,
		`UPDATE allergens SET name = $2, icon = $3 WHERE id = $1 RETURNING id, name, icon, created_at`, a.ID, a.Name, a.Icon))
	if err != nil {
		return writeErr(err, "allergen not found")
	}
	*a = *updated
	return nil
}

// ListAttributes returns the attribute vocabulary by name.
func (r *Repository) ListAttributes(ctx context.Context) ([]models.Attribute, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM attributes ORDER BY name`)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return collect(rows, scanAttribute)
}

// CreateAttribute inserts an attribute; names are unique.
func (r *Repository) CreateAttribute(ctx context.Context, a *models.Attribute) error {
	created, err := scanAttribute(r.pool.QueryRow(ctx,
		`INSERT INTO attributes (name) VALUES ($1) RETURNING id, name, created_at`, a.Name))
	if err != nil {
		return writeErr(err, "")
	}
	*a = *created
	return nil
}

// UpdateAttribute renames an attribute.
func (r *Repository) UpdateAttribute(ctx context.Context, a *models.Attribute) error {
	updated, err := scanAttribute(r.pool.QueryRow(ctx,
		`UPDATE attributes SET name = $2 WHERE id = $1 RETURNING id, name, created_at`, a.ID, a.Name))
	if err != nil {
		return writeErr(err, "attribute not found")
	}
	*a = *updated
	return nil
}

// AttributeIDs returns the ids of all attributes, used to validate item attribute maps.
func (r *Repository) AttributeIDs(ctx context.Context) (map[uuid.UUID]bool, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM attributes`)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()
	out := map[uuid.UUID]bool{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Internal(err)
		}
		out[id] = true
	}
	return out, apperr.FromDB(rows.Err(), "")
}
