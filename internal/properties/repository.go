package properties

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
)

const propertyColumns = `id, name, address, created_at, updated_at`

// Repository handles property persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a properties repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	if err := row.Scan(&p.ID, &p.Name, &p.Address, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns properties ordered by name. A non-nil only limits the result to that id.
func (r *Repository) List(ctx context.Context, only *uuid.UUID) ([]models.Property, error) {
	q := `SELECT ` + propertyColumns + ` FROM properties`
	var args []interface{}
	if only != nil {
		q += ` WHERE id = $1`
		args = append(args, *only)
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY name, created_at`, args...)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()
	list := []models.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		list = append(list, *p)
	}
	return list, apperr.FromDB(rows.Err(), "")
}

// GetByID returns a property by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	p, err := scanProperty(r.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id))
	return p, apperr.FromDB(err, "property not found")
}

// Create inserts a property.
func (r *Repository) Create(ctx context.Context, p *models.Property) error {
	created, err := scanProperty(r.pool.QueryRow(ctx,
		`INSERT INTO properties (name, address) VALUES ($1, $2) RETURNING `+propertyColumns, p.Name, p.Address))
	if err != nil {
		return apperr.Internal(err)
	}
	*p = *created
	return nil
}

// Update overwrites name and address.
func (r *Repository) Update(ctx context.Context, p *models.Property) error {
	updated, err := scanProperty(r.pool.QueryRow(ctx,
		`UPDATE properties SET name = $2, address = $3, updated_at = NOW() WHERE id = $1 RETURNING `+propertyColumns,
		p.ID, p.Name, p.Address))
	if err != nil {
		return apperr.FromDB(err, "property not found")
	}
	*p = *updated
	return nil
}

// Delete removes a property. Properties that still own restaurants cannot be deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.Conflict("property still has restaurants")
		}
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("property not found")
	}
	return nil
}
