package restaurants

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
)

const restaurantColumns = `id, property_id, name, description, location, is_active, created_at, updated_at`

// Repository handles restaurant persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a restaurants repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRestaurant(row pgx.Row) (*models.Restaurant, error) {
	var r models.Restaurant
	err := row.Scan(&r.ID, &r.PropertyID, &r.Name, &r.Description, &r.Location, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Filter narrows List. Zero values mean no restriction.
type Filter struct {
	PropertyID   *uuid.UUID
	RestaurantID *uuid.UUID
}

// List returns restaurants ordered by name.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.Restaurant, error) {
	q := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE TRUE`
	var args []interface{}
	if f.PropertyID != nil {
		args = append(args, *f.PropertyID)
		q += ` AND property_id = $1`
	}
	if f.RestaurantID != nil {
		args = append(args, *f.RestaurantID)
		q += ` AND id = $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY name, created_at`, args...)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()
	list := []models.Restaurant{}
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		list = append(list, *rest)
	}
	return list, apperr.FromDB(rows.Err(), "")
}

// GetByID returns a restaurant by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	rest, err := scanRestaurant(r.pool.QueryRow(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`, id))
	return rest, apperr.FromDB(err, "restaurant not found")
}

// Create inserts a restaurant. An unknown property is a validation error.
func (r *Repository) Create(ctx context.Context, rest *models.Restaurant) error {
	const q = `INSERT INTO restaurants (property_id, name, description, location, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING ` + restaurantColumns
	created, err := scanRestaurant(r.pool.QueryRow(ctx, q, rest.PropertyID, rest.Name, rest.Description, rest.Location, rest.IsActive))
	if err != nil {
		return mapWriteErr(err)
	}
	*rest = *created
	return nil
}

// Update overwrites the editable fields.
func (r *Repository) Update(ctx context.Context, rest *models.Restaurant) error {
	const q = `UPDATE restaurants SET property_id = $2, name = $3, description = $4, location = $5,
		is_active = $6, updated_at = NOW() WHERE id = $1 RETURNING ` + restaurantColumns
	updated, err := scanRestaurant(r.pool.QueryRow(ctx, q, rest.ID, rest.PropertyID, rest.Name, rest.Description, rest.Location, rest.IsActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("restaurant not found")
		}
		return mapWriteErr(err)
	}
	*rest = *updated
	return nil
}

// RestaurantProperty returns the property owning a restaurant.
func (r *Repository) RestaurantProperty(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var prop uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT property_id FROM restaurants WHERE id = $1`, id).Scan(&prop)
	return prop, apperr.FromDB(err, "restaurant not found")
}

// PropertyExists returns NotFound when the property id is unknown.
func (r *Repository) PropertyExists(ctx context.Context, id uuid.UUID) error {
	var ok bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM properties WHERE id = $1)`, id).Scan(&ok); err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.NotFound("property not found")
	}
	return nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return apperr.Validation("property does not exist")
	}
	return apperr.Internal(err)
}
