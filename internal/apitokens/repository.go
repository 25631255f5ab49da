package apitokens

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
)

const tokenColumns = `id, name, token_hash, token_preview, restaurant_id, property_id, is_active,
	expires_at, last_used_at, created_by, created_at`

// Repository handles api_tokens persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an API token repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanToken(row pgx.Row) (*models.APIToken, error) {
	var t models.APIToken
	err := row.Scan(&t.ID, &t.Name, &t.TokenHash, &t.TokenPreview, &t.RestaurantID, &t.PropertyID,
		&t.IsActive, &t.ExpiresAt, &t.LastUsedAt, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a token. Only the hash and preview are persisted.
func (r *Repository) Create(ctx context.Context, t *models.APIToken) error {
	const q = `INSERT INTO api_tokens (name, token_hash, token_preview, restaurant_id, property_id, is_active, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING ` + tokenColumns
	created, err := scanToken(r.pool.QueryRow(ctx, q, t.Name, t.TokenHash, t.TokenPreview, t.RestaurantID,
		t.PropertyID, t.IsActive, t.ExpiresAt, t.CreatedBy))
	if err != nil {
		return apperr.Internal(err)
	}
	raw := t.Token
	*t = *created
	t.Token = raw
	return nil
}

// List returns all tokens, newest first.
func (r *Repository) List(ctx context.Context) ([]models.APIToken, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tokenColumns+` FROM api_tokens ORDER BY created_at DESC`)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()
	list := []models.APIToken{}
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		list = append(list, *t)
	}
	return list, apperr.FromDB(rows.Err(), "")
}

// GetByID returns a token by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.APIToken, error) {
	t, err := scanToken(r.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM api_tokens WHERE id = $1`, id))
	return t, apperr.FromDB(err, "api token not found")
}

// GetByHash returns the token whose secret hashes to hash.
func (r *Repository) GetByHash(ctx context.Context, hash string) (*models.APIToken, error) {
	t, err := scanToken(r.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM api_tokens WHERE token_hash = $1`, hash))
	return t, apperr.FromDB(err, "api token not found")
}

// SetActive flips the revocation flag.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.APIToken, error) {
	t, err := scanToken(r.pool.QueryRow(ctx,
		`UPDATE api_tokens SET is_active = $2 WHERE id = $1 RETURNING `+tokenColumns, id, active))
	return t, apperr.FromDB(err, "api token not found")
}

// Delete removes a token.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM api_tokens WHERE id = $1`, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("api token not found")
	}
	return nil
}

// Touch stamps last_used_at, never moving it backwards.
func (r *Repository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_tokens SET last_used_at = $2
		WHERE id = $1 AND (last_used_at IS NULL OR last_used_at < $2)`, id, at)
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}
