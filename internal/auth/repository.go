package auth

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

const userColumns = `id, email, name, role, property_id, created_at, updated_at`

// Repository handles user profile persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PropertyID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, apperr.FromDB(err, "user not found")
}

// GetByEmail returns a user by email, case-insensitively.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	return u, apperr.FromDB(err, "user not found")
}

// List returns users, optionally limited to one property.
func (r *Repository) List(ctx context.Context, propertyID *uuid.UUID) ([]models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users`
	var args []interface{}
	if propertyID != nil {
		q += ` WHERE property_id = $1`
		args = append(args, *propertyID)
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY name, email`, args...)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()
	list := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		list = append(list, *u)
	}
	return list, apperr.FromDB(rows.Err(), "")
}

// Count returns the number of user profiles.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, apperr.FromDB(err, "")
}

// Create inserts a new user profile. A duplicate email is a conflict.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (email, name, role, property_id) VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	created, err := scanUser(r.pool.QueryRow(ctx, q, u.Email, u.Name, string(u.Role), u.PropertyID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("email already registered")
		}
		return apperr.Internal(err)
	}
	*u = *created
	return nil
}

// Delete removes a profile.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// IdentityRepository is the local identity provider's credential store.
type IdentityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository creates a credential store.
func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// PasswordHash returns the stored hash for email.
func (r *IdentityRepository) PasswordHash(ctx context.Context, email string) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `SELECT password_hash FROM identities WHERE lower(email) = lower($1)`, email).Scan(&hash)
	return hash, apperr.FromDB(err, "identity not found")
}

// Save stores a credential; an existing identity for the email is a conflict.
func (r *IdentityRepository) Save(ctx context.Context, email, hash string) error {
	tag, err := r.pool.Exec(ctx, `INSERT INTO identities (email, password_hash) VALUES (lower($1), $2)
		ON CONFLICT (email) DO NOTHING`, email, hash)
	if err != nil {
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("email already registered")
	}
	return nil
}
