package menu

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/database"
)

const groupColumns = `id, restaurant_id, name, code, min_selection, max_selection, created_at, updated_at`
const modifierItemColumns = `id, group_id, name, price, is_available, sort_order, created_at`

func scanGroup(row pgx.Row) (*models.ModifierGroup, error) {
	var g models.ModifierGroup
	err := row.Scan(&g.ID, &g.RestaurantID, &g.Name, &g.Code, &g.MinSelection, &g.MaxSelection, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.Items = []models.ModifierItem{}
	return &g, nil
}

func scanModifierItem(row pgx.Row) (*models.ModifierItem, error) {
	var m models.ModifierItem
	if err := row.Scan(&m.ID, &m.GroupID, &m.Name, &m.Price, &m.IsAvailable, &m.SortOrder, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListModifierGroups returns groups with their items for the given restaurants (nil = all).
func (r *Repository) ListModifierGroups(ctx context.Context, restaurantIDs []uuid.UUID) ([]models.ModifierGroup, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+groupColumns+` FROM modifier_groups
		WHERE ($1::uuid[] IS NULL OR restaurant_id = ANY($1)) ORDER BY name, created_at`, restaurantIDs)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	groups, err := collect(rows, scanGroup)
	if err != nil || len(groups) == 0 {
		return groups, err
	}
	ids := make([]uuid.UUID, len(groups))
	index := make(map[uuid.UUID]int, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
		index[g.ID] = i
	}
	rows, err = r.pool.Query(ctx, `SELECT `+modifierItemColumns+` FROM modifier_items
		WHERE group_id = ANY($1) ORDER BY sort_order, created_at`, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	items, err := collect(rows, scanModifierItem)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		g := &groups[index[it.GroupID]]
		g.Items = append(g.Items, it)
	}
	return groups, nil
}

// GetModifierGroup returns a group with its items.
func (r *Repository) GetModifierGroup(ctx context.Context, id uuid.UUID) (*models.ModifierGroup, error) {
	g, err := scanGroup(r.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM modifier_groups WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "modifier group not found")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+modifierItemColumns+` FROM modifier_items WHERE group_id = $1
		ORDER BY sort_order, created_at`, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if g.Items, err = collect(rows, scanModifierItem); err != nil {
		return nil, err
	}
	return g, nil
}

// ModifierItemsByIDs loads modifier options by id.
func (r *Repository) ModifierItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ModifierItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+modifierItemColumns+` FROM modifier_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return collect(rows, scanModifierItem)
}

// FindModifierGroupByCode matches a group by its import code within a restaurant.
func (r *Repository) FindModifierGroupByCode(ctx context.Context, restaurantID uuid.UUID, code string) (*models.ModifierGroup, error) {
	g, err := scanGroup(r.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM modifier_groups
		WHERE restaurant_id = $1 AND code = $2 AND code <> '' ORDER BY created_at LIMIT 1`, restaurantID, code))
	return g, apperr.FromDB(err, "modifier group not found")
}

// FindModifierGroupByName matches a group within a restaurant case-insensitively. Uncoded groups
// sort first.
func (r *Repository) FindModifierGroupByName(ctx context.Context, restaurantID uuid.UUID, name string) (*models.ModifierGroup, error) {
	g, err := scanGroup(r.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM modifier_groups
		WHERE restaurant_id = $1 AND lower(name) = lower(btrim($2)) ORDER BY code <> '', created_at LIMIT 1`, restaurantID, name))
	return g, apperr.FromDB(err, "modifier group not found")
}

// CreateModifierGroup inserts a group and its items in one transaction.
func (r *Repository) CreateModifierGroup(ctx context.Context, g *models.ModifierGroup) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		created, err := scanGroup(tx.QueryRow(ctx, `INSERT INTO modifier_groups (restaurant_id, name, code, min_selection, max_selection)
			VALUES ($1, $2, $3, $4, $5) RETURNING `+groupColumns, g.RestaurantID, g.Name, g.Code, g.MinSelection, g.MaxSelection))
		if err != nil {
			return writeErr(err, "")
		}
		for i := range g.Items {
			it := g.Items[i]
			it.GroupID = created.ID
			if err := insertModifierItem(ctx, tx, &it); err != nil {
				return err
			}
			created.Items = append(created.Items, it)
		}
		*g = *created
		return nil
	})
}

// UpdateModifierGroup overwrites name, code and selection bounds.
func (r *Repository) UpdateModifierGroup(ctx context.Context, g *models.ModifierGroup) error {
	updated, err := scanGroup(r.pool.QueryRow(ctx, `UPDATE modifier_groups SET name = $2, code = $3, min_selection = $4,
		max_selection = $5, updated_at = NOW() WHERE id = $1 RETURNING `+groupColumns,
		g.ID, g.Name, g.Code, g.MinSelection, g.MaxSelection))
	if err != nil {
		return writeErr(err, "modifier group not found")
	}
	full, err := r.GetModifierGroup(ctx, updated.ID)
	if err != nil {
		return err
	}
	*g = *full
	return nil
}

// CreateModifierItem adds an option to a group.
func (r *Repository) CreateModifierItem(ctx context.Context, m *models.ModifierItem) error {
	return insertModifierItem(ctx, r.pool, m)
}

// UpdateModifierItem overwrites an option.
func (r *Repository) UpdateModifierItem(ctx context.Context, m *models.ModifierItem) error {
	updated, err := scanModifierItem(r.pool.QueryRow(ctx, `UPDATE modifier_items SET name = $2, price = $3, is_available = $4,
		sort_order = $5 WHERE id = $1 RETURNING `+modifierItemColumns, m.ID, m.Name, m.Price, m.IsAvailable, m.SortOrder))
	if err != nil {
		return writeErr(err, "modifier item not found")
	}
	*m = *updated
	return nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func insertModifierItem(ctx context.Context, q queryRower, m *models.ModifierItem) error {
	created, err := scanModifierItem(q.QueryRow(ctx, `INSERT INTO modifier_items (group_id, name, price, is_available, sort_order)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+modifierItemColumns, m.GroupID, m.Name, m.Price, m.IsAvailable, m.SortOrder))
	if err != nil {
		return writeErr(err, "")
	}
	*m = *created
	return nil
}
