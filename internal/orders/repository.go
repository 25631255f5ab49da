package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/pkg/database"
)

const orderColumns = `id, restaurant_id, table_number, customer_name, notes, status, total, currency, placed_at, updated_at`

const lineColumns = `id, order_id, menu_item_id, name, quantity, unit_price, modifiers, line_total`

// Repository is the pgx-backed order store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an order repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanOrder(row pgx.Row) (*models.LiveOrder, error) {
	var o models.LiveOrder
	err := row.Scan(&o.ID, &o.RestaurantID, &o.TableNumber, &o.CustomerName, &o.Notes, &o.Status,
		&o.Total, &o.Currency, &o.PlacedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Items = []models.OrderLine{}
	return &o, nil
}

func scanLine(row pgx.Row) (*models.OrderLine, error) {
	var l models.OrderLine
	if err := row.Scan(&l.ID, &l.OrderID, &l.MenuItemID, &l.Name, &l.Quantity, &l.UnitPrice, &l.Modifiers, &l.LineTotal); err != nil {
		return nil, err
	}
	if l.Modifiers == nil {
		l.Modifiers = []models.OrderLineModifier{}
	}
	return &l, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// attachLines loads the lines of every order in one query.
func attachLines(ctx context.Context, q querier, orders []*models.LiveOrder) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(orders))
	byID := make(map[uuid.UUID]*models.LiveOrder, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM live_order_items
		WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return apperr.Internal(err)
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return apperr.Internal(err)
		}
		if o, ok := byID[l.OrderID]; ok {
			o.Items = append(o.Items, *l)
		}
	}
	if err := rows.Err(); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Get returns an order with its lines.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.LiveOrder, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM live_orders WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "order not found")
	}
	if err := attachLines(ctx, r.pool, []*models.LiveOrder{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// List returns orders oldest first. Completed orders are left out unless asked for.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.LiveOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM live_orders
		WHERE ($1::uuid[] IS NULL OR restaurant_id = ANY($1))
		  AND ($2 OR status <> 'Completed')
		ORDER BY placed_at, id`, f.RestaurantIDs, f.IncludeCompleted)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()
	var ptrs []*models.LiveOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err)
	}
	if err := attachLines(ctx, r.pool, ptrs); err != nil {
		return nil, err
	}
	out := make([]models.LiveOrder, 0, len(ptrs))
	for _, o := range ptrs {
		out = append(out, *o)
	}
	return out, nil
}

// Insert stores the order, its lines and the initial status log entry in one transaction.
func (r *Repository) Insert(ctx context.Context, o *models.LiveOrder, actor string) error {
	err := database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO live_orders (restaurant_id, table_number, customer_name, notes, status, total, currency)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, placed_at, updated_at`,
			o.RestaurantID, o.TableNumber, o.CustomerName, o.Notes, o.Status, o.Total, o.Currency).
			Scan(&o.ID, &o.PlacedAt, &o.UpdatedAt)
		if err != nil {
			return err
		}
		for i := range o.Items {
			l := &o.Items[i]
			l.OrderID = o.ID
			err := tx.QueryRow(ctx, `INSERT INTO live_order_items (order_id, menu_item_id, name, quantity, unit_price, modifiers, line_total, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
				o.ID, l.MenuItemID, l.Name, l.Quantity, l.UnitPrice, l.Modifiers, l.LineTotal, i).Scan(&l.ID)
			if err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `INSERT INTO order_status_log (order_id, status, changed_by) VALUES ($1, $2, $3)`,
			o.ID, o.Status, actor)
		return err
	})
	return apperr.FromDB(err, "restaurant not found")
}

// Transition is a guarded single-row update plus a log entry. A row that is no longer in from
// means another client moved the order first.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, actor string) (*models.LiveOrder, error) {
	var o *models.LiveOrder
	err := database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		o, err = scanOrder(tx.QueryRow(ctx, `UPDATE live_orders SET status = $3, updated_at = NOW()
			WHERE id = $1 AND status = $2 RETURNING `+orderColumns, id, from, to))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.InvalidTransition("order was already moved past " + string(from))
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO order_status_log (order_id, status, changed_by) VALUES ($1, $2, $3)`,
			id, to, actor); err != nil {
			return err
		}
		return attachLines(ctx, tx, []*models.LiveOrder{o})
	})
	if err != nil {
		return nil, apperr.FromDB(err, "order not found")
	}
	return o, nil
}

// History returns the status log of an order, oldest first.
func (r *Repository) History(ctx context.Context, id uuid.UUID) ([]models.OrderStatusLog, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM live_orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, apperr.Internal(err)
	}
	if !exists {
		return nil, apperr.NotFound("order not found")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, status, changed_by, changed_at FROM order_status_log
		WHERE order_id = $1 ORDER BY changed_at, id`, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()
	out := []models.OrderStatusLog{}
	for rows.Next() {
		var e models.OrderStatusLog
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}
