package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopcore/internal/clock"
	"shopcore/internal/domain/order"
)

const orderColumns = `id, user_id, status, total_cents, payment_ref, idempotency_key, ordered_at, updated_at`

type OrderRepository struct {
	pool *pgxpool.Pool
	clk  clock.Clock
}

func NewOrderRepository(pool *pgxpool.Pool, clk clock.Clock) *OrderRepository {
	return &OrderRepository{pool: pool, clk: clk}
}

func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("insert order: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
INSERT INTO orders (`+orderColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.UserID, string(o.Status), o.TotalCents, o.PaymentRef, o.IdempotencyKey, o.OrderedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return order.ErrConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	if err := insertLines(ctx, tx, o.ID, o.Lines); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) List(ctx context.Context) ([]*order.Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY ordered_at, id`)
}

func (r *OrderRepository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*order.Order, error) {
	return r.queryOrders(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE status = $1 AND ordered_at < $2
ORDER BY ordered_at, id`, string(order.StatusPending), cutoff)
}

// Transition only touches the row while it still holds the expected
// status; a zero row count distinguishes a lost race from a missing row.
func (r *OrderRepository) Transition(ctx context.Context, id string, from, to order.Status) error {
	if !order.CanTransition(from, to) {
		return order.ErrConflict
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE orders SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2`,
		id, string(from), string(to), r.clk.Now(),
	)
	if err != nil {
		return fmt.Errorf("transition order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("transition order: %w", err)
		}
		if !exists {
			return order.ErrNotFound
		}
		return order.ErrConflict
	}
	return nil
}

func (r *OrderRepository) Override(ctx context.Context, id string, to order.Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(to), r.clk.Now())
	if err != nil {
		return fmt.Errorf("override order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) SetPaymentRef(ctx context.Context, id, ref string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET payment_ref = $2, updated_at = $3 WHERE id = $1`,
		id, ref, r.clk.Now())
	if err != nil {
		return fmt.Errorf("set payment ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) ReplaceLines(ctx context.Context, id string, lines []order.Line) error {
	total, err := order.SumLines(lines)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("replace lines: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE orders SET total_cents = $2, updated_at = $3 WHERE id = $1`,
		id, total, r.clk.Now())
	if err != nil {
		return fmt.Errorf("replace lines: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("replace lines: clear: %w", err)
	}
	if err := insertLines(ctx, tx, id, lines); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, userID, key string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE user_id = $1 AND idempotency_key = $2`, userID, key))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("find by idempotency: %w", err)
	}
	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) queryOrders(ctx context.Context, sql string, args ...any) ([]*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	for _, o := range out {
		if err := r.loadLines(ctx, o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *OrderRepository) loadLines(ctx context.Context, o *order.Order) error {
	rows, err := r.pool.Query(ctx, `
SELECT product_id, quantity, unit_price_cents
FROM order_lines
WHERE order_id = $1
ORDER BY position`, o.ID)
	if err != nil {
		return fmt.Errorf("load lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l order.Line
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.UnitPriceCents); err != nil {
			return fmt.Errorf("scan line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	var status string
	err := row.Scan(&o.ID, &o.UserID, &status, &o.TotalCents, &o.PaymentRef, &o.IdempotencyKey, &o.OrderedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	return &o, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, orderID string, lines []order.Line) error {
	for i, l := range lines {
		_, err := tx.Exec(ctx, `
INSERT INTO order_lines (order_id, position, product_id, quantity, unit_price_cents)
VALUES ($1, $2, $3, $4, $5)`,
			orderID, i, l.ProductID, l.Quantity, l.UnitPriceCents,
		)
		if err != nil {
			return fmt.Errorf("insert line: %w", err)
		}
	}
	return nil
}
