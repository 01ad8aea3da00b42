package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopcore/internal/domain/inventory"
)

// InventoryLedger stores stock in the products table. The conditional
// UPDATE takes the row lock, so competing reservations for the last units
// serialize inside Postgres and at most one of them wins.
type InventoryLedger struct {
	pool *pgxpool.Pool
}

func NewInventoryLedger(pool *pgxpool.Pool) *InventoryLedger {
	return &InventoryLedger{pool: pool}
}

func (l *InventoryLedger) TryReserve(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return inventory.ErrInvalidQuantity
	}

	tag, err := l.pool.Exec(ctx, `
UPDATE products SET stock = stock - $2
WHERE id = $1 AND stock >= $2`,
		productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := l.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
			return fmt.Errorf("reserve stock: %w", err)
		}
		if !exists {
			return inventory.ErrNotFound
		}
		return inventory.ErrInsufficientStock
	}
	return nil
}

func (l *InventoryLedger) Release(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return inventory.ErrInvalidQuantity
	}

	tag, err := l.pool.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id = $1`,
		productID, quantity)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

func (l *InventoryLedger) Stock(ctx context.Context, productID string) (int, error) {
	var stock int
	err := l.pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, inventory.ErrNotFound
		}
		return 0, fmt.Errorf("read stock: %w", err)
	}
	return stock, nil
}
