package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopcore/internal/domain/catalog"
)

type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) Product(ctx context.Context, id string) (catalog.Product, error) {
	var p catalog.Product
	err := c.pool.QueryRow(ctx, `SELECT id, name, price_cents FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.PriceCents)
	if err != nil {
		if err == pgx.ErrNoRows {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// UpsertProduct seeds or updates a product row. Used by the seeding path
// and by integration tests.
func (c *Catalog) UpsertProduct(ctx context.Context, p catalog.Product, stock int) error {
	_, err := c.pool.Exec(ctx, `
INSERT INTO products (id, name, price_cents, stock)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET name = $2, price_cents = $3, stock = $4`,
		p.ID, p.Name, p.PriceCents, stock,
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}
