package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("catalog: product not found")

// Product is the read-side view the order core consumes. Catalog management
// itself lives outside the core; the coordinator only needs current unit
// prices to snapshot them.
type Product struct {
	ID         string
	Name       string
	PriceCents int64
}

type Source interface {
	Product(ctx context.Context, id string) (Product, error)
}
