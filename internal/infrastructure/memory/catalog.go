package memory

import (
	"context"
	"sync"

	domain "shopcore/internal/domain/catalog"
)

// Catalog is the in-memory product price source.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

func NewCatalog() *Catalog {
	return &Catalog{products: make(map[string]domain.Product)}
}

func (c *Catalog) Put(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *Catalog) Product(ctx context.Context, id string) (domain.Product, error) {
	_ = ctx

	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}
