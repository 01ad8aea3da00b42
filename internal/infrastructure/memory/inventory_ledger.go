package memory

import (
	"context"
	"sync"

	domain "shopcore/internal/domain/inventory"
)

// InventoryLedger holds stock counts in memory. The mutex is the
// serialization point that linearizes per-product decrements.
type InventoryLedger struct {
	mu    sync.Mutex
	stock map[string]int
}

func NewInventoryLedger() *InventoryLedger {
	return &InventoryLedger{stock: make(map[string]int)}
}

// Seed sets the stock for a product, creating the record if needed.
func (l *InventoryLedger) Seed(productID string, stock int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[productID] = stock
}

func (l *InventoryLedger) TryReserve(ctx context.Context, productID string, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stock, ok := l.stock[productID]
	if !ok {
		return domain.ErrNotFound
	}
	if stock < quantity {
		return domain.ErrInsufficientStock
	}
	l.stock[productID] = stock - quantity
	return nil
}

func (l *InventoryLedger) Release(ctx context.Context, productID string, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stock, ok := l.stock[productID]
	if !ok {
		return domain.ErrNotFound
	}
	l.stock[productID] = stock + quantity
	return nil
}

func (l *InventoryLedger) Stock(ctx context.Context, productID string) (int, error) {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	stock, ok := l.stock[productID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return stock, nil
}
