package inventory

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("inventory: product not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// Record is the authoritative stock count for one product. Stock never goes
// negative; all mutation happens through the Ledger contract.
type Record struct {
	ProductID string
	Stock     int
}

// Ledger supports atomic conditional decrements. TryReserve must be
// indivisible per product under concurrent callers: two reservations
// competing for the last units must not both succeed.
type Ledger interface {
	// TryReserve decrements stock by quantity when stock >= quantity and
	// fails without mutation otherwise.
	TryReserve(ctx context.Context, productID string, quantity int) error
	// Release re-credits a reservation. Callers guarantee single invocation
	// per reservation; they hold the order's terminal-transition win.
	Release(ctx context.Context, productID string, quantity int) error
	Stock(ctx context.Context, productID string) (int, error)
}
