package order

import (
	"context"
	"time"
)

// Repository persists orders and owns their status linearization.
type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]*Order, error)
	// ListPendingBefore returns orders still Pending whose OrderedAt is
	// strictly before the cutoff instant.
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*Order, error)
	// Transition applies a guarded status change: it succeeds only when the
	// stored status equals from, and returns ErrConflict otherwise. This is
	// the single serialization point for racing confirmations and sweeps.
	Transition(ctx context.Context, id string, from, to Status) error
	// Override sets the status directly, bypassing the transition table.
	// Administrative use only; callers are responsible for consistency.
	Override(ctx context.Context, id string, to Status) error
	// SetPaymentRef records the provider reference of the active intent.
	SetPaymentRef(ctx context.Context, id, ref string) error
	// ReplaceLines swaps the full line set and recomputes the total.
	ReplaceLines(ctx context.Context, id string, lines []Line) error
	Delete(ctx context.Context, id string) error
	FindByIdempotency(ctx context.Context, userID, key string) (*Order, error)
}
