package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shopcore/internal/clock"
	domain "shopcore/internal/domain/order"
)

// OrderRepository is the in-memory Order Store. The mutex makes every
// guarded transition atomic, so a confirmation and a sweep racing on the
// same order see exactly one winner.
type OrderRepository struct {
	mu          sync.RWMutex
	orders      map[string]*domain.Order
	idempotency map[string]string // userID+"\x00"+key -> orderID
	clk         clock.Clock
}

func NewOrderRepository(clk clock.Clock) *OrderRepository {
	return &OrderRepository{
		orders:      make(map[string]*domain.Order),
		idempotency: make(map[string]string),
		clk:         clk,
	}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return domain.ErrConflict
	}
	if key := o.IdempotencyKey; key != "" {
		if existingID, exists := r.idempotency[idemKey(o.UserID, key)]; exists {
			if _, ok := r.orders[existingID]; ok {
				return domain.ErrConflict
			}
		}
	}

	r.orders[o.ID] = o.Clone()
	if key := o.IdempotencyKey; key != "" {
		r.idempotency[idemKey(o.UserID, key)] = o.ID
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderedAt.Before(out[j].OrderedAt) })
	return out, nil
}

func (r *OrderRepository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Order
	for _, o := range r.orders {
		if o.Status == domain.StatusPending && o.OrderedAt.Before(cutoff) {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}

func (r *OrderRepository) Transition(ctx context.Context, id string, from, to domain.Status) error {
	_ = ctx
	if !domain.CanTransition(from, to) {
		return domain.ErrConflict
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != from {
		return domain.ErrConflict
	}
	o.Status = to
	o.UpdatedAt = r.clk.Now().UTC()
	return nil
}

func (r *OrderRepository) Override(ctx context.Context, id string, to domain.Status) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = to
	o.UpdatedAt = r.clk.Now().UTC()
	return nil
}

func (r *OrderRepository) SetPaymentRef(ctx context.Context, id, ref string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.PaymentRef = ref
	o.UpdatedAt = r.clk.Now().UTC()
	return nil
}

func (r *OrderRepository) ReplaceLines(ctx context.Context, id string, lines []domain.Line) error {
	_ = ctx
	total, err := domain.SumLines(lines)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Lines = append([]domain.Line(nil), lines...)
	o.TotalCents = total
	o.UpdatedAt = r.clk.Now().UTC()
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !o.Deletable() {
		return domain.ErrNotDeletable
	}
	delete(r.orders, id)
	return nil
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, userID, key string) (*domain.Order, error) {
	_ = ctx
	if key == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	orderID, ok := r.idempotency[idemKey(userID, key)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o, found := r.orders[orderID]
	if !found {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func idemKey(userID, key string) string {
	return userID + "\x00" + key
}
