package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shopcore/internal/clock"
	"shopcore/internal/domain/catalog"
	"shopcore/internal/domain/inventory"
	domain "shopcore/internal/domain/order"
)

func newOrder(t *testing.T, id, userID, idemKey string, orderedAt time.Time) *domain.Order {
	t.Helper()
	o, err := domain.New(id, userID, idemKey,
		[]domain.Line{{ProductID: "p1", Quantity: 1, UnitPriceCents: 100}}, orderedAt)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestOrderRepositoryInsertAndGet(t *testing.T) {
	repo := NewOrderRepository(clock.NewSystem())
	ctx := context.Background()
	now := time.Now().UTC()

	o := newOrder(t, "order-1", "user-1", "key-1", now)
	if err := repo.Insert(ctx, o); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "user-1" || got.Status != domain.StatusPending {
		t.Errorf("unexpected order: %+v", got)
	}

	// The stored copy must be isolated from caller mutation.
	got.Status = domain.StatusShipped
	reread, _ := repo.Get(ctx, "order-1")
	if reread.Status != domain.StatusPending {
		t.Error("repository leaked internal state")
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
	if err := repo.Insert(ctx, newOrder(t, "order-1", "user-1", "", now)); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate id: want ErrConflict, got %v", err)
	}
	if err := repo.Insert(ctx, newOrder(t, "order-2", "user-1", "key-1", now)); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate idempotency key: want ErrConflict, got %v", err)
	}
}

func TestOrderRepositoryFindByIdempotency(t *testing.T) {
	repo := NewOrderRepository(clock.NewSystem())
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Insert(ctx, newOrder(t, "order-1", "user-1", "key-1", now)); err != nil {
		t.Fatal(err)
	}

	found, err := repo.FindByIdempotency(ctx, "user-1", "key-1")
	if err != nil || found.ID != "order-1" {
		t.Fatalf("find: %v %v", found, err)
	}

	// The key is scoped per user.
	if _, err := repo.FindByIdempotency(ctx, "user-2", "key-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("other user: want ErrNotFound, got %v", err)
	}
	if _, err := repo.FindByIdempotency(ctx, "user-1", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("empty key: want ErrNotFound, got %v", err)
	}
}

func TestOrderRepositoryTransition(t *testing.T) {
	repo := NewOrderRepository(clock.NewSystem())
	ctx := context.Background()

	o := newOrder(t, "order-1", "user-1", "", time.Now().UTC())
	if err := repo.Insert(ctx, o); err != nil {
		t.Fatal(err)
	}

	if err := repo.Transition(ctx, o.ID, domain.StatusPending, domain.StatusShipped); err != nil {
		t.Fatalf("pending->shipped: %v", err)
	}
	// Stale precondition loses.
	if err := repo.Transition(ctx, o.ID, domain.StatusPending, domain.StatusCanceled); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("want ErrConflict, got %v", err)
	}
	// Transitions outside the table are refused even if the precondition holds.
	if err := repo.Transition(ctx, o.ID, domain.StatusShipped, domain.StatusPending); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("shipped->pending: want ErrConflict, got %v", err)
	}
	if err := repo.Transition(ctx, "missing", domain.StatusPending, domain.StatusShipped); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestOrderRepositoryStampsUpdatedAtFromClock(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	repo := NewOrderRepository(clk)
	ctx := context.Background()

	o := newOrder(t, "order-1", "user-1", "", now.Add(-time.Hour))
	if err := repo.Insert(ctx, o); err != nil {
		t.Fatal(err)
	}

	clk.Advance(10 * time.Minute)
	if err := repo.Transition(ctx, o.ID, domain.StatusPending, domain.StatusShipped); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if want := now.Add(10 * time.Minute); !got.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, want)
	}
}

func TestOrderRepositoryConcurrentTransition(t *testing.T) {
	repo := NewOrderRepository(clock.NewSystem())
	o := newOrder(t, "order-1", "user-1", "", time.Now().UTC())
	if err := repo.Insert(context.Background(), o); err != nil {
		t.Fatal(err)
	}

	var wins int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		to := domain.StatusShipped
		if i%2 == 0 {
			to = domain.StatusCanceled
		}
		wg.Add(1)
		go func(to domain.Status) {
			defer wg.Done()
			if err := repo.Transition(context.Background(), "order-1", domain.StatusPending, to); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(to)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
}

func TestOrderRepositoryListPendingBefore(t *testing.T) {
	repo := NewOrderRepository(clock.NewSystem())
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	old := newOrder(t, "order-old", "user-1", "", base.Add(-48*time.Hour))
	boundary := newOrder(t, "order-boundary", "user-2", "", base.Add(-24*time.Hour))
	fresh := newOrder(t, "order-fresh", "user-3", "", base.Add(-time.Hour))
	for _, o := range []*domain.Order{old, boundary, fresh} {
		if err := repo.Insert(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	stale, err := repo.ListPendingBefore(ctx, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	// Strictly before: the boundary order survives.
	if len(stale) != 1 || stale[0].ID != "order-old" {
		t.Fatalf("stale = %v", stale)
	}
}

func TestOrderRepositoryDelete(t *testing.T) {
	repo := NewOrderRepository(clock.NewSystem())
	ctx := context.Background()

	o := newOrder(t, "order-1", "user-1", "", time.Now().UTC())
	if err := repo.Insert(ctx, o); err != nil {
		t.Fatal(err)
	}
	if err := repo.Transition(ctx, o.ID, domain.StatusPending, domain.StatusShipped); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, o.ID); !errors.Is(err, domain.ErrNotDeletable) {
		t.Errorf("delete shipped: want ErrNotDeletable, got %v", err)
	}

	if err := repo.Override(ctx, o.ID, domain.StatusCanceled); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, o.ID); err != nil {
		t.Errorf("delete canceled: %v", err)
	}
	if _, err := repo.Get(ctx, o.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("want ErrNotFound after delete, got %v", err)
	}
}

func TestInventoryLedger(t *testing.T) {
	ledger := NewInventoryLedger()
	ctx := context.Background()
	ledger.Seed("p1", 5)

	if err := ledger.TryReserve(ctx, "p1", 5); err != nil {
		t.Fatalf("reserve all: %v", err)
	}
	if err := ledger.TryReserve(ctx, "p1", 1); !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Errorf("want ErrInsufficientStock, got %v", err)
	}
	if err := ledger.TryReserve(ctx, "p1", 0); !errors.Is(err, inventory.ErrInvalidQuantity) {
		t.Errorf("want ErrInvalidQuantity, got %v", err)
	}
	if err := ledger.TryReserve(ctx, "missing", 1); !errors.Is(err, inventory.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}

	if err := ledger.Release(ctx, "p1", 2); err != nil {
		t.Fatal(err)
	}
	if stock, _ := ledger.Stock(ctx, "p1"); stock != 2 {
		t.Errorf("stock = %d, want 2", stock)
	}
}

func TestInventoryLedgerConcurrentReserve(t *testing.T) {
	ledger := NewInventoryLedger()
	ledger.Seed("p1", 50)

	var wins int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.TryReserve(context.Background(), "p1", 1); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	stock, _ := ledger.Stock(context.Background(), "p1")
	if wins != 50 || stock != 0 {
		t.Fatalf("wins = %d stock = %d, want 50 and 0", wins, stock)
	}
}

func TestCatalog(t *testing.T) {
	cat := NewCatalog()
	cat.Put(catalog.Product{ID: "p1", Name: "Keyboard", PriceCents: 1000})

	p, err := cat.Product(context.Background(), "p1")
	if err != nil || p.PriceCents != 1000 {
		t.Fatalf("product: %+v %v", p, err)
	}
	if _, err := cat.Product(context.Background(), "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}
