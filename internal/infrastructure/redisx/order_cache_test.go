package redisx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shopcore/internal/clock"
	"shopcore/internal/domain/order"
	"shopcore/internal/infrastructure/memory"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := New(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping Redis integration tests: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func deliveredOrder(t *testing.T, cache *OrderCache) *order.Order {
	t.Helper()
	ctx := context.Background()

	o, err := order.New(uuid.NewString(), "user-1", "",
		[]order.Line{{ProductID: "p1", Quantity: 2, UnitPriceCents: 1000}},
		time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if err := cache.Insert(ctx, o); err != nil {
		t.Fatal(err)
	}
	if err := cache.Transition(ctx, o.ID, order.StatusPending, order.StatusShipped); err != nil {
		t.Fatal(err)
	}
	if err := cache.Transition(ctx, o.ID, order.StatusShipped, order.StatusDelivered); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		cache.rdb.Del(context.Background(), fmt.Sprintf(KeyTerminalOrder, o.ID))
	})
	return o
}

func TestOrderCacheServesTerminalOrders(t *testing.T) {
	rdb := newTestClient(t)
	inner := memory.NewOrderRepository(clock.NewSystem())
	cache := NewOrderCache(inner, rdb, zap.NewNop())
	ctx := context.Background()

	o := deliveredOrder(t, cache)

	// The terminal transition populated the cache; a Get must not need
	// the repository anymore.
	if n, err := rdb.Exists(ctx, fmt.Sprintf(KeyTerminalOrder, o.ID)).Result(); err != nil || n != 1 {
		t.Fatalf("cache key missing after terminal transition: n=%d err=%v", n, err)
	}
	if err := inner.Override(ctx, o.ID, order.StatusCanceled); err != nil {
		t.Fatal(err)
	}
	got, err := cache.Get(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != order.StatusDelivered {
		t.Errorf("status = %q, want cached %q", got.Status, order.StatusDelivered)
	}
}

func TestOrderCacheReplaceLinesInvalidates(t *testing.T) {
	rdb := newTestClient(t)
	inner := memory.NewOrderRepository(clock.NewSystem())
	cache := NewOrderCache(inner, rdb, zap.NewNop())
	ctx := context.Background()

	o := deliveredOrder(t, cache)
	if _, err := cache.Get(ctx, o.ID); err != nil {
		t.Fatal(err)
	}

	lines := []order.Line{{ProductID: "p2", Quantity: 1, UnitPriceCents: 500}}
	if err := cache.ReplaceLines(ctx, o.ID, lines); err != nil {
		t.Fatal(err)
	}

	got, err := cache.Get(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Lines) != 1 || got.Lines[0].ProductID != "p2" {
		t.Fatalf("lines = %+v, want the replaced set", got.Lines)
	}
	if got.TotalCents != 500 {
		t.Errorf("TotalCents = %d, want 500", got.TotalCents)
	}
}

func TestOrderCacheOverrideInvalidates(t *testing.T) {
	rdb := newTestClient(t)
	inner := memory.NewOrderRepository(clock.NewSystem())
	cache := NewOrderCache(inner, rdb, zap.NewNop())
	ctx := context.Background()

	o := deliveredOrder(t, cache)
	if err := cache.Override(ctx, o.ID, order.StatusCanceled); err != nil {
		t.Fatal(err)
	}

	got, err := cache.Get(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != order.StatusCanceled {
		t.Errorf("status = %q, want %q", got.Status, order.StatusCanceled)
	}
}

func TestOrderCacheDeleteInvalidates(t *testing.T) {
	rdb := newTestClient(t)
	inner := memory.NewOrderRepository(clock.NewSystem())
	cache := NewOrderCache(inner, rdb, zap.NewNop())
	ctx := context.Background()

	o, err := order.New(uuid.NewString(), "user-1", "",
		[]order.Line{{ProductID: "p1", Quantity: 1, UnitPriceCents: 1000}},
		time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if err := cache.Insert(ctx, o); err != nil {
		t.Fatal(err)
	}
	if err := cache.Transition(ctx, o.ID, order.StatusPending, order.StatusCanceled); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		rdb.Del(context.Background(), fmt.Sprintf(KeyTerminalOrder, o.ID))
	})
	if _, err := cache.Get(ctx, o.ID); err != nil {
		t.Fatal(err)
	}
	if err := cache.Delete(ctx, o.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := cache.Get(ctx, o.ID); !errors.Is(err, order.ErrNotFound) {
		t.Errorf("want ErrNotFound after delete, got %v", err)
	}
}
