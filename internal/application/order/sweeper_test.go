package order

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	domain "shopcore/internal/domain/order"
)

func TestSweeperCancelsExpiredOrders(t *testing.T) {
	f := newFixture(t)
	result := f.mustCreate(t, "user-1")
	f.clk.Advance(25 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := NewSweeper(f.coord, 10*time.Millisecond, zap.NewNop())
	go sweeper.Run(ctx)

	deadline := time.After(2 * time.Second)
	for {
		o, err := f.repo.Get(context.Background(), result.OrderID)
		if err != nil {
			t.Fatal(err)
		}
		if o.Status == domain.StatusCanceled {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("order still %s after waiting for the sweeper", o.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
