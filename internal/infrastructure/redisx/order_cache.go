package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shopcore/internal/domain/order"
	"shopcore/internal/pkg/logging"
)

// OrderCache decorates an order repository with a read-through cache for
// resolved orders. Only orders in a terminal status are cached: anything
// still Pending or Shipped can change under the sweeper or a payment
// confirmation, so a cache hit must never be able to contradict them.
type OrderCache struct {
	order.Repository
	rdb *redis.Client
	log *zap.Logger
}

func NewOrderCache(inner order.Repository, rdb *redis.Client, log *zap.Logger) *OrderCache {
	return &OrderCache{
		Repository: inner,
		rdb:        rdb,
		log:        log.With(zap.String("component", "order_cache")),
	}
}

func (c *OrderCache) Get(ctx context.Context, id string) (*order.Order, error) {
	key := fmt.Sprintf(KeyTerminalOrder, id)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var o order.Order
		if err := json.Unmarshal(raw, &o); err == nil {
			return &o, nil
		}
		// Corrupt entry; drop it and fall through to the repository.
		c.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		logging.FromContext(ctx).Warn("order_cache_read_failed", zap.Error(err))
	}

	o, err := c.Repository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		c.store(ctx, key, o)
	}
	return o, nil
}

// Transition caches the order once it reaches a terminal status, so the
// next Get is served without touching the repository.
func (c *OrderCache) Transition(ctx context.Context, id string, from, to order.Status) error {
	if err := c.Repository.Transition(ctx, id, from, to); err != nil {
		return err
	}
	if to.Terminal() {
		if o, err := c.Repository.Get(ctx, id); err == nil {
			c.store(ctx, fmt.Sprintf(KeyTerminalOrder, id), o)
		}
	}
	return nil
}

// Override bypasses the transition guard, so the cached copy may be
// stale either way; invalidate unconditionally.
func (c *OrderCache) Override(ctx context.Context, id string, to order.Status) error {
	if err := c.Repository.Override(ctx, id, to); err != nil {
		return err
	}
	c.rdb.Del(ctx, fmt.Sprintf(KeyTerminalOrder, id))
	return nil
}

// ReplaceLines edits orders regardless of status, so a cached terminal
// copy would serve the old line set; invalidate it.
func (c *OrderCache) ReplaceLines(ctx context.Context, id string, lines []order.Line) error {
	if err := c.Repository.ReplaceLines(ctx, id, lines); err != nil {
		return err
	}
	c.rdb.Del(ctx, fmt.Sprintf(KeyTerminalOrder, id))
	return nil
}

func (c *OrderCache) Delete(ctx context.Context, id string) error {
	if err := c.Repository.Delete(ctx, id); err != nil {
		return err
	}
	c.rdb.Del(ctx, fmt.Sprintf(KeyTerminalOrder, id))
	return nil
}

func (c *OrderCache) store(ctx context.Context, key string, o *order.Order) {
	raw, err := json.Marshal(o)
	if err != nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := c.rdb.Set(sctx, key, raw, TTLTerminalOrder).Err(); err != nil {
		c.log.Warn("order_cache_write_failed", zap.String("order_id", o.ID), zap.Error(err))
	}
}
