// Package redisx holds the Redis client constructor plus the key and TTL
// conventions used across the service.
package redisx

import (
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Cache of resolved orders: order:terminal:{order_id} -> order JSON.
	KeyTerminalOrder = "order:terminal:%s"
)

var (
	// Resolved orders never change again, but keep a TTL so the cache
	// self-heals after manual database surgery.
	TTLTerminalOrder = 12 * time.Hour
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}
