// Package cache holds short-lived "seen once" markers: consumed OAuth state
// nonces and processed Stripe webhook event ids.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Claimer records keys that may be used only once within a TTL.
type Claimer interface {
	// Claim marks key as used and reports whether this call was the first.
	Claim(ctx context.Context, key string) (bool, error)
	// Release forgets key so a failed operation can be retried.
	Release(ctx context.Context, key string) error
}

// RedisClaimer implements Claimer with SET NX.
type RedisClaimer struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisClaimer(client redis.Cmdable, prefix string, ttl time.Duration) *RedisClaimer {
	return &RedisClaimer{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisClaimer) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.prefix+key, 1, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", c.prefix, err)
	}
	return ok, nil
}

func (c *RedisClaimer) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", c.prefix, err)
	}
	return nil
}

// MemoryClaimer is the process-local fallback used without Redis.
type MemoryClaimer struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryClaimer(ttl time.Duration) *MemoryClaimer {
	return &MemoryClaimer{entries: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (c *MemoryClaimer) Claim(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if exp, ok := c.entries[key]; ok && now.Before(exp) {
		return false, nil
	}
	c.entries[key] = now.Add(c.ttl)

	if len(c.entries) > 1024 {
		for k, exp := range c.entries {
			if !now.Before(exp) {
				delete(c.entries, k)
			}
		}
	}
	return true, nil
}

func (c *MemoryClaimer) Release(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Noop claims every key. It disables single-use checks.
type Noop struct{}

func (Noop) Claim(context.Context, string) (bool, error) { return true, nil }
func (Noop) Release(context.Context, string) error { return nil }
