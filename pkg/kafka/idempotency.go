package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore records processed event ids. Implementations must be
// safe for concurrent use.
type IdempotencyStore interface {
	Contains(ctx context.Context, eventID string) (bool, error)
	Add(ctx context.Context, eventID string) error
}

// MemoryIdempotencyStore is a process-local store used when Redis is not
// configured. Entries expire lazily after ttl.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryIdempotencyStore) Contains(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.entries[eventID]
	if !ok {
		return false, nil
	}
	if s.now().Sub(ts) > s.ttl {
		delete(s.entries, eventID)
		return false, nil
	}
	return true, nil
}

func (s *MemoryIdempotencyStore) Add(_ context.Context, eventID string) error {
	s.mu.Lock()
	s.entries[eventID] = s.now()
	s.mu.Unlock()
	return nil
}

// RedisIdempotencyStore keeps processed ids in Redis so every replica of a
// consumer group shares them.
type RedisIdempotencyStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisIdempotencyStore) key(eventID string) string {
	return s.prefix + ":" + eventID
}

func (s *RedisIdempotencyStore) Contains(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return n > 0, nil
}

func (s *RedisIdempotencyStore) Add(ctx context.Context, eventID string) error {
	if err := s.client.Set(ctx, s.key(eventID), 1, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency record: %w", err)
	}
	return nil
}

// IdempotentHandler skips events whose id is already in store. The id is
// recorded only after inner succeeds. Store failures fall through to inner.
func IdempotentHandler(store IdempotencyStore, inner Handler, logger *slog.Logger) Handler {
	return func(ctx context.Context, event *Event) error {
		if event.ID == "" {
			return inner(ctx, event)
		}

		seen, err := store.Contains(ctx, event.ID)
		if err != nil {
			logger.WarnContext(ctx, "idempotency store lookup failed, processing anyway",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()),
			)
		} else if seen {
			ConsumerMessagesDuplicate.WithLabelValues(event.Type).Inc()
			logger.DebugContext(ctx, "skipping duplicate event",
				slog.String("event_id", event.ID),
				slog.String("event_type", event.Type),
			)
			return nil
		}

		if err := inner(ctx, event); err != nil {
			return err
		}

		if err := store.Add(ctx, event.ID); err != nil {
			logger.WarnContext(ctx, "failed to record event id",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
}
