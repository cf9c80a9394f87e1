package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const seenKeyPrefix = "push:seen:"

// SeenStore remembers processed message keys so redelivered pushes are no-ops.
type SeenStore interface {
	// MarkSeen records key and reports whether this was the first sighting.
	MarkSeen(ctx context.Context, key string) (bool, error)
}

// redisSeenStore shares dedup state across instances.
type redisSeenStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSeenStore(client *redis.Client, ttl time.Duration) SeenStore {
	return &redisSeenStore{client: client, ttl: ttl}
}

func (s *redisSeenStore) MarkSeen(ctx context.Context, key string) (bool, error) {
	first, err := s.client.SetNX(ctx, seenKeyPrefix+key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return first, nil
}

// memorySeenStore is the single-instance fallback when Redis is not configured.
type memorySeenStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

func NewMemorySeenStore(ttl time.Duration) SeenStore {
	return &memorySeenStore{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (s *memorySeenStore) MarkSeen(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expires, ok := s.seen[key]; ok && now.Before(expires) {
		return false, nil
	}
	s.seen[key] = now.Add(s.ttl)

	if len(s.seen) > 1024 {
		for k, exp := range s.seen {
			if !now.Before(exp) {
				delete(s.seen, k)
			}
		}
	}
	return true, nil
}
