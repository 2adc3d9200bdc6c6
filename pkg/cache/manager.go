package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRetention is how long an entry stays usable for revalidation after
// it stops being fresh.
const DefaultRetention = time.Hour

var (
	// ErrMiss indicates the key is not cached.
	ErrMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager stores page responses in Redis.
type Manager struct {
	redis     *redis.Client
	retention time.Duration
}

// NewManager creates a cache manager. retention <= 0 selects DefaultRetention.
func NewManager(redisClient *redis.Client, retention time.Duration) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Manager{
		redis:     redisClient,
		retention: retention,
	}
}

// Get returns the entry stored under key, fresh or not.
// Returns ErrMiss when nothing is stored.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			Misses.Inc()
			return nil, ErrMiss
		}
		Errors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		Errors.WithLabelValues("get").Inc()
		_ = m.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	Hits.Inc()
	return &entry, nil
}

// Set stores entry under key for its remaining freshness plus the retention window.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		Errors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, entry.TTL()+m.retention).Err(); err != nil {
		Errors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes the entry stored under key.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		Errors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Refresh moves an entry's freshness deadline, typically after a 304.
func (m *Manager) Refresh(ctx context.Context, key Key, entry *Entry, expires time.Time) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	entry.Expires = expires
	return m.Set(ctx, key, entry)
}
