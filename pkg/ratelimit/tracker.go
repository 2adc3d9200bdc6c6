package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for cooldown tracking.
var (
	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_rate_limit_blocks_total",
		Help: "Total page requests held back during a 429 cooldown",
	})

	rateLimitCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_rate_limit_cooldowns_total",
		Help: "Total 429 responses that started or extended a cooldown",
	})
)

// Tracker records 429 cooldowns and gates requests. Without Redis the state
// lives in memory and is local to the tracker.
type Tracker struct {
	redis  *redis.Client
	key    string
	logger zerolog.Logger

	mu    sync.Mutex
	local State
	now   func() time.Time
}

// NewTracker creates a tracker for host. redisClient may be nil.
func NewTracker(redisClient *redis.Client, host string, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		key:    KeyPrefix + ":" + host,
		logger: logger,
		now:    time.Now,
	}
}

// Key returns the Redis key holding the shared state.
func (t *Tracker) Key() string {
	return t.key
}

// GetState returns the current state. With Redis, a missing key means no
// cooldown.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		s := t.local
		return &s, nil
	}

	data, err := t.redis.Get(ctx, t.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse rate limit state: %w", err)
	}
	return &s, nil
}

// UpdateFromResponse starts a cooldown when status is 429. Other statuses
// leave the state alone.
func (t *Tracker) UpdateFromResponse(ctx context.Context, status int, headers http.Header) error {
	if status != http.StatusTooManyRequests {
		return nil
	}

	now := t.now()
	cooldown := RetryAfter(headers, now)
	s := State{BlockedUntil: now.Add(cooldown), LastUpdate: now}
	rateLimitCooldownsTotal.Inc()

	t.logger.Warn().
		Dur("cooldown", cooldown).
		Time("blocked_until", s.BlockedUntil).
		Msg("Upstream rate limit hit - holding back requests")

	if t.redis == nil {
		t.mu.Lock()
		if s.BlockedUntil.After(t.local.BlockedUntil) {
			t.local = s
		}
		t.mu.Unlock()
		return nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal rate limit state: %w", err)
	}
	if err := t.redis.Set(ctx, t.key, data, cooldown).Err(); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// ShouldAllowRequest reports whether a request may be sent now and, if not,
// how long the cooldown still runs. It never sleeps.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, time.Duration, error) {
	s, err := t.GetState(ctx)
	if err != nil {
		return false, 0, err
	}

	now := t.now()
	if !s.Blocked(now) {
		return true, 0, nil
	}

	wait := s.BlockedUntil.Sub(now)
	rateLimitBlocksTotal.Inc()
	t.logger.Debug().Dur("wait", wait).Msg("Request held back by rate limit cooldown")
	return false, wait, nil
}

// RetryAfter reads a Retry-After header given in seconds or as an HTTP
// date. Missing or unusable values yield DefaultCooldown; results are capped
// at MaxCooldown.
func RetryAfter(headers http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(headers.Get("Retry-After"))
	if v == "" {
		return DefaultCooldown
	}

	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = at.Sub(now)
	} else {
		return DefaultCooldown
	}

	if d <= 0 {
		return time.Second
	}
	return min(d, MaxCooldown)
}
