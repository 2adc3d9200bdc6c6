package cache

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis and skips when none is running.
// Container-backed coverage lives in manager_integration_test.go.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil, 0)
}

func TestNewManager_DefaultRetention(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	m := NewManager(client, 0)
	if m.retention != DefaultRetention {
		t.Errorf("retention = %v, want %v", m.retention, DefaultRetention)
	}
}

func TestManager_SetGetDelete(t *testing.T) {
	m := NewManager(setupTestRedis(t), time.Minute)
	ctx := context.Background()

	key := Key{Path: "/api/v1/artworks", Query: url.Values{"page": []string{"1"}}}
	entry := &Entry{
		Body:       []byte(`{"data": []}`),
		ETag:       `"abc"`,
		Expires:    time.Now().Add(5 * time.Minute),
		StatusCode: 200,
		StoredAt:   time.Now(),
	}

	if err := m.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Body) != string(entry.Body) || got.ETag != entry.ETag {
		t.Errorf("Get() = %+v, want %+v", got, entry)
	}

	if err := m.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Get(ctx, key); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() after delete error = %v, want ErrMiss", err)
	}
}

func TestManager_ExpiredEntryRetained(t *testing.T) {
	m := NewManager(setupTestRedis(t), time.Minute)
	ctx := context.Background()

	key := Key{Path: "/api/v1/artworks", Query: url.Values{"page": []string{"2"}}}
	entry := &Entry{
		Body:    []byte(`{}`),
		ETag:    `"stale"`,
		Expires: time.Now().Add(-time.Second),
	}
	if err := m.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.IsExpired() {
		t.Error("entry should be expired")
	}
	if !got.CanRevalidate() {
		t.Error("expired entry should still be usable for revalidation")
	}
}

func TestManager_Refresh(t *testing.T) {
	m := NewManager(setupTestRedis(t), time.Minute)
	ctx := context.Background()

	key := Key{Path: "/api/v1/artworks", Query: url.Values{"page": []string{"3"}}}
	entry := &Entry{Body: []byte(`{}`), Expires: time.Now().Add(-time.Second)}

	newExpires := time.Now().Add(10 * time.Minute)
	if err := m.Refresh(ctx, key, entry, newExpires); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	got, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.IsExpired() {
		t.Error("refreshed entry should be fresh")
	}
}

func TestManager_SetNil(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	m := NewManager(client, 0)
	if err := m.Set(context.Background(), Key{}, nil); err == nil {
		t.Error("Set(nil) should fail")
	}
}
