package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/artic-select/internal/testutil"
	"github.com/redis/go-redis/v9"
)

const testUserAgent = "ArticSelectTest/1.0.0 (test@example.com)"

// setupTestRedis creates a test Redis client.
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

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := DefaultConfig(testUserAgent)
	cfg.BaseURL = baseURL
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig(testUserAgent),
		},
		{
			name: "empty user agent",
			config: Config{
				BaseURL: DefaultBaseURL,
			},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name: "empty base url",
			config: Config{
				UserAgent: testUserAgent,
			},
			expectError: true,
			errorMsg:    "base url is required",
		},
		{
			name: "non http base url",
			config: Config{
				UserAgent: testUserAgent,
				BaseURL:   "ftp://example.com/artworks",
			},
			expectError: true,
			errorMsg:    `base url must be http or https (got "ftp://example.com/artworks")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if client == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{UserAgent: testUserAgent, BaseURL: DefaultBaseURL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.config.PageParam != "page" {
		t.Errorf("PageParam = %q, want page", c.config.PageParam)
	}
	if c.httpClient.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", c.httpClient.Timeout)
	}
	if c.cache != nil {
		t.Error("cache should be disabled without redis")
	}
}

func TestFetchPage(t *testing.T) {
	mock := testutil.NewMockCollection(30, 12)
	defer mock.Close()

	c := newTestClient(t, mock.URL())

	page, err := c.FetchPage(context.Background(), 2)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	if page.Number != 2 {
		t.Errorf("Number = %d, want 2", page.Number)
	}
	if page.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", page.TotalPages)
	}
	if len(page.Records) != 12 {
		t.Fatalf("len(Records) = %d, want 12", len(page.Records))
	}
	if page.Records[0].ID != 13 || page.Records[11].ID != 24 {
		t.Errorf("records span ids %d..%d, want 13..24", page.Records[0].ID, page.Records[11].ID)
	}
	if mock.Requests(2) != 1 {
		t.Errorf("page 2 requested %d times, want 1", mock.Requests(2))
	}
}

func TestFetchPage_Headers(t *testing.T) {
	mock := testutil.NewMockCollection(5, 12)
	defer mock.Close()

	c := newTestClient(t, mock.URL())
	if _, err := c.FetchPage(context.Background(), 1); err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	h := mock.LastHeader()
	if h.Get("User-Agent") != testUserAgent {
		t.Errorf("User-Agent = %q, want %q", h.Get("User-Agent"), testUserAgent)
	}
	if h.Get("AIC-User-Agent") != testUserAgent {
		t.Errorf("AIC-User-Agent = %q, want %q", h.Get("AIC-User-Agent"), testUserAgent)
	}
	if h.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q, want application/json", h.Get("Accept"))
	}
}

func TestFetchPage_QueryParameters(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"data": [], "pagination": {"total_pages": 1}}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(testUserAgent)
	cfg.BaseURL = server.URL + "/api/v1/artworks?is_public_domain=true"
	cfg.Limit = 12
	cfg.Fields = []string{"id", "title"}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.FetchPage(context.Background(), 4); err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	for _, want := range []string{"page=4", "limit=12", "fields=id%2Ctitle", "is_public_domain=true"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q does not contain %q", gotQuery, want)
		}
	}
}

func TestFetchPage_InvalidPage(t *testing.T) {
	mock := testutil.NewMockCollection(5, 12)
	defer mock.Close()

	c := newTestClient(t, mock.URL())
	for _, n := range []int{0, -3} {
		_, err := c.FetchPage(context.Background(), n)
		if !errors.Is(err, ErrInvalidPage) {
			t.Errorf("FetchPage(%d) error = %v, want ErrInvalidPage", n, err)
		}
	}
	if mock.TotalRequests() != 0 {
		t.Errorf("requests = %d, want 0", mock.TotalRequests())
	}
}

func TestFetchPage_BeyondLastPage(t *testing.T) {
	mock := testutil.NewMockCollection(30, 12)
	defer mock.Close()

	c := newTestClient(t, mock.URL())
	page, err := c.FetchPage(context.Background(), 9)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if len(page.Records) != 0 {
		t.Errorf("len(Records) = %d, want 0", len(page.Records))
	}
	if page.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", page.TotalPages)
	}
}

func TestFetchPage_ErrorClasses(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantClass ErrorClass
	}{
		{name: "not found", status: http.StatusNotFound, wantClass: ErrorClassClient},
		{name: "rate limited", status: http.StatusTooManyRequests, wantClass: ErrorClassRateLimit},
		{name: "server error", status: http.StatusInternalServerError, wantClass: ErrorClassServer},
		{name: "unavailable", status: http.StatusServiceUnavailable, wantClass: ErrorClassServer},
		{name: "malformed body", status: http.StatusOK, body: `{"data": [`, wantClass: ErrorClassDecode},
		{name: "missing pagination", status: http.StatusOK, body: `{"data": []}`, wantClass: ErrorClassDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests++
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL)
			_, err := c.FetchPage(context.Background(), 1)
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error %T is not *APIError", err)
			}
			if apiErr.ErrorClass != tt.wantClass {
				t.Errorf("ErrorClass = %q, want %q", apiErr.ErrorClass, tt.wantClass)
			}
			if apiErr.Page != 1 {
				t.Errorf("Page = %d, want 1", apiErr.Page)
			}
			if requests != 1 {
				t.Errorf("requests = %d, want exactly 1 (no retries)", requests)
			}
		})
	}
}

func TestFetchPage_RateLimitCooldown(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	if _, err := c.FetchPage(context.Background(), 1); ClassOf(err) != ErrorClassRateLimit {
		t.Fatalf("first FetchPage() class = %q, want rate_limit", ClassOf(err))
	}

	// Further pages fail fast until Retry-After has passed.
	for page := 2; page <= 4; page++ {
		_, err := c.FetchPage(context.Background(), page)
		if !errors.Is(err, ErrCoolingDown) {
			t.Errorf("FetchPage(%d) error = %v, want ErrCoolingDown", page, err)
		}
		if ClassOf(err) != ErrorClassRateLimit {
			t.Errorf("FetchPage(%d) class = %q, want rate_limit", page, ClassOf(err))
		}
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1 (cooldown must not hit upstream)", requests)
	}
}

func TestFetchPage_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := newTestClient(t, url)
	_, err := c.FetchPage(context.Background(), 1)
	if ClassOf(err) != ErrorClassNetwork {
		t.Errorf("ClassOf(err) = %q, want %q (err = %v)", ClassOf(err), ErrorClassNetwork, err)
	}
}

func TestFetchPage_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockCollection(12, 12)
	defer mock.Close()
	mock.DelayPage(1, 2*time.Second)

	c := newTestClient(t, mock.URL())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchPage(ctx, 1)
	if ClassOf(err) != ErrorClassNetwork {
		t.Errorf("ClassOf(err) = %q, want network", ClassOf(err))
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want wrapped context.DeadlineExceeded", err)
	}
}

func TestFetchPage_CacheRevalidation(t *testing.T) {
	redisClient := setupTestRedis(t)

	mock := testutil.NewMockCollection(30, 12)
	defer mock.Close()
	mock.EnableETags()

	cfg := DefaultConfig(testUserAgent)
	cfg.BaseURL = mock.URL()
	cfg.Redis = redisClient
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	first, err := c.FetchPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("first FetchPage() error = %v", err)
	}

	second, err := c.FetchPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("second FetchPage() error = %v", err)
	}

	if mock.Requests(1) != 2 {
		t.Errorf("page 1 requested %d times, want 2 (every fetch reaches upstream)", mock.Requests(1))
	}
	if mock.ConditionalRequests() != 1 {
		t.Errorf("conditional requests = %d, want 1", mock.ConditionalRequests())
	}
	if len(second.Records) != len(first.Records) || second.Records[0].ID != first.Records[0].ID {
		t.Error("revalidated page differs from original")
	}

	if err := c.Invalidate(context.Background(), 1); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, err := c.FetchPage(context.Background(), 1); err != nil {
		t.Fatalf("third FetchPage() error = %v", err)
	}
	if mock.ConditionalRequests() != 1 {
		t.Errorf("conditional requests after invalidate = %d, want 1", mock.ConditionalRequests())
	}
}

func TestInvalidate_NoCache(t *testing.T) {
	c := newTestClient(t, DefaultBaseURL)
	if err := c.Invalidate(context.Background(), 1); !errors.Is(err, ErrNoCache) {
		t.Errorf("Invalidate() error = %v, want ErrNoCache", err)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{400, ErrorClassClient},
		{403, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
		{304, ErrorClassClient},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
