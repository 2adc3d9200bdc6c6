// Package client fetches single pages of the artworks collection over HTTP.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/cache"
	"github.com/Sternrassler/artic-select/pkg/logging"
	"github.com/Sternrassler/artic-select/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public artworks listing.
const DefaultBaseURL = "https://api.artic.edu/api/v1/artworks"

// Prometheus metrics for page fetches.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_requests_total",
		Help: "Total page requests by HTTP status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artic_request_duration_seconds",
		Help:    "Page request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_errors_total",
		Help: "Total page fetch errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the collection listing endpoint.
	BaseURL string

	// UserAgent identifies the application to upstream (REQUIRED).
	UserAgent string

	// Timeout bounds a single page request.
	Timeout time.Duration

	// PageParam is the query parameter carrying the 1-based page number.
	PageParam string

	// Limit, when > 0, is sent as the "limit" query parameter.
	Limit int

	// Fields restricts the returned attributes. Empty sends no projection.
	Fields []string

	// Redis enables the revalidating page cache when non-nil.
	Redis *redis.Client

	// CacheRetention is how long stale entries are kept for revalidation.
	CacheRetention time.Duration
}

// DefaultConfig returns a configuration for the public endpoint without cache.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   15 * time.Second,
		PageParam: "page",
		Fields:    artwork.Fields,
	}
}

// Client fetches pages of the collection. Each FetchPage call issues at most
// one HTTP request; there are no retries. After a 429 the client refuses
// requests until the Retry-After cooldown ends.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	cache      *cache.Manager
	limiter    *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.PageParam == "" {
		cfg.PageParam = "page"
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		config:     cfg,
		limiter:    ratelimit.NewTracker(cfg.Redis, base.Host, logging.NewLogger("ratelimit")),
		logger:     logging.NewLogger("artic-client"),
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis, cfg.CacheRetention)
	}

	return c, nil
}

// FetchPage requests one page and decodes it. Page numbers past the last
// page are passed through; whatever upstream returns is the page.
func (c *Client) FetchPage(ctx context.Context, pageNumber int) (*artwork.Page, error) {
	if pageNumber < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidPage, pageNumber)
	}

	if err := c.checkCooldown(ctx, pageNumber); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	reqURL := c.pageURL(pageNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("AIC-User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	key := cache.Key{Path: reqURL.Path, Query: reqURL.Query()}
	cached := c.lookup(ctx, key)
	if cache.AddValidators(req, cached) {
		c.logger.Debug().
			Int("page", pageNumber).
			Str("etag", cached.ETag).
			Msg("Revalidating cached page")
	}

	c.logger.Debug().Int("page", pageNumber).Str("url", reqURL.String()).Msg("Requesting page")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Int("page", pageNumber).Msg("Page request failed")
		return nil, &APIError{
			Page:       pageNumber,
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	if err := c.limiter.UpdateFromResponse(ctx, resp.StatusCode, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to record rate limit cooldown")
	}

	var body []byte
	switch {
	case resp.StatusCode == http.StatusNotModified && cached != nil:
		cache.NotModified.Inc()
		body = cached.Body
		if err := c.cache.Refresh(ctx, key, cached, cache.ExpiresAt(resp.Header)); err != nil {
			c.logger.Warn().Err(err).Int("page", pageNumber).Msg("Failed to refresh cached page")
		}
		c.logger.Debug().Int("page", pageNumber).Msg("304 Not Modified - using cached page")

	case resp.StatusCode == http.StatusOK:
		entry, err := cache.FromResponse(resp)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return nil, &APIError{
				Page:       pageNumber,
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassNetwork,
				Message:    "read body",
				Err:        err,
			}
		}
		body = entry.Body
		c.store(ctx, key, entry)

	default:
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

		c.logger.Warn().
			Int("page", pageNumber).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Page request error")

		return nil, &APIError{
			Page:       pageNumber,
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    resp.Status,
		}
	}

	page, err := artwork.DecodePage(body, pageNumber)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		c.logger.Warn().Err(err).Int("page", pageNumber).Msg("Page body could not be decoded")
		return nil, &APIError{
			Page:       pageNumber,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "invalid page body",
			Err:        err,
		}
	}

	c.logger.Debug().
		Int("page", pageNumber).
		Int("records", len(page.Records)).
		Int("total_pages", page.TotalPages).
		Dur("duration", time.Since(start)).
		Msg("Page fetched")

	return page, nil
}

// checkCooldown fails fast while a 429 cooldown is in effect. An unreadable
// cooldown state lets the request through.
func (c *Client) checkCooldown(ctx context.Context, pageNumber int) error {
	allowed, wait, err := c.limiter.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Rate limit state unavailable")
		return nil
	}
	if allowed {
		return nil
	}

	errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
	return &APIError{
		Page:       pageNumber,
		StatusCode: http.StatusTooManyRequests,
		ErrorClass: ErrorClassRateLimit,
		Message:    fmt.Sprintf("retry in %s", wait.Round(time.Second)),
		Err:        ErrCoolingDown,
	}
}

// Invalidate drops the cached response for a page.
func (c *Client) Invalidate(ctx context.Context, pageNumber int) error {
	if c.cache == nil {
		return ErrNoCache
	}
	u := c.pageURL(pageNumber)
	return c.cache.Delete(ctx, cache.Key{Path: u.Path, Query: u.Query()})
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// pageURL builds the request URL for a page, preserving any query already
// present on the base URL.
func (c *Client) pageURL(pageNumber int) *url.URL {
	u := *c.baseURL
	q := u.Query()
	q.Set(c.config.PageParam, strconv.Itoa(pageNumber))
	if c.config.Limit > 0 {
		q.Set("limit", strconv.Itoa(c.config.Limit))
	}
	if len(c.config.Fields) > 0 {
		q.Set("fields", strings.Join(c.config.Fields, ","))
	}
	u.RawQuery = q.Encode()
	return &u
}

// lookup returns the cached entry for key, or nil.
func (c *Client) lookup(ctx context.Context, key cache.Key) *cache.Entry {
	if c.cache == nil {
		return nil
	}
	entry, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
		}
		return nil
	}
	return entry
}

// store writes a fresh 200 response to the cache when enabled.
func (c *Client) store(ctx context.Context, key cache.Key, entry *cache.Entry) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to cache page")
		return
	}
	c.logger.Debug().Str("key", key.String()).Dur("ttl", entry.TTL()).Msg("Cached page")
}

// classifyStatus maps a non-success HTTP status to an ErrorClass.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		// 4xx, and unexpected 1xx/2xx/3xx that carry no page
		return ErrorClassClient
	}
}
