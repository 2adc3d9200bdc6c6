package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultPageSize is the page size the public artworks listing serves.
const DefaultPageSize = 12

var (
	// ErrBulkFetch wraps the page failure that aborted an assembly.
	ErrBulkFetch = errors.New("bulk fetch failed")

	// ErrPageSizeMismatch is returned when a non-final page does not hold
	// exactly PageSize records, which would shift the assembled range.
	ErrPageSizeMismatch = errors.New("page size mismatch")

	// ErrInvalidPageSize is returned for page sizes below 1.
	ErrInvalidPageSize = errors.New("page size must be >= 1")
)

var (
	assembliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_bulk_assemblies_total",
		Help: "Bulk selections by result",
	}, []string{"result"}) // "ok", "empty", "failed"

	pagesFetched = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artic_bulk_pages_fetched",
		Help:    "Pages fetched per bulk selection",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	})
)

// PageFetcher fetches a single page. *client.Client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageNumber int) (*artwork.Page, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, pageNumber int) (*artwork.Page, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, pageNumber int) (*artwork.Page, error) {
	return f(ctx, pageNumber)
}

// Config holds assembler configuration.
type Config struct {
	// PageSize is the number of records upstream serves per page.
	PageSize int

	// MaxConcurrency caps parallel page requests.
	MaxConcurrency int

	// PageTimeout bounds each page fetch.
	PageTimeout time.Duration

	// StrictPageSize rejects assemblies whose non-final pages differ from PageSize.
	StrictPageSize bool
}

// DefaultConfig returns the configuration for the public artworks listing.
func DefaultConfig() Config {
	return Config{
		PageSize:       DefaultPageSize,
		MaxConcurrency: 10,
		PageTimeout:    15 * time.Second,
		StrictPageSize: true,
	}
}

// Assembler fetches the leading pages of the collection and assembles the
// first N records.
type Assembler struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewAssembler creates an assembler. Non-positive settings fall back to defaults.
func NewAssembler(fetcher PageFetcher, config Config) *Assembler {
	defaults := DefaultConfig()
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.PageTimeout <= 0 {
		config.PageTimeout = defaults.PageTimeout
	}

	return &Assembler{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger("assembler"),
	}
}

// PageSize returns the configured page size.
func (a *Assembler) PageSize() int {
	return a.config.PageSize
}

// PagesNeeded returns ceil(target / pageSize); 0 for target <= 0.
func PagesNeeded(target, pageSize int) int {
	if target <= 0 || pageSize <= 0 {
		return 0
	}
	n := target / pageSize
	if target%pageSize != 0 {
		n++
	}
	return n
}

// Assemble returns the first target records of the collection, in collection
// order. Fewer records are returned when the collection is shorter. target <= 0
// returns an empty result without fetching.
//
// When more pages are needed than MaxConcurrency, page 1 is fetched on its own
// first and the page count is capped at the collection's TotalPages, so a
// target far beyond the collection never requests pages that cannot exist.
func (a *Assembler) Assemble(ctx context.Context, target int) ([]artwork.Artwork, error) {
	start := time.Now()

	needed := PagesNeeded(target, a.config.PageSize)
	if needed == 0 {
		assembliesTotal.WithLabelValues("empty").Inc()
		return []artwork.Artwork{}, nil
	}

	var first *artwork.Page
	if needed > a.config.MaxConcurrency {
		var err error
		first, err = a.fetchPage(ctx, 1)
		if err != nil {
			assembliesTotal.WithLabelValues("failed").Inc()
			a.logger.Error().Err(err).Int("target", target).Msg("Bulk fetch failed")
			return nil, err
		}
		needed = min(needed, max(first.TotalPages, 1))
	}

	a.logger.Info().
		Int("target", target).
		Int("page_size", a.config.PageSize).
		Int("pages", needed).
		Msg("Starting bulk fetch")

	pages, err := a.fetchPages(ctx, needed, first)
	if err != nil {
		assembliesTotal.WithLabelValues("failed").Inc()
		a.logger.Error().
			Err(err).
			Int("target", target).
			Int("pages", needed).
			Dur("duration", time.Since(start)).
			Msg("Bulk fetch failed")
		return nil, err
	}
	pagesFetched.Observe(float64(needed))

	if a.config.StrictPageSize {
		if err := a.checkPageSizes(pages); err != nil {
			assembliesTotal.WithLabelValues("failed").Inc()
			a.logger.Warn().Err(err).Int("target", target).Msg("Bulk fetch rejected")
			return nil, err
		}
	}

	records := concat(pages, target)
	assembliesTotal.WithLabelValues("ok").Inc()

	a.logger.Info().
		Int("target", target).
		Int("records", len(records)).
		Int("pages", needed).
		Dur("duration", time.Since(start)).
		Msg("Bulk fetch complete")

	return records, nil
}

// fetchPages fetches pages 1..n concurrently. The result is indexed by
// page number - 1 regardless of completion order. The first failure cancels
// the remaining requests. A non-nil first is used as page 1 without fetching.
func (a *Assembler) fetchPages(ctx context.Context, n int, first *artwork.Page) ([]*artwork.Page, error) {
	pages := make([]*artwork.Page, n)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.MaxConcurrency)

	for i := range n {
		if i == 0 && first != nil {
			pages[0] = first
			continue
		}
		pageNum := i + 1
		g.Go(func() error {
			page, err := a.fetchPage(gCtx, pageNum)
			if err != nil {
				return err
			}
			pages[i] = page
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

// fetchPage fetches one page under the per-page timeout.
func (a *Assembler) fetchPage(ctx context.Context, pageNum int) (*artwork.Page, error) {
	pageCtx, cancel := context.WithTimeout(ctx, a.config.PageTimeout)
	defer cancel()

	page, err := a.fetcher.FetchPage(pageCtx, pageNum)
	if err != nil {
		a.logger.Warn().Err(err).Int("page", pageNum).Msg("Page fetch failed")
		return nil, fmt.Errorf("%w: page %d: %w", ErrBulkFetch, pageNum, err)
	}
	if page == nil {
		return nil, fmt.Errorf("%w: page %d: empty response", ErrBulkFetch, pageNum)
	}
	return page, nil
}

// checkPageSizes verifies every page before the collection's last page is full.
func (a *Assembler) checkPageSizes(pages []*artwork.Page) error {
	for i, page := range pages {
		pageNum := i + 1
		if pageNum >= page.TotalPages {
			continue
		}
		if len(page.Records) != a.config.PageSize {
			return fmt.Errorf("%w: page %d has %d records, expected %d",
				ErrPageSizeMismatch, pageNum, len(page.Records), a.config.PageSize)
		}
	}
	return nil
}

// concat joins pages in order and keeps at most limit records.
func concat(pages []*artwork.Page, limit int) []artwork.Artwork {
	total := 0
	for _, page := range pages {
		total += len(page.Records)
	}
	out := make([]artwork.Artwork, 0, min(total, limit))
	for _, page := range pages {
		for _, r := range page.Records {
			if len(out) == limit {
				return out
			}
			out = append(out, r)
		}
	}
	return out
}

// DerivePageSize fetches page 1 and returns its record count, for deployments
// where the page size is not known in advance. A collection that fits a
// single page yields its own length, which is still correct for assembly.
func DerivePageSize(ctx context.Context, fetcher PageFetcher) (int, error) {
	page, err := fetcher.FetchPage(ctx, 1)
	if err != nil {
		return 0, fmt.Errorf("fetch first page: %w", err)
	}
	if page.Limit > 0 {
		return page.Limit, nil
	}
	if len(page.Records) == 0 {
		return 0, fmt.Errorf("%w: first page is empty", ErrInvalidPageSize)
	}
	return len(page.Records), nil
}
