// Package browser coordinates page navigation, the loading flag, and the
// selection for one viewer of the collection.
//
// Renderers read a View snapshot and drive the browser through GoToPage,
// Next, Prev, Toggle and SelectFirst. Network calls run outside the state
// lock, so these methods may be called from any goroutine; a renderer
// typically calls them asynchronously and repaints on Subscribe signals.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/logging"
	"github.com/Sternrassler/artic-select/pkg/pagination"
	"github.com/Sternrassler/artic-select/pkg/selection"
	"github.com/rs/zerolog"
)

// ErrNotOnPage is returned when toggling a record that is not displayed.
var ErrNotOnPage = errors.New("record is not on the displayed page")

// Browser owns the view state of one paginated collection.
type Browser struct {
	fetcher   pagination.PageFetcher
	assembler *pagination.Assembler
	selection *selection.Store
	loading   *loadingTracker
	logger    zerolog.Logger

	mu         sync.Mutex
	page       int // page whose records are displayed
	cursor     int // page navigation last requested
	totalPages int
	records    []artwork.Artwork
	navGen     uint64
	bulkGen    uint64
	lastErr    string

	subMu       sync.Mutex
	subscribers map[chan struct{}]struct{}
}

// New creates a browser on page 1 with an empty selection. Nothing is
// fetched until Load or GoToPage is called.
func New(fetcher pagination.PageFetcher, assembler *pagination.Assembler) *Browser {
	b := &Browser{
		fetcher:     fetcher,
		assembler:   assembler,
		selection:   selection.New(),
		logger:      logging.NewLogger("browser"),
		page:        1,
		cursor:      1,
		totalPages:  1,
		records:     []artwork.Artwork{},
		subscribers: make(map[chan struct{}]struct{}),
	}
	b.loading = &loadingTracker{onChange: b.notify}
	return b
}

// Load fetches the first page.
func (b *Browser) Load(ctx context.Context) error {
	return b.GoToPage(ctx, 1)
}

// GoToPage fetches page n (values below 1 mean 1) and displays it.
//
// Each call takes a new generation token; a response is applied only if no
// newer navigation was issued meanwhile, so a slow response cannot overwrite
// a faster, newer one. On failure the displayed page is kept and the error is
// recorded in View.LastError as well as returned.
func (b *Browser) GoToPage(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}

	b.mu.Lock()
	b.navGen++
	gen := b.navGen
	b.cursor = n
	b.mu.Unlock()

	b.loading.begin()
	page, err := b.fetcher.FetchPage(ctx, n)
	b.loading.end()

	b.mu.Lock()
	if gen != b.navGen {
		b.mu.Unlock()
		if err != nil {
			b.logger.Warn().
				Err(err).
				Int("page", n).
				Uint64("generation", gen).
				Msg("Superseded page request failed")
			return nil
		}
		b.logger.Debug().
			Int("page", n).
			Uint64("generation", gen).
			Msg("Discarding superseded page response")
		return nil
	}

	if err != nil {
		b.cursor = b.page
		b.lastErr = err.Error()
		b.mu.Unlock()
		b.notify()

		b.logger.Error().Err(err).Int("page", n).Msg("Failed to load page")
		return fmt.Errorf("load page %d: %w", n, err)
	}

	b.page = n
	b.records = page.Records
	if page.TotalPages > 0 {
		b.totalPages = page.TotalPages
	}
	b.lastErr = ""
	b.mu.Unlock()
	b.notify()

	b.logger.Info().
		Int("page", n).
		Int("records", len(page.Records)).
		Int("total_pages", page.TotalPages).
		Msg("Page loaded")
	return nil
}

// Next navigates one page forward, staying on the last page.
func (b *Browser) Next(ctx context.Context) error {
	b.mu.Lock()
	target := pagination.Next(b.cursor, b.totalPages)
	same := target == b.cursor
	b.mu.Unlock()

	if same {
		return nil
	}
	return b.GoToPage(ctx, target)
}

// Prev navigates one page back, staying on page 1.
func (b *Browser) Prev(ctx context.Context) error {
	b.mu.Lock()
	target := pagination.Prev(b.cursor)
	same := target == b.cursor
	b.mu.Unlock()

	if same {
		return nil
	}
	return b.GoToPage(ctx, target)
}

// Refresh reloads the page navigation last asked for.
func (b *Browser) Refresh(ctx context.Context) error {
	b.mu.Lock()
	n := b.cursor
	b.mu.Unlock()
	return b.GoToPage(ctx, n)
}

// Toggle flips the selection of a record on the displayed page and returns
// its new state.
func (b *Browser) Toggle(id int) (bool, error) {
	b.mu.Lock()
	record, ok := findRecord(b.records, id)
	b.mu.Unlock()

	if !ok {
		return false, fmt.Errorf("%w: id %d", ErrNotOnPage, id)
	}

	selected := b.selection.Toggle(record)
	b.notify()

	b.logger.Debug().Int("id", id).Bool("selected", selected).Msg("Selection toggled")
	return selected, nil
}

// SetPageSelection makes exactly ids the selected records of the displayed
// page. Records on other pages keep their state. Unknown ids are ignored.
func (b *Browser) SetPageSelection(ids []int) {
	b.mu.Lock()
	visible := append([]artwork.Artwork(nil), b.records...)
	b.mu.Unlock()

	chosen := make([]artwork.Artwork, 0, len(ids))
	for _, id := range ids {
		if r, ok := findRecord(visible, id); ok {
			chosen = append(chosen, r)
		}
	}

	b.selection.SetVisible(visible, chosen)
	b.notify()
}

// SelectFirst replaces the selection with the first count records of the
// collection and returns to page 1. On failure the selection is unchanged.
func (b *Browser) SelectFirst(ctx context.Context, count int) error {
	count = max(count, 0)

	b.mu.Lock()
	b.bulkGen++
	gen := b.bulkGen
	b.mu.Unlock()

	b.loading.begin()
	defer b.loading.end()

	records, err := b.assembler.Assemble(ctx, count)
	if err != nil {
		b.logger.Error().Err(err).Int("target", count).Msg("Bulk selection failed")

		b.mu.Lock()
		current := gen == b.bulkGen
		if current {
			b.lastErr = err.Error()
		}
		b.mu.Unlock()
		if current {
			b.notify()
		}
		return fmt.Errorf("select first %d: %w", count, err)
	}

	b.mu.Lock()
	if gen != b.bulkGen {
		b.mu.Unlock()
		b.logger.Debug().Int("target", count).Msg("Discarding superseded bulk selection")
		return nil
	}
	b.lastErr = ""
	onFirst := b.page == 1 && b.cursor == 1
	b.mu.Unlock()

	b.selection.Replace(records)
	b.notify()

	b.logger.Info().
		Int("target", count).
		Int("selected", len(records)).
		Msg("Bulk selection applied")

	if onFirst {
		return nil
	}
	if err := b.GoToPage(ctx, 1); err != nil {
		// The selection stands; only the view stays where it was.
		b.logger.Warn().Err(err).Msg("Could not return to page 1 after bulk selection")
	}
	return nil
}

// SelectFirstInput is SelectFirst for raw user input; malformed or negative
// input selects nothing.
func (b *Browser) SelectFirstInput(ctx context.Context, raw string) error {
	return b.SelectFirst(ctx, pagination.ParseTargetCount(raw))
}

// ClearSelection deselects everything.
func (b *Browser) ClearSelection() {
	b.selection.Clear()
	b.notify()
}

// IsSelected reports whether id is selected.
func (b *Browser) IsSelected(id int) bool {
	return b.selection.IsSelected(id)
}

// Selection returns the selected records in selection order.
func (b *Browser) Selection() []artwork.Artwork {
	return b.selection.Selected()
}

// Loading reports whether any page or bulk fetch is in flight.
func (b *Browser) Loading() bool {
	return b.loading.loading()
}

// View returns a snapshot of the current state.
func (b *Browser) View() View {
	b.mu.Lock()
	page, cursor, total := b.page, b.cursor, b.totalPages
	records := append([]artwork.Artwork(nil), b.records...)
	lastErr := b.lastErr
	b.mu.Unlock()

	flags := b.selection.SelectedOn(records)
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row{Artwork: r, Selected: flags[i]}
	}

	return View{
		Page:       page,
		Requested:  cursor,
		TotalPages: total,
		Rows:       rows,
		Loading:    b.loading.loading(),
		Selection:  b.selection.Selected(),
		Nav:        pagination.NewNav(page, total),
		LastError:  lastErr,
	}
}

// Subscribe returns a channel that receives a signal after state changes.
// Signals coalesce; readers should call View on receipt. The returned
// function unsubscribes and closes the channel.
func (b *Browser) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.subMu.Lock()
	b.subscribers[ch] = struct{}{}
	b.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.subMu.Lock()
			delete(b.subscribers, ch)
			b.subMu.Unlock()
			close(ch)
		})
	}
}

func (b *Browser) notify() {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func findRecord(records []artwork.Artwork, id int) (artwork.Artwork, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return artwork.Artwork{}, false
}
