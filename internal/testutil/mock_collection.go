// Package testutil provides an in-process stand-in for the artworks API.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/artic-select/pkg/artwork"
)

// ListPath is the path the mock serves the collection on.
const ListPath = "/api/v1/artworks"

// MockCollection serves a fixed, ordered collection split into pages of
// PageSize records using the upstream envelope.
type MockCollection struct {
	server *httptest.Server

	mu       sync.RWMutex
	records  []artwork.Artwork
	pageSize int
	failures map[int]int           // page -> status code to answer with
	delays   map[int]time.Duration // page -> artificial latency
	etags    bool

	// Tracking
	requests    map[int]int
	conditional int
	lastHeader  http.Header
}

// NewMockCollection creates a mock serving total records, pageSize per page.
// Record ids run 1..total in collection order.
func NewMockCollection(total, pageSize int) *MockCollection {
	m := &MockCollection{
		records:  Artworks(total),
		pageSize: pageSize,
		failures: make(map[int]int),
		delays:   make(map[int]time.Duration),
		requests: make(map[int]int),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// Artworks builds n artworks with ids 1..n. Every third record omits its
// optional attributes.
func Artworks(n int) []artwork.Artwork {
	out := make([]artwork.Artwork, n)
	for i := range out {
		id := i + 1
		out[i] = artwork.Artwork{ID: id, Title: fmt.Sprintf("Artwork %d", id)}
		if id%3 != 0 {
			origin := "France"
			artist := fmt.Sprintf("Artist %d", id)
			start, end := 1800+id, 1801+id
			out[i].PlaceOfOrigin = &origin
			out[i].ArtistDisplay = &artist
			out[i].DateStart = &start
			out[i].DateEnd = &end
		}
	}
	return out
}

// URL returns the collection endpoint URL.
func (m *MockCollection) URL() string {
	return m.server.URL + ListPath
}

// Close shuts down the mock server.
func (m *MockCollection) Close() {
	m.server.Close()
}

// FailPage makes the given page answer with status.
func (m *MockCollection) FailPage(page, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[page] = status
}

// DelayPage makes the given page answer after d.
func (m *MockCollection) DelayPage(page int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[page] = d
}

// EnableETags makes responses carry a per-page ETag and honour If-None-Match.
func (m *MockCollection) EnableETags() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.etags = true
}

// SetPageSize changes the server-side page size.
func (m *MockCollection) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSize = n
}

// Requests returns how often page was requested.
func (m *MockCollection) Requests(page int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[page]
}

// TotalRequests returns the number of requests across all pages.
func (m *MockCollection) TotalRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.requests {
		total += n
	}
	return total
}

// ConditionalRequests returns the number of requests carrying a validator.
func (m *MockCollection) ConditionalRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditional
}

// LastHeader returns the headers of the most recent request.
func (m *MockCollection) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// TotalPages returns the page count the mock reports.
func (m *MockCollection) TotalPages() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalPagesLocked()
}

func (m *MockCollection) totalPagesLocked() int {
	if len(m.records) == 0 {
		return 1
	}
	return (len(m.records) + m.pageSize - 1) / m.pageSize
}

func (m *MockCollection) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != ListPath {
		http.NotFound(w, r)
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	m.mu.Lock()
	m.requests[page]++
	m.lastHeader = r.Header.Clone()
	if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
		m.conditional++
	}
	status, failing := m.failures[page]
	delay := m.delays[page]
	etags := m.etags
	pageSize := m.pageSize
	totalPages := m.totalPagesLocked()
	start := (page - 1) * pageSize
	var data []artwork.Artwork
	if start < len(m.records) {
		end := min(start+pageSize, len(m.records))
		data = append([]artwork.Artwork(nil), m.records[start:end]...)
	} else {
		data = []artwork.Artwork{}
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if failing {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"status": %d, "error": "mock failure"}`, status)
		return
	}

	etag := fmt.Sprintf(`"page-%d-%d"`, page, pageSize)
	if etags {
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "max-age=60")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	body := map[string]any{
		"pagination": map[string]int{
			"total":        len(m.records),
			"limit":        pageSize,
			"offset":       start,
			"total_pages":  totalPages,
			"current_page": page,
		},
		"data": data,
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}
