// Package artwork defines the records served by the paginated artworks
// collection and decodes the upstream page envelope.
package artwork

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingPagination is returned when a page body carries no pagination block.
var ErrMissingPagination = errors.New("response has no pagination block")

// Artwork is a single record of the collection.
// Identity is ID; every other field is display data.
type Artwork struct {
	ID    int    `json:"id"    yaml:"id"`
	Title string `json:"title" yaml:"title"`

	// Optional attributes. Upstream omits them or sends null.
	PlaceOfOrigin *string `json:"place_of_origin,omitempty" yaml:"place_of_origin,omitempty"`
	ArtistDisplay *string `json:"artist_display,omitempty"  yaml:"artist_display,omitempty"`
	Inscriptions  *string `json:"inscriptions,omitempty"    yaml:"inscriptions,omitempty"`
	DateStart     *int    `json:"date_start,omitempty"      yaml:"date_start,omitempty"`
	DateEnd       *int    `json:"date_end,omitempty"        yaml:"date_end,omitempty"`
}

// Fields lists the attributes requested from upstream.
var Fields = []string{
	"id",
	"title",
	"place_of_origin",
	"artist_display",
	"inscriptions",
	"date_start",
	"date_end",
}

// Page is one server-delivered batch of records.
type Page struct {
	// Number is the 1-based page number that was requested.
	Number int `json:"number"`

	// Records are the page's artworks in collection order.
	Records []Artwork `json:"records"`

	// TotalPages is the collection's page count as reported by upstream.
	TotalPages int `json:"total_pages"`

	// Limit is the page size reported by upstream (0 when absent).
	Limit int `json:"limit,omitempty"`

	// Total is the collection's record count reported by upstream (0 when absent).
	Total int `json:"total,omitempty"`
}

// envelope is the upstream JSON body shape.
type envelope struct {
	Data       []Artwork `json:"data"`
	Pagination *struct {
		TotalPages  int `json:"total_pages"`
		Limit       int `json:"limit"`
		Total       int `json:"total"`
		CurrentPage int `json:"current_page"`
	} `json:"pagination"`
}

// DecodePage decodes an upstream response body into a Page.
// pageNumber is the page that was requested; it is kept even when upstream
// echoes a different current_page.
func DecodePage(body []byte, pageNumber int) (*Page, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode page %d: %w", pageNumber, err)
	}
	if env.Pagination == nil {
		return nil, fmt.Errorf("decode page %d: %w", pageNumber, ErrMissingPagination)
	}

	records := env.Data
	if records == nil {
		records = []Artwork{}
	}

	return &Page{
		Number:     pageNumber,
		Records:    records,
		TotalPages: env.Pagination.TotalPages,
		Limit:      env.Pagination.Limit,
		Total:      env.Pagination.Total,
	}, nil
}

// String returns a short human-readable label.
func (a Artwork) String() string {
	if a.Title == "" {
		return fmt.Sprintf("#%d", a.ID)
	}
	return fmt.Sprintf("#%d %s", a.ID, a.Title)
}

// Str returns the value of an optional string attribute, or "" when absent.
func Str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Int returns the value of an optional integer attribute formatted for
// display, or "" when absent.
func Int(i *int) string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("%d", *i)
}
