package browser

import (
	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/pagination"
)

// Row is a record of the displayed page with its checkbox state.
type Row struct {
	artwork.Artwork
	Selected bool `json:"selected"`
}

// View is a snapshot of everything a renderer needs.
type View struct {
	// Page is the number of the page whose rows are displayed.
	Page int `json:"page"`

	// Requested is the page navigation last asked for; differs from Page
	// while a request is in flight.
	Requested int `json:"requested"`

	TotalPages int   `json:"total_pages"`
	Rows       []Row `json:"rows"`
	Loading    bool  `json:"loading"`

	// Selection holds every selected record, in selection order.
	Selection []artwork.Artwork `json:"selection"`

	Nav pagination.Nav `json:"nav"`

	// LastError describes the most recent failed operation, for diagnostics.
	LastError string `json:"last_error,omitempty"`
}

// SelectedCount returns the number of selected records.
func (v View) SelectedCount() int {
	return len(v.Selection)
}
