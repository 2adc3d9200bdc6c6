// Package selection holds the set of selected artworks independently of the
// page being displayed.
package selection

import (
	"sync"

	"github.com/Sternrassler/artic-select/pkg/artwork"
)

// Store is an identity-keyed selection that remembers insertion order.
// Records are kept by value so rows from pages that are no longer displayed
// can still be rendered. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	byID  map[int]artwork.Artwork
	order []int
}

// New returns an empty store.
func New() *Store {
	return &Store{byID: make(map[int]artwork.Artwork)}
}

// Replace discards the current selection and selects records. Duplicate ids
// keep their first occurrence.
func (s *Store) Replace(records []artwork.Artwork) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[int]artwork.Artwork, len(records))
	s.order = make([]int, 0, len(records))
	for _, r := range records {
		if _, dup := s.byID[r.ID]; dup {
			continue
		}
		s.byID[r.ID] = r
		s.order = append(s.order, r.ID)
	}
}

// Toggle flips membership of record and reports whether it is selected
// afterwards. Toggling twice restores the set of selected ids; a record that
// was selected before moves to the end of the selection order.
func (s *Store) Toggle(record artwork.Artwork) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[record.ID]; ok {
		s.removeLocked(record.ID)
		return false
	}
	s.addLocked(record)
	return true
}

// SetVisible reconciles the selection with a displayed page: among visible,
// exactly the records in chosen end up selected. Selections of records not in
// visible are left alone.
func (s *Store) SetVisible(visible, chosen []artwork.Artwork) {
	want := make(map[int]bool, len(chosen))
	for _, r := range chosen {
		want[r.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range visible {
		_, selected := s.byID[r.ID]
		switch {
		case want[r.ID] && !selected:
			s.addLocked(r)
		case !want[r.ID] && selected:
			s.removeLocked(r.ID)
		}
	}
}

// IsSelected reports whether id is selected.
func (s *Store) IsSelected(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// Selected returns the selected records in insertion order.
func (s *Store) Selected() []artwork.Artwork {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]artwork.Artwork, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// SelectedOn returns, for each record of a page, whether it is selected.
func (s *Store) SelectedOn(records []artwork.Artwork) []bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]bool, len(records))
	for i, r := range records {
		_, out[i] = s.byID[r.ID]
	}
	return out
}

// Len returns the number of selected records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Clear deselects everything.
func (s *Store) Clear() {
	s.Replace(nil)
}

func (s *Store) addLocked(r artwork.Artwork) {
	s.byID[r.ID] = r
	s.order = append(s.order, r.ID)
}

func (s *Store) removeLocked(id int) {
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
