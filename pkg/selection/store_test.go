package selection

import (
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/Sternrassler/artic-select/internal/testutil"
	"github.com/Sternrassler/artic-select/pkg/artwork"
)

func ids(records []artwork.Artwork) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestNew_Empty(t *testing.T) {
	s := New()
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if got := s.Selected(); len(got) != 0 {
		t.Errorf("Selected() = %v, want empty", got)
	}
}

func TestReplace(t *testing.T) {
	records := testutil.Artworks(5)
	s := New()
	s.Toggle(artwork.Artwork{ID: 99})

	s.Replace(append(records, records[1]))

	if s.IsSelected(99) {
		t.Error("Replace should discard the previous selection")
	}
	if got := ids(s.Selected()); !reflect.DeepEqual(got, []int{1, 2, 3, 4, 5}) {
		t.Errorf("Selected() = %v, want [1 2 3 4 5]", got)
	}
}

func TestToggle_Involution(t *testing.T) {
	records := testutil.Artworks(4)
	s := New()
	s.Replace(records[:2])
	before := ids(s.Selected())
	slices.Sort(before)

	for _, r := range records {
		s.Toggle(r)
		s.Toggle(r)
		got := ids(s.Selected())
		slices.Sort(got)
		if !reflect.DeepEqual(got, before) {
			t.Fatalf("after double toggle of %d: selected ids = %v, want %v", r.ID, got, before)
		}
	}
}

func TestToggle_TwiceMovesToEnd(t *testing.T) {
	records := testutil.Artworks(3)
	s := New()
	s.Replace(records)

	s.Toggle(records[0])
	s.Toggle(records[0])

	if got := ids(s.Selected()); !reflect.DeepEqual(got, []int{2, 3, 1}) {
		t.Errorf("Selected() = %v, want [2 3 1]", got)
	}
}

func TestToggle_ReturnsMembership(t *testing.T) {
	s := New()
	r := artwork.Artwork{ID: 7}
	if !s.Toggle(r) {
		t.Error("first Toggle should select")
	}
	if !s.IsSelected(7) {
		t.Error("IsSelected(7) = false after select")
	}
	if s.Toggle(r) {
		t.Error("second Toggle should deselect")
	}
	if s.IsSelected(7) {
		t.Error("IsSelected(7) = true after deselect")
	}
}

func TestToggle_DoesNotAffectOtherRecords(t *testing.T) {
	all := testutil.Artworks(24)
	pageOne, pageTwo := all[:12], all[12:]

	s := New()
	s.Replace(pageTwo[:3])
	s.Toggle(pageOne[4])

	for _, r := range pageTwo[:3] {
		if !s.IsSelected(r.ID) {
			t.Errorf("record %d on another page lost its selection", r.ID)
		}
	}
	if s.Len() != 4 {
		t.Errorf("Len() = %d, want 4", s.Len())
	}
}

func TestInsertionOrder(t *testing.T) {
	s := New()
	for _, id := range []int{5, 2, 9} {
		s.Toggle(artwork.Artwork{ID: id})
	}

	if got := ids(s.Selected()); !reflect.DeepEqual(got, []int{5, 2, 9}) {
		t.Errorf("Selected() = %v, want [5 2 9]", got)
	}
}

func TestSetVisible(t *testing.T) {
	all := testutil.Artworks(24)
	pageOne, pageTwo := all[:12], all[12:]

	s := New()
	s.Replace([]artwork.Artwork{pageOne[0], pageOne[1], pageTwo[0]})

	// On page one the user now has records 2 and 3 checked.
	s.SetVisible(pageOne, []artwork.Artwork{pageOne[1], pageOne[2]})

	if s.IsSelected(pageOne[0].ID) {
		t.Error("unchecked visible record should be deselected")
	}
	if !s.IsSelected(pageOne[1].ID) || !s.IsSelected(pageOne[2].ID) {
		t.Error("checked visible records should be selected")
	}
	if !s.IsSelected(pageTwo[0].ID) {
		t.Error("selection on another page must survive")
	}
}

func TestSelectedOn(t *testing.T) {
	page := testutil.Artworks(4)
	s := New()
	s.Replace([]artwork.Artwork{page[1], page[3]})

	if got := s.SelectedOn(page); !reflect.DeepEqual(got, []bool{false, true, false, true}) {
		t.Errorf("SelectedOn() = %v", got)
	}
}

func TestSelectedKeepsValues(t *testing.T) {
	s := New()
	origin := "Japan"
	s.Replace([]artwork.Artwork{{ID: 3, Title: "The Great Wave", PlaceOfOrigin: &origin}})

	got := s.Selected()
	if got[0].Title != "The Great Wave" || artwork.Str(got[0].PlaceOfOrigin) != "Japan" {
		t.Errorf("Selected() = %+v, want full record values", got[0])
	}
}

func TestClear(t *testing.T) {
	s := New()
	s.Replace(testutil.Artworks(3))
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", s.Len())
	}
}

func TestConcurrentToggles(t *testing.T) {
	s := New()
	records := testutil.Artworks(50)

	var wg sync.WaitGroup
	for _, r := range records {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Toggle(r)
			_ = s.IsSelected(r.ID)
			_ = s.Selected()
		}()
	}
	wg.Wait()

	if s.Len() != 50 {
		t.Errorf("Len() = %d, want 50", s.Len())
	}
}
