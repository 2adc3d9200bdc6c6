package artwork

import (
	"errors"
	"testing"
)

func TestDecodePage(t *testing.T) {
	body := []byte(`{
		"pagination": {"total": 30, "limit": 12, "total_pages": 3, "current_page": 2},
		"data": [
			{"id": 13, "title": "Water Lilies", "place_of_origin": "France", "artist_display": "Claude Monet", "inscriptions": null, "date_start": 1906, "date_end": 1906},
			{"id": 14, "title": "Untitled"}
		]
	}`)

	page, err := DecodePage(body, 2)
	if err != nil {
		t.Fatalf("DecodePage() error = %v", err)
	}

	if page.Number != 2 {
		t.Errorf("Number = %d, want 2", page.Number)
	}
	if page.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", page.TotalPages)
	}
	if page.Limit != 12 {
		t.Errorf("Limit = %d, want 12", page.Limit)
	}
	if len(page.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(page.Records))
	}

	first := page.Records[0]
	if Str(first.PlaceOfOrigin) != "France" {
		t.Errorf("PlaceOfOrigin = %q, want France", Str(first.PlaceOfOrigin))
	}
	if first.Inscriptions != nil {
		t.Errorf("Inscriptions = %v, want nil for null", *first.Inscriptions)
	}
	if Int(first.DateStart) != "1906" {
		t.Errorf("DateStart = %q, want 1906", Int(first.DateStart))
	}

	second := page.Records[1]
	if second.ArtistDisplay != nil || second.DateEnd != nil {
		t.Error("absent optional fields should decode to nil")
	}

	if first.ID != 13 || second.ID != 14 {
		t.Errorf("ids = %d, %d, want 13, 14", first.ID, second.ID)
	}
}

func TestDecodePage_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name: "malformed json",
			body: `{"data": [`,
		},
		{
			name:    "missing pagination",
			body:    `{"data": []}`,
			wantErr: ErrMissingPagination,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePage([]byte(tt.body), 1)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodePage_EmptyData(t *testing.T) {
	page, err := DecodePage([]byte(`{"data": null, "pagination": {"total_pages": 4}}`), 9)
	if err != nil {
		t.Fatalf("DecodePage() error = %v", err)
	}
	if page.Records == nil || len(page.Records) != 0 {
		t.Errorf("Records = %v, want empty non-nil slice", page.Records)
	}
}

func TestArtworkString(t *testing.T) {
	if got := (Artwork{ID: 5}).String(); got != "#5" {
		t.Errorf("String() = %q, want #5", got)
	}
	if got := (Artwork{ID: 5, Title: "Nighthawks"}).String(); got != "#5 Nighthawks" {
		t.Errorf("String() = %q, want %q", got, "#5 Nighthawks")
	}
}
