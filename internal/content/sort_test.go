package content

import (
	"testing"
	"time"
)

func view(id int64, created time.Time, comments int64) *PostView {
	return &PostView{ID: id, CreatedAt: created, CommentCount: comments}
}

func ids(views []*PostView) []int64 {
	out := make([]int64, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}

func TestSortViews(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		by   Sort
		want []int64
	}{
		{"latest", SortLatest, []int64{3, 2, 1}},
		{"oldest", SortOldest, []int64{1, 2, 3}},
		// 3 live comments beats 1 regardless of save or creation time.
		{"most-commented", SortMostCommented, []int64{1, 3, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views := []*PostView{
				view(1, base, 3),
				view(2, base.Add(time.Hour), 1),
				view(3, base.Add(2*time.Hour), 1),
			}
			sortViews(views, tt.by)
			got := ids(views)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("sortViews(%s) = %v, want %v", tt.by, got, tt.want)
				}
			}
		})
	}
}

func TestMostCommentedTieBreak(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Equal comment counts: newer post first, then higher id.
	views := []*PostView{
		view(1, base, 2),
		view(2, base.Add(time.Hour), 2),
		view(3, base.Add(time.Hour), 2),
	}
	sortViews(views, SortMostCommented)

	got := ids(views)
	want := []int64{3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tie-break order = %v, want %v", got, want)
		}
	}
}

func TestParseSort(t *testing.T) {
	for _, valid := range []string{"latest", "oldest", "most-commented"} {
		if _, ok := ParseSort(valid); !ok {
			t.Errorf("ParseSort(%q) rejected valid sort", valid)
		}
	}
	for _, invalid := range []string{"", "newest", "MOST-COMMENTED"} {
		if _, ok := ParseSort(invalid); ok {
			t.Errorf("ParseSort(%q) accepted invalid sort", invalid)
		}
	}
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		limit      int
		offset     int
		wantNext   *int
		wantIsNext bool
	}{
		{"more rows remain", 25, 10, 0, intPtr(10), true},
		{"exact end", 20, 10, 10, nil, false},
		{"past end", 5, 10, 10, nil, false},
		{"empty set", 0, 10, 0, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, hasNext := pageBounds(tt.total, tt.limit, tt.offset)
			if hasNext != tt.wantIsNext {
				t.Errorf("hasNext = %v, want %v", hasNext, tt.wantIsNext)
			}
			if (next == nil) != (tt.wantNext == nil) {
				t.Fatalf("nextOffset = %v, want %v", next, tt.wantNext)
			}
			if next != nil && *next != *tt.wantNext {
				t.Errorf("nextOffset = %d, want %d", *next, *tt.wantNext)
			}
		})
	}
}

func intPtr(i int) *int { return &i }
