package pagination

import (
	"math"
	"testing"
)

func TestDefaults(t *testing.T) {
	tests := []struct {
		name         string
		in           PageRequest
		defaultLimit int
		want         PageRequest
	}{
		{"zero_values", PageRequest{}, 0, PageRequest{Page: 1, Limit: 10}},
		{"configured_default", PageRequest{}, 25, PageRequest{Page: 1, Limit: 25}},
		{"negative_page", PageRequest{Page: -3, Limit: 5}, 10, PageRequest{Page: 1, Limit: 5}},
		{"limit_capped", PageRequest{Page: 2, Limit: 500}, 10, PageRequest{Page: 2, Limit: 100}},
		{"limit_at_cap", PageRequest{Page: 1, Limit: 100}, 10, PageRequest{Page: 1, Limit: 100}},
		{"page_capped", PageRequest{Page: math.MaxInt, Limit: 100}, 10, PageRequest{Page: MaxPage, Limit: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			got.Defaults(tt.defaultLimit)
			if got != tt.want {
				t.Errorf("Defaults() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	if got := (PageRequest{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Errorf("expected offset 20, got %d", got)
	}
	if got := (PageRequest{Page: 1, Limit: 10}).Offset(); got != 0 {
		t.Errorf("expected offset 0, got %d", got)
	}
}

func TestOffsetNeverOverflows(t *testing.T) {
	for _, page := range []int{math.MaxInt, math.MaxInt / 2, math.MaxInt32, MaxPage + 1} {
		req := PageRequest{Page: page, Limit: 500}
		req.Defaults(0)
		offset := req.Offset()
		if offset < 0 || offset > math.MaxInt32 {
			t.Errorf("page %d: offset %d out of range", page, offset)
		}
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		limit int
		pages int
	}{
		{"empty", 0, 10, 0},
		{"exact", 20, 10, 2},
		{"remainder", 21, 10, 3},
		{"single", 1, 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.total, PageRequest{Page: 1, Limit: tt.limit})
			if p.Pages != tt.pages {
				t.Errorf("expected %d pages, got %d", tt.pages, p.Pages)
			}
			if p.Total != tt.total {
				t.Errorf("expected total %d, got %d", tt.total, p.Total)
			}
		})
	}
}

func TestNewPageResponseNeverNil(t *testing.T) {
	resp := NewPageResponse[string](nil, PageRequest{Page: 1, Limit: 10}, 0)
	if resp.Data == nil {
		t.Fatal("expected empty slice, got nil")
	}
}
