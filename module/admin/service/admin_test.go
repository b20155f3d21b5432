package service

import (
	"testing"
	"time"
)

func TestNewPageMeta(t *testing.T) {
	cases := []struct {
		page, total int64
		totalPages  int64
		hasNext     bool
		hasPrev     bool
	}{
		{page: 1, total: 0, totalPages: 0, hasNext: false, hasPrev: false},
		{page: 1, total: 10, totalPages: 1, hasNext: false, hasPrev: false},
		{page: 1, total: 11, totalPages: 2, hasNext: true, hasPrev: false},
		{page: 2, total: 11, totalPages: 2, hasNext: false, hasPrev: true},
		{page: 2, total: 35, totalPages: 4, hasNext: true, hasPrev: true},
	}
	for _, tc := range cases {
		m := NewPageMeta(tc.page, PageLimit, tc.total)
		if m.TotalPages != tc.totalPages || m.HasNextPage != tc.hasNext || m.HasPreviousPage != tc.hasPrev {
			t.Fatalf("page=%d total=%d -> %+v, want pages=%d next=%v prev=%v",
				tc.page, tc.total, m, tc.totalPages, tc.hasNext, tc.hasPrev)
		}
	}
}

func TestNewPageMetaClampsPage(t *testing.T) {
	m := NewPageMeta(0, PageLimit, 5)
	if m.Page != 1 {
		t.Fatalf("Page = %d, want clamped to 1", m.Page)
	}
}

func TestBucketLast7Days(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	// two today, one yesterday, one in the oldest slot; the 8-day-old and
	// future timestamps must be dropped
	times := []time.Time{
		now.Add(-1 * time.Hour),
		now.Add(-2 * time.Hour),
		now.AddDate(0, 0, -1),
		now.AddDate(0, 0, -6),
		now.AddDate(0, 0, -8),
		now.Add(time.Hour),
	}

	got := BucketLast7Days(now, times)
	want := [7]int64{1, 0, 0, 0, 0, 1, 2}
	if got != want {
		t.Fatalf("buckets = %v, want %v", got, want)
	}
}

func TestBucketLast7DaysEmpty(t *testing.T) {
	if got := BucketLast7Days(time.Now(), nil); got != ([7]int64{}) {
		t.Fatalf("buckets = %v, want all zero", got)
	}
}
