package calendar

import (
	"testing"
	"time"
)

func TestTodayUsesLocalDate(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	// 03:00 UTC on the 10th is still the 9th in UTC-6.
	clock := Clock{
		Now:      func() time.Time { return time.Date(2026, 5, 10, 3, 0, 0, 0, time.UTC) },
		Location: loc,
	}
	want := time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC)
	if got := clock.Today(); !got.Equal(want) {
		t.Fatalf("Today() = %v, want %v", got, want)
	}
}

func TestParseAndFormat(t *testing.T) {
	day, err := Parse(" 2026-02-28 ")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if Format(AddDays(day, 1)) != "2026-03-01" {
		t.Fatalf("unexpected next day %s", Format(AddDays(day, 1)))
	}
	if _, err := Parse("28/02/2026"); err == nil {
		t.Fatal("expected invalid layout to fail")
	}
}

func TestDaysLate(t *testing.T) {
	due := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		day  time.Time
		want int
	}{
		{time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC), 0},
		{due, 0},
		{time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC), 3},
		{time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 31},
	}
	for _, tc := range cases {
		if got := DaysLate(due, tc.day); got != tc.want {
			t.Fatalf("DaysLate(%s) = %d, want %d", Format(tc.day), got, tc.want)
		}
	}
	if got := DaysBetween(due, time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)); got != -3 {
		t.Fatalf("expected -3, got %d", got)
	}
}
