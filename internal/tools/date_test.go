package tools

import (
	"testing"
	"time"
)

func TestCurrentDate(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*60*60)
	now := func() time.Time {
		return time.Date(2026, 8, 27, 23, 30, 0, 0, loc)
	}

	got := CurrentDate(now)
	if got.Date != "2026-08-28" {
		t.Errorf("Date = %q, want %q (UTC conversion)", got.Date, "2026-08-28")
	}
}

func TestCurrentDate_DefaultClock(t *testing.T) {
	got := CurrentDate(nil)
	want := time.Now().UTC().Format("2006-01-02")
	if got.Date != want {
		t.Errorf("Date = %q, want %q", got.Date, want)
	}
}
