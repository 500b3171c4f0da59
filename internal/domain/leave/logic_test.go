package leave

import (
	"testing"
	"time"
)

func TestInclusiveDays(t *testing.T) {
	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	if days := InclusiveDays(start, end); days != 1 {
		t.Fatalf("expected 1 day, got %v", days)
	}

	end = time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	if days := InclusiveDays(start, end); days != 3 {
		t.Fatalf("expected 3 days, got %v", days)
	}
}

func TestInclusiveDaysReversed(t *testing.T) {
	start := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC)

	if days := InclusiveDays(start, end); days != 0 {
		t.Fatalf("expected 0 days for reversed range, got %v", days)
	}
}

func TestParseDateAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	days, ok := IntervalDays(Interval{StartDate: "2025-03-08", EndDate: "2025-03-10"}, loc)
	if !ok {
		t.Fatal("expected interval to parse")
	}
	if days != 3 {
		t.Fatalf("expected 3 days across DST change, got %v", days)
	}
}

func TestParseDateFormats(t *testing.T) {
	_, date, ok := ParseDate("2025-07-04", time.UTC)
	if !ok || FormatDate(date) != "2025-07-04" {
		t.Fatalf("unexpected date parse result %v %v", date, ok)
	}

	_, date, ok = ParseDate("2025-07-04T23:30:00-02:00", time.UTC)
	if !ok || FormatDate(date) != "2025-07-05" {
		t.Fatalf("expected RFC3339 to resolve in location, got %v", date)
	}

	for _, bad := range []string{"", "07/04/2025", "2025-13-01", "tomorrow"} {
		if _, _, ok := ParseDate(bad, time.UTC); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
