package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseDateRejectsBadFormat(t *testing.T) {
	for _, s := range []string{"15-03-2024", "2024/03/15", "2024-3-15", "not-a-date"} {
		if _, err := ParseDate(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := DaysBetween(start, start); got != 1 {
		t.Fatalf("same day should be 1, got %d", got)
	}
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	if got := DaysBetween(start, end); got != 31 {
		t.Fatalf("expected 31, got %d", got)
	}
}

func TestDayBoundsUnix(t *testing.T) {
	d := time.Date(2024, 3, 15, 13, 45, 12, 0, time.UTC)

	if got := StartOfDayUnix(d); got != 1710460800 {
		t.Fatalf("unexpected start of day %d", got)
	}
	if got := EndOfDayUnix(d); got != 1710460800+86399 {
		t.Fatalf("unexpected end of day %d", got)
	}
}

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}
