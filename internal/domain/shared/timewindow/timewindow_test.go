package timewindow

import (
	"errors"
	"testing"
	"time"
)

func TestNewRejectsInvertedBounds(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if _, err := New(start, start); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow for zero-length window, got %v", err)
	}
	if _, err := New(start, start.Add(-time.Hour)); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow for inverted window, got %v", err)
	}
	if _, err := New(start, start.Add(time.Hour)); err != nil {
		t.Fatalf("expected no error for ordered window, got %v", err)
	}
}

func TestHoursUsesMinutePrecision(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	w, err := New(start, start.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	hours, ok := w.Hours()
	if !ok {
		t.Fatalf("expected complete window to report hours")
	}
	if hours != 1.5 {
		t.Fatalf("expected 1.5 hours, got %v", hours)
	}
}

func TestHoursUnavailableWhileIncomplete(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	cases := []Window{
		{},
		{Start: &start},
		{End: &start},
	}
	for _, w := range cases {
		if _, ok := w.Hours(); ok {
			t.Fatalf("expected incomplete window %+v to report no hours", w)
		}
	}
}

func TestParseToleratesBadBounds(t *testing.T) {
	w := Parse("2026-03-01T10:00:00Z", "not-a-time")
	if w.Start == nil {
		t.Fatalf("expected start to parse")
	}
	if w.End != nil {
		t.Fatalf("expected unparseable end to stay unset, got %v", w.End)
	}
	if w.Complete() {
		t.Fatalf("expected window with one bound to be incomplete")
	}

	w = Parse("2026-03-01T10:00:00Z", "2026-03-01T12:30:00Z")
	hours, ok := w.Hours()
	if !ok || hours != 2.5 {
		t.Fatalf("expected 2.5 hours, got %v (ok=%v)", hours, ok)
	}
}

func TestEqualComparesBounds(t *testing.T) {
	a := Parse("2026-03-01T10:00:00Z", "2026-03-01T12:00:00Z")
	b := Parse("2026-03-01T10:00:00Z", "2026-03-01T12:00:00Z")
	c := Parse("2026-03-01T10:00:00Z", "")

	if !a.Equal(b) {
		t.Fatalf("expected identical windows to compare equal")
	}
	if a.Equal(c) {
		t.Fatalf("expected windows with different bounds to differ")
	}
	if !c.Equal(Parse("2026-03-01T10:00:00Z", "")) {
		t.Fatalf("expected partially set windows to compare equal")
	}
}
