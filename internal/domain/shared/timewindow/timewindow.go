package timewindow

import (
	"errors"
	"time"
)

var ErrInvalidWindow = errors.New("timewindow: end must be after start")

// Window is a prospective parking interval. Either bound may be absent
// while the driver is still picking times, so pricing treats the window
// as unset until it is complete.
type Window struct {
	Start *time.Time
	End   *time.Time
}

func New(start, end time.Time) (Window, error) {
	s := start.UTC()
	e := end.UTC()
	w := Window{Start: &s, End: &e}
	if !w.Complete() {
		return Window{}, ErrInvalidWindow
	}
	return w, nil
}

// Parse builds a Window from RFC 3339 strings. Empty or unparseable
// bounds are left unset rather than failing the request.
func Parse(start, end string) Window {
	var w Window
	if t, err := time.Parse(time.RFC3339, start); err == nil {
		t = t.UTC()
		w.Start = &t
	}
	if t, err := time.Parse(time.RFC3339, end); err == nil {
		t = t.UTC()
		w.End = &t
	}
	return w
}

// Complete reports whether both bounds are present and ordered.
func (w Window) Complete() bool {
	return w.Start != nil && w.End != nil && w.End.After(*w.Start)
}

// Hours returns the window length in fractional hours, computed from
// whole minutes. The second return is false until the window is
// complete.
func (w Window) Hours() (float64, bool) {
	if !w.Complete() {
		return 0, false
	}
	return w.End.Sub(*w.Start).Minutes() / 60, true
}

func (w Window) Equal(other Window) bool {
	return boundEqual(w.Start, other.Start) && boundEqual(w.End, other.End)
}

func boundEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
