package timeutil

import (
	"fmt"
	"time"
)

// Now returns the current time in UTC.
// Use it instead of time.Now() so stored timestamps share one zone.
func Now() time.Time {
	return time.Now().UTC()
}

// SortableLayout is fixed-width, so lexical order equals chronological order
// for timestamps stored as text.
const SortableLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatSortable renders t in UTC using SortableLayout
func FormatSortable(t time.Time) string {
	return t.UTC().Format(SortableLayout)
}

// ParseSortable parses a timestamp written by FormatSortable.
// Any RFC 3339 timestamp is accepted.
func ParseSortable(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}
