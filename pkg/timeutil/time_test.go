package timeutil

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNow_AlwaysUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Now().Location())
}

func TestFormatSortable_RoundTrip(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	in := time.Date(2025, 11, 20, 7, 30, 0, 120, est)

	s := FormatSortable(in)
	assert.Equal(t, "2025-11-20T12:30:00.000000120Z", s)

	out, err := ParseSortable(s)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
	assert.Equal(t, time.UTC, out.Location())
}

func TestFormatSortable_LexicalOrder(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		base.Add(time.Second),
		base.Add(10 * time.Millisecond),
		base.Add(time.Nanosecond),
		base.Add(90 * time.Minute),
		base,
	}

	var formatted []string
	for _, tm := range times {
		formatted = append(formatted, FormatSortable(tm))
	}
	sort.Strings(formatted)

	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	for i, tm := range times {
		assert.Equal(t, FormatSortable(tm), formatted[i])
	}
}

func TestParseSortable_Invalid(t *testing.T) {
	_, err := ParseSortable("yesterday")
	assert.Error(t, err)
}
