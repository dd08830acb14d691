package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 14, h, m, 0, 0, time.UTC)
}

func TestNewInterval(t *testing.T) {
	iv, err := NewInterval(at(10, 0), at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, iv.Duration())

	_, err = NewInterval(at(12, 0), at(12, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewInterval(at(12, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestNewInterval_NormalisesToUTC(t *testing.T) {
	almaty := time.FixedZone("ALMT", 5*3600)
	iv, err := NewInterval(time.Date(2026, 3, 14, 15, 0, 0, 0, almaty), time.Date(2026, 3, 14, 17, 0, 0, 0, almaty))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, iv.Start.Location())
	assert.True(t, iv.Start.Equal(at(10, 0)))
}

func TestOverlaps(t *testing.T) {
	base := Interval{Start: at(10, 0), End: at(12, 0)}

	tests := []struct {
		name  string
		other Interval
		want  bool
	}{
		{"identical", Interval{at(10, 0), at(12, 0)}, true},
		{"inside", Interval{at(10, 30), at(11, 0)}, true},
		{"covers", Interval{at(9, 0), at(13, 0)}, true},
		{"straddles start", Interval{at(9, 0), at(10, 1)}, true},
		{"straddles end", Interval{at(11, 59), at(14, 0)}, true},
		{"touches end", Interval{at(12, 0), at(13, 0)}, false},
		{"touches start", Interval{at(8, 0), at(10, 0)}, false},
		{"disjoint", Interval{at(14, 0), at(15, 0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestStartOfMonthUTC(t *testing.T) {
	got := StartOfMonthUTC(time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), got)

	// Already past midnight UTC on the 1st even though local time is still September.
	west := time.FixedZone("PDT", -7*3600)
	got = StartOfMonthUTC(time.Date(2026, 9, 30, 20, 0, 0, 0, west))
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), got)
}
