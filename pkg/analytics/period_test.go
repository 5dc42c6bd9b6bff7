package analytics

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherhub/cipherhub/pkg/observability"
)

func newTestResolver(t *testing.T, now time.Time) *PeriodResolver {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	r := NewPeriodResolver(loc, observability.NewLogger(observability.ErrorLevel, io.Discard))
	r.now = func() time.Time { return now }
	return r
}

func TestResolve_SymbolicPeriods(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// mid-afternoon local time, truncation must still land on midnight
	now := time.Date(2024, 3, 15, 14, 30, 45, 0, loc)
	yesterday := time.Date(2024, 3, 14, 0, 0, 0, 0, loc)

	tests := []struct {
		period string
		start  time.Time
		days   int
	}{
		{PeriodYesterday, yesterday, 1},
		{PeriodLast7Days, time.Date(2024, 3, 8, 0, 0, 0, 0, loc), 7},
		{PeriodLast30Days, time.Date(2024, 2, 14, 0, 0, 0, 0, loc), 30},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			r := newTestResolver(t, now)
			got := r.Resolve(tt.period)

			assert.True(t, got.Start.Equal(tt.start), "start: got %v want %v", got.Start, tt.start)
			assert.True(t, got.End.Equal(yesterday), "end must be yesterday, got %v", got.End)
			assert.Equal(t, tt.days, got.Days())
		})
	}
}

func TestResolve_CustomPeriod(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	r := newTestResolver(t, time.Date(2024, 3, 15, 10, 0, 0, 0, loc))
	got := r.Resolve("2024-01-05,2024-01-10")

	assert.True(t, got.Start.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, loc)))
	assert.True(t, got.End.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, loc)))
}

func TestResolve_CustomPeriodNoOrderingValidation(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	r := newTestResolver(t, time.Date(2024, 3, 15, 10, 0, 0, 0, loc))

	// inverted range is a valid value, it just aggregates to nothing
	got := r.Resolve("2024-01-10,2024-01-05")
	assert.True(t, got.Start.After(got.End))
}

func TestResolve_UnrecognizedFallsBackToYesterday(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, loc)

	r := newTestResolver(t, now)
	want := r.Resolve(PeriodYesterday)

	for _, period := range []string{"bogus", "", "last_90_days", "2024-13-99,nope"} {
		got := newTestResolver(t, now).Resolve(period)
		assert.True(t, got.Start.Equal(want.Start), "period %q start", period)
		assert.True(t, got.End.Equal(want.End), "period %q end", period)
	}
}
