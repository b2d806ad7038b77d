package window

import (
	"errors"
	"testing"
	"time"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/stretchr/testify/require"
)

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func yearSeries(t *testing.T) *core.Series {
	t.Helper()
	bars := make([]core.Bar, 0, 366)
	for d := jan1; d.Year() == 2024; d = d.AddDate(0, 0, 1) {
		bars = append(bars, core.Bar{Time: d, Close: float64(d.YearDay())})
	}
	s, err := core.NewSeries("year", bars)
	require.NoError(t, err)
	return s
}

func day(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 0, 0, 0, 0, time.UTC)
}

func TestSlice(t *testing.T) {
	s := yearSeries(t)

	t.Run("inside span", func(t *testing.T) {
		w, err := Slice(s, core.NewRange(day(3, 1), day(6, 1)))
		require.NoError(t, err)
		require.Equal(t, day(3, 1), w.First())
		require.Equal(t, day(5, 31), w.Last())
		require.True(t, w.Contains(day(4, 15)))
		require.False(t, w.Contains(day(6, 1)))
	})

	t.Run("partial overlap is clamped", func(t *testing.T) {
		w, err := Slice(s, core.NewRange(jan1.AddDate(-1, 0, 0), day(2, 1)))
		require.NoError(t, err)
		require.Equal(t, jan1, w.Range().Start)
		require.Equal(t, 31, w.Len())
	})

	t.Run("no overlap fails", func(t *testing.T) {
		_, err := Slice(s, core.NewRange(jan1.AddDate(2, 0, 0), jan1.AddDate(3, 0, 0)))
		var rangeErr *core.RangeError
		require.True(t, errors.As(err, &rangeErr))
	})

	t.Run("empty range fails", func(t *testing.T) {
		_, err := Slice(s, core.NewRange(day(3, 1), day(3, 1)))
		var rangeErr *core.RangeError
		require.True(t, errors.As(err, &rangeErr))
	})
}

func TestNarrow_CompositionConsistent(t *testing.T) {
	s := yearSeries(t)
	outer := core.NewRange(day(2, 1), day(9, 1))

	for _, inner := range []core.TimeRange{
		core.NewRange(day(3, 1), day(6, 1)),
		core.NewRange(day(2, 1), day(2, 2)),
		core.NewRange(day(8, 15), day(9, 1)),
	} {
		wide, err := Slice(s, outer)
		require.NoError(t, err)

		narrowed, err := wide.Narrow(inner)
		require.NoError(t, err)

		direct, err := Slice(s, inner)
		require.NoError(t, err)

		require.True(t, narrowed.Equal(direct), "inner %s", inner)
		require.Equal(t, direct.Key(), narrowed.Key())
		require.Equal(t, direct.Bars(), narrowed.Bars())
	}
}

func TestClampAndLookback(t *testing.T) {
	s := yearSeries(t)
	w, err := Slice(s, core.NewRange(day(3, 1), day(6, 1)))
	require.NoError(t, err)

	require.Equal(t, day(3, 1), w.Clamp(day(1, 10)))
	require.Equal(t, day(5, 31), w.Clamp(day(7, 4)))
	require.Equal(t, day(4, 2), w.Clamp(day(4, 2)))

	lo, hi := w.Bounds()
	wlo, whi := w.Lookback(19)
	require.Equal(t, lo-19, wlo)
	require.Equal(t, hi, whi)

	full := Full(s)
	flo, _ := full.Lookback(100)
	require.Equal(t, 0, flo)
}
