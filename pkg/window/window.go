// Package window slices a Series into the range a chart currently shows.
package window

import (
	"fmt"
	"time"

	"github.com/raykavin/chartsync/pkg/core"
)

// Window is an immutable view of a Series over a clamped half-open range.
// A range change produces a new Window; nothing mutates one in place.
type Window struct {
	series *core.Series
	rng    core.TimeRange
	lo, hi int
}

// Slice returns the window of series over r. A range partially outside the
// series span is clamped to it; a range with no overlap, or one holding no
// bar at all, fails with a *core.RangeError.
func Slice(series *core.Series, r core.TimeRange) (Window, error) {
	span := series.Span()
	if r.Empty() {
		return Window{}, &core.RangeError{Requested: r, Span: span, Reason: "range is empty"}
	}

	clamped, ok := r.Intersect(span)
	if !ok {
		return Window{}, &core.RangeError{Requested: r, Span: span}
	}

	lo, hi := series.Bounds(clamped)
	if lo == hi {
		return Window{}, &core.RangeError{Requested: r, Span: span, Reason: "no bars in range"}
	}

	return Window{series: series, rng: clamped, lo: lo, hi: hi}, nil
}

// Full returns the window covering the entire series.
func Full(series *core.Series) Window {
	return Window{series: series, rng: series.Span(), lo: 0, hi: series.Len()}
}

// Narrow re-slices the same series. Narrowing is composition consistent:
// Slice(s, r2).Narrow(r1) equals Slice(s, r1) for r1 inside r2.
func (w Window) Narrow(r core.TimeRange) (Window, error) {
	return Slice(w.series, r)
}

func (w Window) Series() *core.Series  { return w.series }
func (w Window) Range() core.TimeRange { return w.rng }
func (w Window) Len() int              { return w.hi - w.lo }
func (w Window) IsZero() bool          { return w.series == nil }

// Contains reports whether t lies inside the window range.
func (w Window) Contains(t time.Time) bool {
	return w.rng.Contains(t)
}

// Bounds returns the window's [lo, hi) bar indices in the series.
func (w Window) Bounds() (lo, hi int) {
	return w.lo, w.hi
}

// Lookback returns bounds extended up to n bars before the window start, for
// transforms that need warm-up history. lo is never below 0.
func (w Window) Lookback(n int) (lo, hi int) {
	return max(0, w.lo-n), w.hi
}

func (w Window) Bars() []core.Bar {
	out := make([]core.Bar, 0, w.Len())
	for i := w.lo; i < w.hi; i++ {
		out = append(out, w.series.Bar(i))
	}
	return out
}

func (w Window) Times() []time.Time {
	return w.series.Times(w.lo, w.hi)
}

func (w Window) Column(name string) core.Values[float64] {
	return w.series.Column(name, w.lo, w.hi)
}

// First and Last return the first and last bar timestamps inside the window.
func (w Window) First() time.Time { return w.series.Bar(w.lo).Time }
func (w Window) Last() time.Time  { return w.series.Bar(w.hi - 1).Time }

// Clamp maps t into the window: in-range instants are returned unchanged,
// instants before or after the window snap to its first or last bar.
func (w Window) Clamp(t time.Time) time.Time {
	switch {
	case w.Contains(t):
		return t
	case t.Before(w.rng.Start):
		return w.First()
	default:
		return w.Last()
	}
}

// Key identifies the window for caching: same series, same clamped range.
func (w Window) Key() string {
	return fmt.Sprintf("%s|%d|%d", w.series.ID(), w.rng.Start.UnixNano(), w.rng.End.UnixNano())
}

func (w Window) Equal(o Window) bool {
	return w.series == o.series && w.rng.Equal(o.rng)
}
