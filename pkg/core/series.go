package core

import (
	"fmt"
	"maps"
	"sort"
	"time"
)

// Series is an immutable, time-ordered dataset. Timestamps are strictly
// increasing. All accessors return copies or read-only views.
type Series struct {
	id      string
	bars    []Bar
	columns []string
}

// NewSeries validates and copies bars into a Series identified by id.
func NewSeries(id string, bars []Bar) (*Series, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("series %q: %w", id, ErrEmptySeries)
	}

	owned := make([]Bar, len(bars))
	columns := make(map[string]struct{})
	for i, bar := range bars {
		if i > 0 && !bar.Time.After(bars[i-1].Time) {
			return nil, fmt.Errorf("series %q at index %d (%s): %w", id, i, bar.Time, ErrUnorderedSeries)
		}
		owned[i] = bar
		owned[i].Metadata = maps.Clone(bar.Metadata)
		for name := range bar.Metadata {
			columns[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Series{id: id, bars: owned, columns: names}, nil
}

func (s *Series) ID() string { return s.id }

func (s *Series) Len() int { return len(s.bars) }

// Bar returns a copy of the bar at index i.
func (s *Series) Bar(i int) Bar {
	b := s.bars[i]
	b.Metadata = maps.Clone(b.Metadata)
	return b
}

// Columns returns the metadata column names, sorted.
func (s *Series) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Span is the smallest half-open range containing every timestamp.
func (s *Series) Span() TimeRange {
	return TimeRange{
		Start: s.bars[0].Time,
		End:   s.bars[len(s.bars)-1].Time.Add(time.Nanosecond),
	}
}

// Index returns the position of the first bar at or after t.
func (s *Series) Index(t time.Time) int {
	return sort.Search(len(s.bars), func(i int) bool {
		return !s.bars[i].Time.Before(t)
	})
}

// Bounds returns the [lo, hi) index interval of bars inside r.
func (s *Series) Bounds(r TimeRange) (lo, hi int) {
	return s.Index(r.Start), s.Index(r.End)
}

// Times returns the timestamps of bars in [lo, hi).
func (s *Series) Times(lo, hi int) []time.Time {
	out := make([]time.Time, 0, hi-lo)
	for _, b := range s.bars[lo:hi] {
		out = append(out, b.Time)
	}
	return out
}

// Column extracts one field for bars in [lo, hi). Bars missing a metadata
// column contribute zero; use HasColumn to check first.
func (s *Series) Column(name string, lo, hi int) Values[float64] {
	out := make(Values[float64], 0, hi-lo)
	for _, b := range s.bars[lo:hi] {
		v, _ := b.Value(name)
		out = append(out, v)
	}
	return out
}

// HasColumn reports whether name is an OHLCV field or a metadata column.
func (s *Series) HasColumn(name string) bool {
	switch name {
	case ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume:
		return true
	}
	i := sort.SearchStrings(s.columns, name)
	return i < len(s.columns) && s.columns[i] == name
}
