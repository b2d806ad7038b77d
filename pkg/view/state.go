// Package view defines the shared, versioned view state that every panel
// renders from, and the interaction events that change it.
package view

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/raykavin/chartsync/pkg/core"
)

// ChartType is the rendering mode of the main series.
type ChartType string

const (
	Line        ChartType = "line"
	Bar         ChartType = "bar"
	Area        ChartType = "area"
	Scatter     ChartType = "scatter"
	Candlestick ChartType = "candlestick"
)

var chartTypes = []ChartType{Line, Bar, Area, Scatter, Candlestick}

func (c ChartType) Valid() bool {
	for _, t := range chartTypes {
		if c == t {
			return true
		}
	}
	return false
}

func ParseChartType(s string) (ChartType, error) {
	c := ChartType(s)
	if !c.Valid() {
		return "", fmt.Errorf("%q: %w", s, core.ErrInvalidChartType)
	}
	return c, nil
}

// Selection holds zero, one or two anchor points, always ordered by time so
// the earlier point is the entry whatever the click order.
type Selection struct {
	points []core.Point
}

// NewSelection orders points by timestamp. More than two points is an error.
func NewSelection(points ...core.Point) (Selection, error) {
	if len(points) > 2 {
		return Selection{}, core.ErrTooManyPoints
	}
	sorted := append([]core.Point(nil), points...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})
	return Selection{points: sorted}, nil
}

func (s Selection) Len() int { return len(s.points) }

func (s Selection) Points() []core.Point {
	return append([]core.Point(nil), s.points...)
}

// Entry and Exit return the earlier and later anchors. ok is false when the
// selection is not complete.
func (s Selection) Entry() (p core.Point, ok bool) {
	if len(s.points) < 2 {
		return core.Point{}, false
	}
	return s.points[0], true
}

func (s Selection) Exit() (p core.Point, ok bool) {
	if len(s.points) < 2 {
		return core.Point{}, false
	}
	return s.points[1], true
}

func (s Selection) Equal(o Selection) bool {
	if len(s.points) != len(o.points) {
		return false
	}
	for i := range s.points {
		if !s.points[i].Time.Equal(o.points[i].Time) || s.points[i].Price != o.points[i].Price {
			return false
		}
	}
	return true
}

func (s Selection) MarshalJSON() ([]byte, error) {
	if s.points == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.points)
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	var points []core.Point
	if err := json.Unmarshal(data, &points); err != nil {
		return err
	}
	sel, err := NewSelection(points...)
	if err != nil {
		return err
	}
	*s = sel
	return nil
}

// State is one immutable snapshot of the shared view. Version increases by
// one with every applied change; Origin is the panel whose event produced it.
type State struct {
	Version   uint64         `json:"version"`
	Range     core.TimeRange `json:"range"`
	Selection Selection      `json:"selection"`
	Hover     *core.Point    `json:"hover,omitempty"`
	ChartType ChartType      `json:"chart_type"`
	Origin    string         `json:"origin,omitempty"`
}

// SameView compares the user-visible content, ignoring Version and Origin.
func (s State) SameView(o State) bool {
	return s.Range.Equal(o.Range) &&
		s.Selection.Equal(o.Selection) &&
		s.ChartType == o.ChartType &&
		samePoint(s.Hover, o.Hover)
}

// WithoutHover strips the ephemeral hover point, e.g. before export.
func (s State) WithoutHover() State {
	s.Hover = nil
	return s
}

func samePoint(a, b *core.Point) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Time.Equal(b.Time) && a.Price == b.Price
}
