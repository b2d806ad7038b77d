package view

import "github.com/raykavin/chartsync/pkg/core"

// Kind tags an interaction event.
type Kind int

const (
	KindRange Kind = iota + 1
	KindSelection
	KindHover
	KindChartType
)

func (k Kind) String() string {
	switch k {
	case KindRange:
		return "range"
	case KindSelection:
		return "selection"
	case KindHover:
		return "hover"
	case KindChartType:
		return "chart_type"
	}
	return "unknown"
}

// Event is an interaction emitted by a panel.
type Event interface {
	Kind() Kind
	Origin() string
}

// RangeChanged is a zoom or pan.
type RangeChanged struct {
	Range   core.TimeRange
	PanelID string
}

// SelectionChanged replaces the selection anchors. Zero points clears it.
type SelectionChanged struct {
	Points  []core.Point
	PanelID string
}

// HoverChanged moves the crosshair; a nil Point clears it.
type HoverChanged struct {
	Point   *core.Point
	PanelID string
}

type ChartTypeChanged struct {
	Mode    ChartType
	PanelID string
}

func (e RangeChanged) Kind() Kind     { return KindRange }
func (e SelectionChanged) Kind() Kind { return KindSelection }
func (e HoverChanged) Kind() Kind     { return KindHover }
func (e ChartTypeChanged) Kind() Kind { return KindChartType }

func (e RangeChanged) Origin() string     { return e.PanelID }
func (e SelectionChanged) Origin() string { return e.PanelID }
func (e HoverChanged) Origin() string     { return e.PanelID }
func (e ChartTypeChanged) Origin() string { return e.PanelID }
