package panel

import (
	"time"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/derived"
	"github.com/raykavin/chartsync/pkg/pnl"
	"github.com/raykavin/chartsync/pkg/view"
)

// Overlay is one resolved derived series of a frame. A failed transform
// keeps its slot with Err set so the renderer can show a placeholder.
type Overlay struct {
	TransformID string         `json:"transform_id"`
	Series      derived.Series `json:"series"`
	Err         error          `json:"-"`
}

func (o Overlay) Failed() bool { return o.Err != nil }

// Frame is everything a panel needs for one render tick.
type Frame struct {
	Panel    string
	State    view.State
	Bars     []core.Bar
	Overlays []Overlay
	PnL      *pnl.Result
	PnLErr   error
}

// Candle is one OHLCV bar as drawn by a candlestick chart.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	Close  float64   `json:"close"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Volume float64   `json:"volume"`
}

// Shape is a rectangle on the chart, used for the entry/exit selection.
type Shape struct {
	StartX time.Time `json:"x0"`
	EndX   time.Time `json:"x1"`
	StartY float64   `json:"y0"`
	EndY   float64   `json:"y1"`
	Color  string    `json:"color"`
}

// Mark is the main series of a panel in drawable form. Which fields are set
// depends on Kind.
type Mark struct {
	Kind    view.ChartType `json:"kind"`
	Candles []Candle       `json:"candles,omitempty"`
	Times   []time.Time    `json:"times,omitempty"`
	X       []float64      `json:"x,omitempty"`
	Values  []float64      `json:"values,omitempty"`
	Colors  []float64      `json:"colors,omitempty"`
}

// Scene is what a Renderer draws.
type Scene struct {
	Panel    string         `json:"panel"`
	Version  uint64         `json:"version"`
	Range    core.TimeRange `json:"range"`
	Main     Mark           `json:"main"`
	Overlays []Overlay      `json:"overlays"`
	Shapes   []Shape        `json:"shapes,omitempty"`
	Hover    *core.Point    `json:"hover,omitempty"`
	PnL      *pnl.Result    `json:"pnl,omitempty"`
}

// Renderer draws scenes. Pixel output lives outside this module.
type Renderer interface {
	Draw(Scene) error
}

type RendererFunc func(Scene) error

func (f RendererFunc) Draw(s Scene) error { return f(s) }
