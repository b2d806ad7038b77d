package panel

import (
	"math"
	"time"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/view"
	"github.com/samber/lo"
)

// LineChart draws the close as a line.
type LineChart struct{ *base }

func NewLineChart(id string, options ...Option) *LineChart {
	return &LineChart{newBase(id, view.Line, options...)}
}

func (c *LineChart) Render(frame Frame) error {
	return c.draw(frame, columnMark(view.Line, frame.Bars, core.ColumnClose))
}

// AreaChart draws the close as a filled area.
type AreaChart struct{ *base }

func NewAreaChart(id string, options ...Option) *AreaChart {
	return &AreaChart{newBase(id, view.Area, options...)}
}

func (c *AreaChart) Render(frame Frame) error {
	return c.draw(frame, columnMark(view.Area, frame.Bars, core.ColumnClose))
}

// BarChart draws the volume as bars.
type BarChart struct{ *base }

func NewBarChart(id string, options ...Option) *BarChart {
	return &BarChart{newBase(id, view.Bar, options...)}
}

func (c *BarChart) Render(frame Frame) error {
	return c.draw(frame, columnMark(view.Bar, frame.Bars, core.ColumnVolume))
}

// CandlestickChart draws OHLC candles.
type CandlestickChart struct{ *base }

func NewCandlestickChart(id string, options ...Option) *CandlestickChart {
	return &CandlestickChart{newBase(id, view.Candlestick, options...)}
}

func (c *CandlestickChart) Render(frame Frame) error {
	return c.draw(frame, candleMark(frame.Bars))
}

// ScatterChart plots one column against another, or against time when no
// x column is set, optionally colored by a third.
type ScatterChart struct {
	*base
	x, y, color string
}

func NewScatterChart(id, x, y, color string, options ...Option) *ScatterChart {
	return &ScatterChart{base: newBase(id, view.Scatter, options...), x: x, y: y, color: color}
}

func (c *ScatterChart) Render(frame Frame) error {
	return c.draw(frame, scatterMark(frame.Bars, c.x, c.y, c.color))
}

// PriceChart is the main chart: it draws the series in whatever mode the
// shared chart type currently selects.
type PriceChart struct{ *base }

func NewPriceChart(id string, options ...Option) *PriceChart {
	return &PriceChart{newBase(id, view.Candlestick, options...)}
}

func (c *PriceChart) Render(frame Frame) error {
	switch frame.State.ChartType {
	case view.Candlestick:
		return c.draw(frame, candleMark(frame.Bars))
	case view.Bar:
		return c.draw(frame, columnMark(view.Bar, frame.Bars, core.ColumnClose))
	case view.Scatter:
		return c.draw(frame, scatterMark(frame.Bars, "", core.ColumnClose, ""))
	case view.Area:
		return c.draw(frame, columnMark(view.Area, frame.Bars, core.ColumnClose))
	default:
		return c.draw(frame, columnMark(view.Line, frame.Bars, core.ColumnClose))
	}
}

func column(bars []core.Bar, name string) []float64 {
	return lo.Map(bars, func(b core.Bar, _ int) float64 {
		if v, ok := b.Value(name); ok {
			return v
		}
		return math.NaN()
	})
}

func times(bars []core.Bar) []time.Time {
	return lo.Map(bars, func(b core.Bar, _ int) time.Time { return b.Time })
}

func columnMark(kind view.ChartType, bars []core.Bar, name string) Mark {
	return Mark{Kind: kind, Times: times(bars), Values: column(bars, name)}
}

func candleMark(bars []core.Bar) Mark {
	return Mark{
		Kind: view.Candlestick,
		Candles: lo.Map(bars, func(b core.Bar, _ int) Candle {
			return Candle{Time: b.Time, Open: b.Open, Close: b.Close, High: b.High, Low: b.Low, Volume: b.Volume}
		}),
	}
}

func scatterMark(bars []core.Bar, x, y, color string) Mark {
	m := Mark{Kind: view.Scatter, Values: column(bars, y)}
	if x == "" {
		m.Times = times(bars)
	} else {
		m.X = column(bars, x)
	}
	if color != "" {
		m.Colors = column(bars, color)
	}
	return m
}
