package transform

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/raykavin/chartsync/pkg/derived"
	"github.com/raykavin/chartsync/pkg/params"
)

// RSI reference levels.
const (
	RSIOverbought = 70.0
	RSIOversold   = 30.0
)

// MovingAverage is a simple or exponential moving average of the close, or
// of the column chosen with OnColumn.
type MovingAverage struct {
	base
	kind   talib.MaType
	period int
}

// SMA creates a simple moving average. The period is read from the
// parameter "<id>.period".
func SMA(id string, period int, color string, options ...Option) *MovingAverage {
	return &MovingAverage{base: newBase(id, color, options), kind: talib.SMA, period: period}
}

// EMA creates an exponential moving average.
func EMA(id string, period int, color string, options ...Option) *MovingAverage {
	return &MovingAverage{base: newBase(id, color, options), kind: talib.EMA, period: period}
}

func (m *MovingAverage) Parameters() []params.Parameter {
	return []params.Parameter{params.Int(m.param("period"), m.period, 2, 1000)}
}

func (m *MovingAverage) RelevantParams() []string { return []string{m.param("period")} }

func (m *MovingAverage) Warmup(s params.Snapshot) int {
	return s.IntOr(m.param("period"), m.period) - 1
}

func (m *MovingAverage) Compute(in derived.Input) (derived.Series, error) {
	period, err := in.Params.Int(m.param("period"))
	if err != nil {
		return derived.Series{}, err
	}
	if err := requireBars(in, period); err != nil {
		return derived.Series{}, err
	}

	source, err := m.source(in)
	if err != nil {
		return derived.Series{}, err
	}
	var values []float64
	name := m.label("SMA(%d)", period)
	if m.kind == talib.EMA {
		values = talib.Ema(source, period)
		name = m.label("EMA(%d)", period)
	} else {
		values = talib.Sma(source, period)
	}

	return derived.Series{Lines: []derived.Line{
		timeLine(in, name, derived.StyleLine, m.color, visible(in, values, period-1)),
	}}, nil
}

// RSI is the relative strength index of the close, drawn with the
// overbought and oversold levels.
type RSI struct {
	base
	period int
}

func NewRSI(id string, period int, color string, options ...Option) *RSI {
	return &RSI{base: newBase(id, color, options), period: period}
}

func (r *RSI) Parameters() []params.Parameter {
	return []params.Parameter{params.Int(r.param("period"), r.period, 2, 1000)}
}

func (r *RSI) RelevantParams() []string { return []string{r.param("period")} }

func (r *RSI) Warmup(s params.Snapshot) int {
	return s.IntOr(r.param("period"), r.period)
}

func (r *RSI) Compute(in derived.Input) (derived.Series, error) {
	period, err := in.Params.Int(r.param("period"))
	if err != nil {
		return derived.Series{}, err
	}
	if err := requireBars(in, period+1); err != nil {
		return derived.Series{}, err
	}

	source, err := r.source(in)
	if err != nil {
		return derived.Series{}, err
	}

	values := talib.Rsi(source, period)
	return derived.Series{Lines: []derived.Line{
		timeLine(in, r.label("RSI(%d)", period), derived.StyleLine, r.color, visible(in, values, period)),
		level(in, "Overbought", r.color, RSIOverbought),
		level(in, "Oversold", r.color, RSIOversold),
	}}, nil
}

// MACD is the moving average convergence divergence of the close, drawn as
// the MACD and signal lines plus a histogram.
type MACD struct {
	base
	fast, slow, signal int
	colorSignal        string
	colorHist          string
}

func NewMACD(id string, fast, slow, signal int, colorMACD, colorSignal, colorHist string, options ...Option) *MACD {
	return &MACD{
		base:        newBase(id, colorMACD, options),
		fast:        fast,
		slow:        slow,
		signal:      signal,
		colorSignal: colorSignal,
		colorHist:   colorHist,
	}
}

func (m *MACD) Parameters() []params.Parameter {
	return []params.Parameter{
		params.Int(m.param("fast"), m.fast, 2, 1000),
		params.Int(m.param("slow"), m.slow, 2, 1000),
		params.Int(m.param("signal"), m.signal, 1, 1000),
	}
}

func (m *MACD) RelevantParams() []string {
	return []string{m.param("fast"), m.param("slow"), m.param("signal")}
}

func (m *MACD) Warmup(s params.Snapshot) int {
	return s.IntOr(m.param("slow"), m.slow) + s.IntOr(m.param("signal"), m.signal) - 2
}

func (m *MACD) Compute(in derived.Input) (derived.Series, error) {
	fast, err := in.Params.Int(m.param("fast"))
	if err != nil {
		return derived.Series{}, err
	}
	slow, err := in.Params.Int(m.param("slow"))
	if err != nil {
		return derived.Series{}, err
	}
	signal, err := in.Params.Int(m.param("signal"))
	if err != nil {
		return derived.Series{}, err
	}
	if fast >= slow {
		return derived.Series{}, fmt.Errorf("fast period %d must be below slow period %d", fast, slow)
	}

	lookback := slow + signal - 2
	if err := requireBars(in, lookback+1); err != nil {
		return derived.Series{}, err
	}

	source, err := m.source(in)
	if err != nil {
		return derived.Series{}, err
	}

	macdLine, signalLine, histogram := talib.Macd(source, fast, slow, signal)
	return derived.Series{Lines: []derived.Line{
		timeLine(in, m.label("MACD"), derived.StyleLine, m.color, visible(in, macdLine, lookback)),
		timeLine(in, m.label("MACDSignal"), derived.StyleLine, m.colorSignal, visible(in, signalLine, lookback)),
		timeLine(in, m.label("MACDHist"), derived.StyleBar, m.colorHist, visible(in, histogram, lookback)),
	}}, nil
}

// Bollinger draws a simple moving average of the close with bands a number
// of standard deviations above and below it.
type Bollinger struct {
	base
	period    int
	deviation float64
}

func NewBollinger(id string, period int, deviation float64, color string, options ...Option) *Bollinger {
	return &Bollinger{base: newBase(id, color, options), period: period, deviation: deviation}
}

func (b *Bollinger) Parameters() []params.Parameter {
	return []params.Parameter{
		params.Int(b.param("period"), b.period, 2, 1000),
		params.Float(b.param("deviation"), b.deviation, 0.1, 10),
	}
}

func (b *Bollinger) RelevantParams() []string {
	return []string{b.param("period"), b.param("deviation")}
}

func (b *Bollinger) Warmup(s params.Snapshot) int {
	return s.IntOr(b.param("period"), b.period) - 1
}

func (b *Bollinger) Compute(in derived.Input) (derived.Series, error) {
	period, err := in.Params.Int(b.param("period"))
	if err != nil {
		return derived.Series{}, err
	}
	deviation, err := in.Params.Float(b.param("deviation"))
	if err != nil {
		return derived.Series{}, err
	}
	if err := requireBars(in, period); err != nil {
		return derived.Series{}, err
	}

	source, err := b.source(in)
	if err != nil {
		return derived.Series{}, err
	}

	upper, middle, lower := talib.BBands(source, period, deviation, deviation, talib.SMA)

	band := timeLine(in, b.label("BB"), derived.StyleBand, b.color, visible(in, upper, period-1))
	band.Lower = visible(in, lower, period-1)

	return derived.Series{Lines: []derived.Line{
		timeLine(in, b.label("BB(%d, %.1f)", period, deviation), derived.StyleLine, b.color, visible(in, middle, period-1)),
		band,
	}}, nil
}
