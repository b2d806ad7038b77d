// Package transform provides the overlay transforms the engine ships with:
// technical indicators computed with go-talib and model evaluation plots
// computed with gonum.
package transform

import (
	"errors"
	"fmt"
	"math"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/derived"
	"github.com/raykavin/chartsync/pkg/params"
)

var (
	ErrNotEnoughData = errors.New("not enough data")
	ErrMissingColumn = errors.New("missing column")
)

// Parameterized is implemented by transforms that read parameters. The
// returned declarations carry the defaults to register in the store.
type Parameterized interface {
	Parameters() []params.Parameter
}

type base struct {
	id     string
	color  string
	column string
}

// Option configures an indicator.
type Option func(*base)

// OnColumn computes the indicator over the named OHLCV or metadata column
// instead of the close.
func OnColumn(name string) Option {
	return func(b *base) {
		if name != "" {
			b.column = name
		}
	}
}

func newBase(id, color string, options []Option) base {
	b := base{id: id, color: color, column: core.ColumnClose}
	for _, option := range options {
		option(&b)
	}
	return b
}

func (b base) ID() string        { return b.id }
func (b base) FullHistory() bool { return false }

// param namespaces a parameter name under the transform id.
func (b base) param(name string) string { return b.id + "." + name }

// source returns the input column after checking the series carries it.
func (b base) source(in derived.Input) ([]float64, error) {
	if err := requireColumns(in, b.column); err != nil {
		return nil, err
	}
	return in.Column(b.column), nil
}

// label names a line, adding the column when it is not the close.
func (b base) label(format string, args ...any) string {
	name := fmt.Sprintf(format, args...)
	if b.column == core.ColumnClose {
		return name
	}
	return name + "[" + b.column + "]"
}

func requireBars(in derived.Input, n int) error {
	if in.Len() < n {
		return fmt.Errorf("%w: need %d bars, have %d", ErrNotEnoughData, n, in.Len())
	}
	return nil
}

func requireColumns(in derived.Input, names ...string) error {
	for _, name := range names {
		if !in.HasColumn(name) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return nil
}

// visible replaces the lookback prefix, which talib leaves at zero, with NaN
// and drops the warm-up bars in front of the window.
func visible(in derived.Input, values []float64, lookback int) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	for i := 0; i < lookback && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return in.Trim(out)
}

// level is a horizontal reference line across the window.
func level(in derived.Input, name, color string, value float64) derived.Line {
	values := make([]float64, len(in.Times()))
	for i := range values {
		values[i] = value
	}
	return timeLine(in, name, derived.StyleLine, color, values)
}

func timeLine(in derived.Input, name string, style derived.Style, color string, values []float64) derived.Line {
	return derived.Line{
		Name:   name,
		Style:  style,
		Color:  color,
		Times:  in.Times(),
		Values: values,
	}
}
