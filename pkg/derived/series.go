package derived

import (
	"time"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/params"
	"github.com/raykavin/chartsync/pkg/window"
)

// Style tells a renderer how to draw a line of a derived series.
type Style string

const (
	StyleLine    Style = "line"
	StyleBar     Style = "bar"
	StyleScatter Style = "scatter"
	StyleArea    Style = "area"
	StyleBand    Style = "band"
)

// Line is one drawable sequence of a derived series. Band lines carry the
// upper edge in Values and the lower edge in Lower. Lines plotted against
// something other than time (feature space, ROC) set X instead of Times.
type Line struct {
	Name   string      `json:"name"`
	Style  Style       `json:"style"`
	Color  string      `json:"color,omitempty"`
	Times  []time.Time `json:"times,omitempty"`
	X      []float64   `json:"x,omitempty"`
	Values []float64   `json:"values"`
	Lower  []float64   `json:"lower,omitempty"`
}

// Grid is a sampled surface, e.g. a classifier decision boundary. Z is
// indexed [y][x].
type Grid struct {
	X []float64   `json:"x"`
	Y []float64   `json:"y"`
	Z [][]float64 `json:"z"`
}

// Matrix is a labelled count table, e.g. a confusion matrix. Counts is
// indexed [actual][predicted].
type Matrix struct {
	Labels []string `json:"labels"`
	Counts [][]int  `json:"counts"`
}

// Series is the output of a transform over one window. Cached values are
// shared between callers and must be treated as read-only.
type Series struct {
	TransformID string             `json:"transform_id"`
	Range       core.TimeRange     `json:"range"`
	Lines       []Line             `json:"lines,omitempty"`
	Grid        *Grid              `json:"grid,omitempty"`
	Matrix      *Matrix            `json:"matrix,omitempty"`
	Scores      map[string]float64 `json:"scores,omitempty"`
	Warmup      int                `json:"warmup,omitempty"`
}

// Line returns the line with the given name.
func (s Series) Line(name string) (Line, bool) {
	for _, l := range s.Lines {
		if l.Name == name {
			return l, true
		}
	}
	return Line{}, false
}

// Transform derives a Series from a window of data and a parameter
// snapshot. Compute must be a pure function of its input.
type Transform interface {
	ID() string
	// RelevantParams lists the parameter names the output depends on. Only
	// these take part in the cache key.
	RelevantParams() []string
	// FullHistory transforms ignore the visible range and always run over
	// the whole series (model evaluation plots).
	FullHistory() bool
	// Warmup is the number of bars of history needed before the window
	// start for the first visible value to be defined.
	Warmup(params.Snapshot) int
	Compute(Input) (Series, error)
}

// Input is what a transform sees: the requested window, extended backwards
// by the warm-up history, and the relevant parameter snapshot.
type Input struct {
	Window window.Window
	Params params.Snapshot

	lo, hi int
}

func newInput(w window.Window, snapshot params.Snapshot, warmup int) Input {
	lo, hi := w.Lookback(warmup)
	return Input{Window: w, Params: snapshot, lo: lo, hi: hi}
}

// Offset is the number of warm-up bars in front of the visible window.
func (in Input) Offset() int {
	lo, _ := in.Window.Bounds()
	return lo - in.lo
}

// Len is the number of bars including warm-up.
func (in Input) Len() int { return in.hi - in.lo }

// Column returns the named column including warm-up bars.
func (in Input) Column(name string) core.Values[float64] {
	return in.Window.Series().Column(name, in.lo, in.hi)
}

func (in Input) HasColumn(name string) bool {
	return in.Window.Series().HasColumn(name)
}

// Times returns the visible timestamps, aligned with Trim's output.
func (in Input) Times() []time.Time {
	return in.Window.Times()
}

// Trim drops the warm-up prefix from values computed over Column output.
func (in Input) Trim(values []float64) []float64 {
	offset := in.Offset()
	if offset >= len(values) {
		return nil
	}
	return values[offset:]
}
