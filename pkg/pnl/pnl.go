// Package pnl simulates the profit and loss of a single trade between two
// selected chart points.
package pnl

import (
	"fmt"
	"strings"
	"time"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/view"
)

// Direction is the side of the simulated position.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(s)) {
	case Long, "buy":
		return Long, nil
	case Short, "sell":
		return Short, nil
	}
	return "", fmt.Errorf("invalid direction %q", s)
}

// Result is the outcome of a simulated trade. It is always derived from a
// selection and position parameters, never stored as a source of truth.
type Result struct {
	Entry     core.Point    `json:"entry"`
	Exit      core.Point    `json:"exit"`
	Direction Direction     `json:"direction"`
	Size      float64       `json:"size"`
	Absolute  float64       `json:"absolute"` // P&L in quote units
	Percent   float64       `json:"percent"`  // relative to entry notional, in percent
	Duration  time.Duration `json:"duration"`
}

// Win reports whether the trade made money.
func (r Result) Win() bool { return r.Absolute > 0 }

// Simulate computes the P&L of holding size units from the earlier to the
// later selected point. The selection must hold two points and size must
// be positive.
func Simulate(selection view.Selection, direction Direction, size float64) (Result, error) {
	entry, ok := selection.Entry()
	if !ok {
		return Result{}, &core.IncompleteSelectionError{Points: selection.Len()}
	}
	exit, _ := selection.Exit()

	if !(size > 0) {
		return Result{}, &core.InvalidSizeError{Size: size}
	}

	delta := exit.Price - entry.Price
	switch direction {
	case Long:
	case Short:
		delta = -delta
	default:
		return Result{}, fmt.Errorf("invalid direction %q", direction)
	}

	result := Result{
		Entry:     entry,
		Exit:      exit,
		Direction: direction,
		Size:      size,
		Absolute:  delta * size,
		Duration:  exit.Time.Sub(entry.Time),
	}
	if entry.Price != 0 {
		result.Percent = delta / entry.Price * 100
	}
	return result, nil
}
