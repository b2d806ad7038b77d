// Package metric summarizes the price movement inside a visible window.
package metric

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Returns converts consecutive closes into fractional returns. A step from
// a zero or NaN close is skipped.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}

	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev == 0 || math.IsNaN(prev) || math.IsNaN(cur) {
			continue
		}
		out = append(out, cur/prev-1)
	}
	return out
}

// Mean calculates the arithmetic mean of the values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Payoff is the ratio of the average up move to the average down move.
func Payoff(values []float64) float64 {
	ups, downs := partition(values)
	if len(downs) == 0 || len(ups) == 0 {
		return 0
	}

	avgDown := stat.Mean(downs, nil)
	if avgDown == 0 {
		return 0
	}
	return stat.Mean(ups, nil) / avgDown
}

// ProfitFactor is the ratio of the summed up moves to the summed down
// moves.
func ProfitFactor(values []float64) float64 {
	ups, downs := partition(values)

	var up, down float64
	for _, v := range ups {
		up += v
	}
	for _, v := range downs {
		down += v
	}
	if down == 0 {
		return 0
	}
	return up / down
}

// MaxDrawdown returns the largest peak-to-trough decline of closes as a
// positive fraction.
func MaxDrawdown(closes []float64) float64 {
	var peak, worst float64
	for _, c := range closes {
		if math.IsNaN(c) {
			continue
		}
		if c > peak {
			peak = c
			continue
		}
		if peak > 0 {
			worst = math.Max(worst, (peak-c)/peak)
		}
	}
	return worst
}

// partition splits values into up moves and the absolute down moves. Zero
// counts as neither.
func partition(values []float64) (ups, downs []float64) {
	for _, v := range values {
		switch {
		case v > 0:
			ups = append(ups, v)
		case v < 0:
			downs = append(downs, -v)
		}
	}
	return ups, downs
}
