package feed

import (
	"fmt"
	"math"
	"time"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/xhit/go-str2duration/v2"
)

// isFirstBarOfPeriod reports whether the bar at t opens a target period.
func isFirstBarOfPeriod(t time.Time, fromTimeframe, targetTimeframe string) (bool, error) {
	fromDuration, err := str2duration.ParseDuration(fromTimeframe)
	if err != nil {
		return false, err
	}

	prev := t.Add(-fromDuration).UTC()
	return isLastBarOfPeriod(prev, fromTimeframe, targetTimeframe)
}

// isLastBarOfPeriod reports whether the bar at t closes a target period.
func isLastBarOfPeriod(t time.Time, fromTimeframe, targetTimeframe string) (bool, error) {
	if fromTimeframe == targetTimeframe {
		return true, nil
	}

	fromDuration, err := str2duration.ParseDuration(fromTimeframe)
	if err != nil {
		return false, err
	}

	next := t.Add(fromDuration).UTC()
	return isTimeOnPeriodBoundary(next, targetTimeframe)
}

func isTimeOnPeriodBoundary(t time.Time, targetTimeframe string) (bool, error) {
	switch targetTimeframe {
	case "1m":
		return t.Second() == 0, nil
	case "5m":
		return t.Minute()%5 == 0 && t.Second() == 0, nil
	case "15m":
		return t.Minute()%15 == 0 && t.Second() == 0, nil
	case "30m":
		return t.Minute()%30 == 0 && t.Second() == 0, nil
	case "1h":
		return t.Minute() == 0 && t.Second() == 0, nil
	case "4h":
		return t.Hour()%4 == 0 && t.Minute() == 0 && t.Second() == 0, nil
	case "1d":
		return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0, nil
	case "1w":
		return t.Weekday() == time.Sunday && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0, nil
	default:
		return false, fmt.Errorf("invalid timeframe: %s", targetTimeframe)
	}
}

// resample aggregates bars into target periods: first open, highest high,
// lowest low, last close, summed volume and last metadata values. Bars
// before the first period boundary and an incomplete last period are
// dropped.
func resample(bars []core.Bar, sourceTimeframe, targetTimeframe string) ([]core.Bar, error) {
	startIdx := 0
	for i := range bars {
		isFirst, err := isFirstBarOfPeriod(bars[i].Time, sourceTimeframe, targetTimeframe)
		if err != nil {
			return nil, err
		}
		if isFirst {
			startIdx = i
			break
		}
	}

	var (
		out      = make([]core.Bar, 0, len(bars)/4+1)
		current  core.Bar
		inPeriod bool
	)
	for _, bar := range bars[startIdx:] {
		isLast, err := isLastBarOfPeriod(bar.Time, sourceTimeframe, targetTimeframe)
		if err != nil {
			return nil, err
		}

		if !inPeriod {
			current = bar
			inPeriod = true
		} else {
			current.High = math.Max(current.High, bar.High)
			current.Low = math.Min(current.Low, bar.Low)
			current.Close = bar.Close
			current.Volume += bar.Volume
			current.Metadata = bar.Metadata
		}

		if isLast {
			out = append(out, current)
			inPeriod = false
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no complete %s period", ErrInsufficientData, targetTimeframe)
	}
	return out, nil
}
