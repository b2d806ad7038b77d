package metric

import (
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// Interval is a bootstrap confidence interval of a measure.
type Interval struct {
	Lower  float64
	Upper  float64
	StdDev float64
	Mean   float64
}

// Bootstrap resamples values with replacement samples times, applies
// measure to each resample and returns the confidence interval of the
// results, e.g. confidence 0.95 for the 2.5%..97.5% quantiles.
func Bootstrap(values []float64, measure func([]float64) float64, samples int, confidence float64) Interval {
	if len(values) == 0 || samples < 1 {
		return Interval{}
	}

	data := make([]float64, samples)
	resample := make([]float64, len(values))
	for i := range data {
		for j := range resample {
			resample[j] = lo.Sample(values)
		}
		data[i] = measure(resample)
	}
	sort.Float64s(data)

	tail := (1 - confidence) / 2
	mean, stdDev := stat.MeanStdDev(data, nil)
	if samples == 1 {
		stdDev = 0
	}
	return Interval{
		Lower:  stat.Quantile(tail, stat.LinInterp, data, nil),
		Upper:  stat.Quantile(1-tail, stat.LinInterp, data, nil),
		StdDev: stdDev,
		Mean:   mean,
	}
}
