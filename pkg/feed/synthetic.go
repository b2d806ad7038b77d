package feed

import (
	"math"
	"math/rand"
	"time"

	"github.com/raykavin/chartsync/pkg/core"
)

// RandomWalk generates a reproducible series of n bars for demos. Besides
// OHLCV every bar carries the metadata columns the model plots read:
// actual, predicted, feature1, feature2, label, score and guess, the
// score thresholded at 0.5.
func RandomWalk(id string, n int, start time.Time, step time.Duration, price float64, seed int64) (*core.Series, error) {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]core.Bar, n)

	prev := price
	for i := range bars {
		open := prev
		closing := open * math.Exp(rng.NormFloat64()*0.01)
		high := math.Max(open, closing) * (1 + rng.Float64()*0.005)
		low := math.Min(open, closing) * (1 - rng.Float64()*0.005)

		f1, f2 := rng.NormFloat64(), rng.NormFloat64()
		label := 0.0
		if f1+f2+rng.NormFloat64()*0.5 > 0 {
			label = 1
		}

		score := 1 / (1 + math.Exp(-(f1 + f2)))
		guess := 0.0
		if score >= 0.5 {
			guess = 1
		}

		bars[i] = core.Bar{
			Time:   start.Add(time.Duration(i) * step),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closing,
			Volume: math.Round(1000 + rng.Float64()*9000),
			Metadata: map[string]float64{
				core.ColumnActual:    closing,
				core.ColumnPredicted: open + rng.NormFloat64()*open*0.005,
				"feature1":           f1,
				"feature2":           f2,
				"label":              label,
				"score":              score,
				"guess":              guess,
			},
		}
		prev = closing
	}

	return core.NewSeries(id, bars)
}
