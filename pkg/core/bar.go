package core

import "time"

// Bar is one row of a Series: OHLCV plus named metadata columns such as
// model predictions, labels or feature values.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	Metadata map[string]float64
}

// Value returns a field by column name. OHLCV names are lower case; any
// other name is looked up in Metadata.
func (b Bar) Value(column string) (float64, bool) {
	switch column {
	case ColumnOpen:
		return b.Open, true
	case ColumnHigh:
		return b.High, true
	case ColumnLow:
		return b.Low, true
	case ColumnClose:
		return b.Close, true
	case ColumnVolume:
		return b.Volume, true
	}
	v, ok := b.Metadata[column]
	return v, ok
}

const (
	ColumnOpen   = "open"
	ColumnHigh   = "high"
	ColumnLow    = "low"
	ColumnClose  = "close"
	ColumnVolume = "volume"

	ColumnActual    = "actual"
	ColumnPredicted = "predicted"
)
