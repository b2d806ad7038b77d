package feed

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_Headerless(t *testing.T) {
	data := "1704067200,10,11,9,12,100\n1704070800,11,12,10,13,200\n"

	series, err := ReadCSV(strings.NewReader(data), WithID("btc"))
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, "btc", series.ID())

	bar := series.Bar(1)
	assert.Equal(t, time.Unix(1704070800, 0).UTC(), bar.Time)
	assert.Equal(t, 11.0, bar.Open)
	assert.Equal(t, 12.0, bar.Close)
	assert.Equal(t, 10.0, bar.Low)
	assert.Equal(t, 13.0, bar.High)
	assert.Equal(t, 200.0, bar.Volume)
	assert.Empty(t, series.Columns())
}

func TestReadCSV_HeaderWithMetadata(t *testing.T) {
	data := strings.Join([]string{
		"time,open,high,low,close,volume,predicted,label",
		"2024-01-01,10,12,9,11,100,10.5,1",
		"2024-01-02,11,13,10,12,200,,0",
	}, "\n")

	series, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"label", "predicted"}, series.Columns())

	first := series.Bar(0)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.Time)
	assert.Equal(t, 12.0, first.High)
	assert.Equal(t, 11.0, first.Close)
	assert.Equal(t, 10.5, first.Metadata["predicted"])

	assert.True(t, math.IsNaN(series.Bar(1).Metadata["predicted"]))
}

func TestReadCSV_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"bad time":       "time,open,close,low,high,volume\nyesterday,1,1,1,1,1\n",
		"bad price":      "1704067200,1,x,1,1,1\n",
		"missing column": "time,open,close\n1704067200,1,1\n",
		"short row":      "1704067200,1,1\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(data))
			require.Error(t, err)
		})
	}

	t.Run("unordered", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("1704070800,1,1,1,1,1\n1704067200,1,1,1,1,1\n"))
		require.ErrorIs(t, err, core.ErrUnorderedSeries)
	})
}

func hourlyCSV(hours int) string {
	var sb strings.Builder
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < hours; i++ {
		c := float64(100 + i)
		sb.WriteString(strings.Join([]string{
			formatInt(start.Add(time.Duration(i) * time.Hour).Unix()),
			formatFloat(c), formatFloat(c + 1), formatFloat(c - 1), formatFloat(c + 2), "10",
		}, ","))
		sb.WriteString("\n")
	}
	return sb.String()
}

func TestReadCSV_Resample(t *testing.T) {
	// two full days and a partial third one
	series, err := ReadCSV(strings.NewReader(hourlyCSV(53)), WithResample("1h", "1d"))
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())

	day := series.Bar(0)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), day.Time)
	assert.Equal(t, 100.0, day.Open)
	assert.Equal(t, 124.0, day.Close)
	assert.Equal(t, 99.0, day.Low)
	assert.Equal(t, 125.0, day.High)
	assert.Equal(t, 240.0, day.Volume)

	_, err = ReadCSV(strings.NewReader(hourlyCSV(5)), WithResample("1h", "3d"))
	require.Error(t, err)
}

func TestReadCSV_Limit(t *testing.T) {
	series, err := ReadCSV(strings.NewReader(hourlyCSV(72)), WithLimit("1d"))
	require.NoError(t, err)
	assert.Equal(t, 24, series.Len())

	_, err = ReadCSV(strings.NewReader(hourlyCSV(5)), WithLimit("soon"))
	require.Error(t, err)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eth-usd.csv")
	require.NoError(t, os.WriteFile(path, []byte(hourlyCSV(3)), 0o600))

	series, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, "eth-usd", series.ID())
	assert.Equal(t, 3, series.Len())

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestRandomWalk(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a, err := RandomWalk("demo", 100, start, time.Hour, 100, 42)
	require.NoError(t, err)
	b, err := RandomWalk("demo", 100, start, time.Hour, 100, 42)
	require.NoError(t, err)

	require.Equal(t, 100, a.Len())
	assert.Equal(t, a.Bar(50), b.Bar(50))
	for _, column := range []string{core.ColumnActual, core.ColumnPredicted, "feature1", "feature2", "label", "score", "guess"} {
		assert.True(t, a.HasColumn(column), column)
	}
	for i := 0; i < a.Len(); i++ {
		bar := a.Bar(i)
		assert.LessOrEqual(t, bar.Low, math.Min(bar.Open, bar.Close))
		assert.GreaterOrEqual(t, bar.High, math.Max(bar.Open, bar.Close))
	}
}

func formatInt(v int64) string     { return strconv.FormatInt(v, 10) }
func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
