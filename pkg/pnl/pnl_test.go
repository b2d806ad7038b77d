package pnl

import (
	"errors"
	"testing"
	"time"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	nine = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	ten  = nine.Add(time.Hour)
)

func selection(t *testing.T, points ...core.Point) view.Selection {
	t.Helper()
	sel, err := view.NewSelection(points...)
	require.NoError(t, err)
	return sel
}

func TestSimulate_OutOfOrderClicks(t *testing.T) {
	// exit clicked before entry
	sel := selection(t, core.Point{Time: ten, Price: 100}, core.Point{Time: nine, Price: 90})

	result, err := Simulate(sel, Long, 2)
	require.NoError(t, err)
	assert.Equal(t, core.Point{Time: nine, Price: 90}, result.Entry)
	assert.Equal(t, core.Point{Time: ten, Price: 100}, result.Exit)
	assert.InDelta(t, 20.0, result.Absolute, 1e-9)
	assert.InDelta(t, 11.1111, result.Percent, 1e-4)
	assert.Equal(t, time.Hour, result.Duration)
	assert.True(t, result.Win())
}

func TestSimulate_Short(t *testing.T) {
	sel := selection(t, core.Point{Time: nine, Price: 90}, core.Point{Time: ten, Price: 100})

	result, err := Simulate(sel, Short, 3)
	require.NoError(t, err)
	assert.InDelta(t, -30.0, result.Absolute, 1e-9)
	assert.InDelta(t, -11.1111, result.Percent, 1e-4)
	assert.False(t, result.Win())
}

func TestSimulate_Errors(t *testing.T) {
	t.Run("single point", func(t *testing.T) {
		_, err := Simulate(selection(t, core.Point{Time: nine, Price: 90}), Long, 1)
		var incomplete *core.IncompleteSelectionError
		require.True(t, errors.As(err, &incomplete))
		assert.Equal(t, 1, incomplete.Points)
	})

	t.Run("zero size", func(t *testing.T) {
		sel := selection(t, core.Point{Time: nine, Price: 90}, core.Point{Time: ten, Price: 100})
		_, err := Simulate(sel, Long, 0)
		var invalid *core.InvalidSizeError
		require.True(t, errors.As(err, &invalid))
	})

	t.Run("negative size", func(t *testing.T) {
		sel := selection(t, core.Point{Time: nine, Price: 90}, core.Point{Time: ten, Price: 100})
		_, err := Simulate(sel, Short, -1)
		var invalid *core.InvalidSizeError
		require.True(t, errors.As(err, &invalid))
	})

	t.Run("zero entry price", func(t *testing.T) {
		sel := selection(t, core.Point{Time: nine, Price: 0}, core.Point{Time: ten, Price: 5})
		result, err := Simulate(sel, Long, 1)
		require.NoError(t, err)
		assert.Zero(t, result.Percent)
		assert.InDelta(t, 5.0, result.Absolute, 1e-9)
	})
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("SHORT")
	require.NoError(t, err)
	assert.Equal(t, Short, d)

	d, err = ParseDirection("buy")
	require.NoError(t, err)
	assert.Equal(t, Long, d)

	_, err = ParseDirection("sideways")
	require.Error(t, err)
}
