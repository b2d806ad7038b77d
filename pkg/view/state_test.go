package view

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/stretchr/testify/require"
)

func TestNewSelection_OrdersByTime(t *testing.T) {
	nine := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	ten := nine.Add(time.Hour)

	sel, err := NewSelection(core.Point{Time: ten, Price: 100}, core.Point{Time: nine, Price: 90})
	require.NoError(t, err)

	entry, ok := sel.Entry()
	require.True(t, ok)
	require.Equal(t, core.Point{Time: nine, Price: 90}, entry)

	exit, ok := sel.Exit()
	require.True(t, ok)
	require.Equal(t, core.Point{Time: ten, Price: 100}, exit)
}

func TestNewSelection_TooMany(t *testing.T) {
	p := core.Point{Time: time.Now()}
	_, err := NewSelection(p, p, p)
	require.ErrorIs(t, err, core.ErrTooManyPoints)
}

func TestSelection_Incomplete(t *testing.T) {
	sel, err := NewSelection(core.Point{Time: time.Now(), Price: 1})
	require.NoError(t, err)
	_, ok := sel.Entry()
	require.False(t, ok)
}

func TestState_SameView(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := State{Version: 1, Range: core.NewRange(base, base.AddDate(0, 1, 0)), ChartType: Line}
	b := a
	b.Version = 7
	b.Origin = "volume"
	require.True(t, a.SameView(b))

	b.Hover = &core.Point{Time: base}
	require.False(t, a.SameView(b))
	require.True(t, a.SameView(b.WithoutHover()))
}

func TestState_JSON(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sel, err := NewSelection(core.Point{Time: base.Add(time.Hour), Price: 2}, core.Point{Time: base, Price: 1})
	require.NoError(t, err)

	in := State{Version: 3, Range: core.NewRange(base, base.AddDate(0, 0, 7)), Selection: sel, ChartType: Candlestick}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out State
	require.NoError(t, json.Unmarshal(raw, &out))
	require.True(t, in.SameView(out))
	require.Equal(t, in.Version, out.Version)
}

func TestParseChartType(t *testing.T) {
	c, err := ParseChartType("candlestick")
	require.NoError(t, err)
	require.Equal(t, Candlestick, c)

	_, err = ParseChartType("pie")
	require.True(t, errors.Is(err, core.ErrInvalidChartType))
}
