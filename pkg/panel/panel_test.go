package panel

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/derived"
	"github.com/raykavin/chartsync/pkg/syncbus"
	"github.com/raykavin/chartsync/pkg/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func bars(n int) []core.Bar {
	out := make([]core.Bar, n)
	for i := range out {
		c := float64(100 + i)
		out[i] = core.Bar{
			Time:     start.AddDate(0, 0, i),
			Open:     c - 1,
			High:     c + 2,
			Low:      c - 2,
			Close:    c,
			Volume:   float64(1000 * (i + 1)),
			Metadata: map[string]float64{"feature1": float64(i), "feature2": float64(2 * i)},
		}
	}
	return out
}

func frame(t *testing.T, chartType view.ChartType) Frame {
	t.Helper()
	selection, err := view.NewSelection(
		core.Point{Time: start.AddDate(0, 0, 3), Price: 103},
		core.Point{Time: start.AddDate(0, 0, 1), Price: 101},
	)
	require.NoError(t, err)
	return Frame{
		Panel: "p",
		State: view.State{Version: 7, ChartType: chartType, Selection: selection},
		Bars:  bars(5),
		Overlays: []Overlay{
			{TransformID: "sma", Series: derived.Series{TransformID: "sma"}},
			{TransformID: "broken", Err: errors.New("not enough data")},
		},
	}
}

func TestVariants(t *testing.T) {
	recorder := NewRecorder()

	t.Run("line uses close", func(t *testing.T) {
		chart := NewLineChart("p", WithRenderer(recorder))
		require.NoError(t, chart.Render(frame(t, view.Line)))
		scene, _ := recorder.Last()
		assert.Equal(t, view.Line, scene.Main.Kind)
		assert.Equal(t, []float64{100, 101, 102, 103, 104}, scene.Main.Values)
		assert.Len(t, scene.Main.Times, 5)
	})

	t.Run("area uses close", func(t *testing.T) {
		require.NoError(t, NewAreaChart("p", WithRenderer(recorder)).Render(frame(t, view.Line)))
		scene, _ := recorder.Last()
		assert.Equal(t, view.Area, scene.Main.Kind)
		assert.Equal(t, 100.0, scene.Main.Values[0])
	})

	t.Run("bar uses volume", func(t *testing.T) {
		require.NoError(t, NewBarChart("p", WithRenderer(recorder)).Render(frame(t, view.Line)))
		scene, _ := recorder.Last()
		assert.Equal(t, []float64{1000, 2000, 3000, 4000, 5000}, scene.Main.Values)
	})

	t.Run("candlestick uses ohlc", func(t *testing.T) {
		require.NoError(t, NewCandlestickChart("p", WithRenderer(recorder)).Render(frame(t, view.Line)))
		scene, _ := recorder.Last()
		require.Len(t, scene.Main.Candles, 5)
		assert.Equal(t, Candle{Time: start, Open: 99, Close: 100, High: 102, Low: 98, Volume: 1000}, scene.Main.Candles[0])
	})

	t.Run("scatter uses metadata columns", func(t *testing.T) {
		chart := NewScatterChart("p", "feature1", "feature2", "missing", WithRenderer(recorder))
		require.NoError(t, chart.Render(frame(t, view.Line)))
		scene, _ := recorder.Last()
		assert.Equal(t, []float64{0, 1, 2, 3, 4}, scene.Main.X)
		assert.Equal(t, []float64{0, 2, 4, 6, 8}, scene.Main.Values)
		require.Len(t, scene.Main.Colors, 5)
		assert.True(t, math.IsNaN(scene.Main.Colors[0]))
		assert.Empty(t, scene.Main.Times)
	})

	t.Run("price chart follows the shared chart type", func(t *testing.T) {
		chart := NewPriceChart("p", WithRenderer(recorder))
		for _, mode := range []view.ChartType{view.Line, view.Bar, view.Area, view.Scatter, view.Candlestick} {
			require.NoError(t, chart.Render(frame(t, mode)))
			scene, _ := recorder.Last()
			assert.Equal(t, mode, scene.Main.Kind)
		}
	})

	t.Run("scene carries selection and failed overlays", func(t *testing.T) {
		scene, _ := recorder.Last()
		assert.Equal(t, uint64(7), scene.Version)
		require.Len(t, scene.Shapes, 1)
		assert.Equal(t, start.AddDate(0, 0, 1), scene.Shapes[0].StartX)
		assert.Equal(t, 103.0, scene.Shapes[0].EndY)
		require.Len(t, scene.Overlays, 2)
		assert.False(t, scene.Overlays[0].Failed())
		assert.True(t, scene.Overlays[1].Failed())
	})
}

type emitted struct {
	mu     sync.Mutex
	events []view.Event
}

func (e *emitted) Publish(ev view.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func TestEmit(t *testing.T) {
	chart := NewLineChart("main")
	require.ErrorIs(t, chart.Zoom(core.TimeRange{}), core.ErrBusStopped)

	sink := &emitted{}
	chart.Bind(sink)

	require.NoError(t, chart.Zoom(core.NewRange(start, start.AddDate(0, 1, 0))))
	require.NoError(t, chart.Select(core.Point{Time: start}))
	require.NoError(t, chart.Hover(nil))
	require.NoError(t, chart.SwitchType(view.Bar))
	require.NoError(t, chart.Emit(view.ChartTypeChanged{Mode: view.Area, PanelID: "other"}))

	require.Len(t, sink.events, 5)
	for _, ev := range sink.events[:4] {
		assert.Equal(t, "main", ev.Origin())
	}
	assert.Equal(t, "other", sink.events[4].Origin())
}

type staticSource struct {
	bars []core.Bar
	fail bool
}

func (s staticSource) Frame(_ context.Context, panelID string, state view.State) (Frame, error) {
	if s.fail {
		return Frame{}, errors.New("no frame")
	}
	return Frame{Panel: panelID, State: state, Bars: s.bars}, nil
}

func TestRun(t *testing.T) {
	series, err := core.NewSeries("s", bars(30))
	require.NoError(t, err)

	bus, err := syncbus.New(series)
	require.NoError(t, err)
	bus.Start(context.Background())
	defer bus.Stop()

	recorder := NewRecorder()
	chart := NewPriceChart("main", WithRenderer(recorder))
	chart.Bind(bus)
	other := NewLineChart("other")
	other.Bind(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := bus.Subscribe(chart.ID())
	refresh := make(chan view.State, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, chart, sub, staticSource{bars: bars(30)}, refresh, nil)
	}()

	// initial snapshot
	require.Eventually(t, func() bool { return recorder.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, other.SwitchType(view.Candlestick))
	require.Eventually(t, func() bool {
		scene, ok := recorder.Last()
		return ok && scene.Main.Kind == view.Candlestick
	}, time.Second, 5*time.Millisecond)

	// its own events are not echoed back
	require.NoError(t, chart.SwitchType(view.Area))
	require.Eventually(t, func() bool { return bus.Current().ChartType == view.Area }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, recorder.Len())

	// rejections do not stop the loop
	require.NoError(t, chart.SwitchType("pie"))
	require.NoError(t, other.SwitchType(view.Line))
	require.Eventually(t, func() bool { return recorder.Len() == 3 }, time.Second, 5*time.Millisecond)

	// a refresh re-renders the current snapshot, never an older one
	refresh <- bus.Current()
	require.Eventually(t, func() bool { return recorder.Len() == 4 }, time.Second, 5*time.Millisecond)
	refresh <- view.State{}
	require.Eventually(t, func() bool { return recorder.Len() == 5 }, time.Second, 5*time.Millisecond)
	scenes := recorder.Scenes()
	assert.Equal(t, scenes[2].Version, scenes[3].Version)
	assert.Equal(t, scenes[2].Version, scenes[4].Version)

	cancel()
	<-done
}

func TestRun_FrameErrorsAreSkipped(t *testing.T) {
	series, err := core.NewSeries("s", bars(5))
	require.NoError(t, err)
	bus, err := syncbus.New(series)
	require.NoError(t, err)
	bus.Start(context.Background())

	recorder := NewRecorder()
	chart := NewLineChart("main", WithRenderer(recorder))

	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(context.Background(), chart, bus.Subscribe(chart.ID()), staticSource{fail: true}, nil, nil)
	}()

	bus.Stop()
	<-done
	assert.Zero(t, recorder.Len())
}
