package session

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/derived"
	"github.com/raykavin/chartsync/pkg/panel"
	"github.com/raykavin/chartsync/pkg/params"
	"github.com/raykavin/chartsync/pkg/pnl"
	"github.com/raykavin/chartsync/pkg/transform"
	"github.com/raykavin/chartsync/pkg/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(month time.Month, day int) time.Time {
	return time.Date(2024, month, day, 0, 0, 0, 0, time.UTC)
}

// daily returns one bar per day of 2024 with a close rising by one per day.
func daily(t *testing.T) *core.Series {
	t.Helper()
	var bars []core.Bar
	for d := date(time.January, 1); d.Year() == 2024; d = d.AddDate(0, 0, 1) {
		c := float64(100 + len(bars))
		bars = append(bars, core.Bar{Time: d, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10})
	}
	series, err := core.NewSeries("daily", bars)
	require.NoError(t, err)
	return series
}

// blocking holds every Compute until release yields.
type blocking struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blocking) ID() string                 { return "slow" }
func (b *blocking) RelevantParams() []string   { return nil }
func (b *blocking) FullHistory() bool          { return false }
func (b *blocking) Warmup(params.Snapshot) int { return 0 }

func (b *blocking) Compute(in derived.Input) (derived.Series, error) {
	b.calls.Add(1)
	b.started <- struct{}{}
	<-b.release
	return derived.Series{Lines: []derived.Line{{Name: "close", Times: in.Times(), Values: in.Trim(in.Column(core.ColumnClose))}}}, nil
}

type failing struct{}

func (failing) ID() string                 { return "broken" }
func (failing) RelevantParams() []string   { return nil }
func (failing) FullHistory() bool          { return false }
func (failing) Warmup(params.Snapshot) int { return 0 }

func (failing) Compute(derived.Input) (derived.Series, error) {
	return derived.Series{}, errors.New("model unavailable")
}

func newSession(t *testing.T, options ...Option) *Session {
	t.Helper()
	s, err := New(daily(t), options...)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func TestSession_ZoomWithMovingAverage(t *testing.T) {
	ctx := context.Background()
	s := newSession(t,
		WithTransforms(transform.SMA("sma", 20, "#ffa500")),
		WithParameters(params.Categorical("color.mode", "light", "light", "dark")),
	)
	require.NoError(t, s.AddPanel(panel.NewPriceChart("price", panel.WithTransforms("sma"))))
	s.Bus().Start(ctx)

	state, err := s.Dispatch(ctx, view.RangeChanged{Range: core.NewRange(date(time.March, 1), date(time.June, 1)), PanelID: "price"})
	require.NoError(t, err)

	frame, err := s.Frame(ctx, "price", state)
	require.NoError(t, err)
	require.NotEmpty(t, frame.Bars)
	assert.Equal(t, date(time.March, 1), frame.Bars[0].Time)
	assert.Equal(t, date(time.May, 31), frame.Bars[len(frame.Bars)-1].Time)

	require.Len(t, frame.Overlays, 1)
	require.NoError(t, frame.Overlays[0].Err)
	line, ok := frame.Overlays[0].Series.Line("SMA(20)")
	require.True(t, ok)
	require.Len(t, line.Values, len(frame.Bars))
	for _, v := range line.Values {
		assert.False(t, math.IsNaN(v))
	}
	// Mar 1 is day 60: the mean of closes 141..160.
	assert.InDelta(t, 150.5, line.Values[0], 1e-9)

	_, err = s.Params().Set("color.mode", "dark")
	require.NoError(t, err)
	_, err = s.Frame(ctx, "price", state)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.Engine().Stats().Hits)
	assert.Equal(t, uint64(1), s.Engine().Stats().Misses)

	_, err = s.Params().Set("sma.period", 50)
	require.NoError(t, err)
	frame, err = s.Frame(ctx, "price", state)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), s.Engine().Stats().Misses)
	_, ok = frame.Overlays[0].Series.Line("SMA(50)")
	assert.True(t, ok)
}

func TestSession_StaleComputationIsDiscarded(t *testing.T) {
	ctx := context.Background()
	slow := &blocking{started: make(chan struct{}, 4), release: make(chan struct{})}
	s := newSession(t, WithTransforms(slow))
	require.NoError(t, s.AddPanel(panel.NewLineChart("p", panel.WithTransforms("slow"))))
	s.Bus().Start(ctx)

	v1, err := s.Dispatch(ctx, view.RangeChanged{Range: core.NewRange(date(time.March, 1), date(time.April, 1)), PanelID: "p"})
	require.NoError(t, err)

	done := make(chan panel.Frame, 1)
	go func() {
		frame, _ := s.Frame(ctx, "p", v1)
		done <- frame
	}()
	<-slow.started

	v2, err := s.Dispatch(ctx, view.RangeChanged{Range: core.NewRange(date(time.May, 1), date(time.June, 1)), PanelID: "p"})
	require.NoError(t, err)
	assert.Greater(t, v2.Version, v1.Version)
	assert.Equal(t, v2.Version, s.Engine().Version())

	close(slow.release)
	stale := <-done
	require.Len(t, stale.Overlays, 1)
	assert.NoError(t, stale.Overlays[0].Err)
	assert.Equal(t, uint64(1), s.Engine().Stats().Discarded)
	assert.Equal(t, 0, s.Engine().Cached("slow"))

	fresh, err := s.Frame(ctx, "p", v2)
	require.NoError(t, err)
	line, ok := fresh.Overlays[0].Series.Line("close")
	require.True(t, ok)
	assert.Equal(t, date(time.May, 1), line.Times[0])
	assert.Equal(t, 1, s.Engine().Cached("slow"))
	assert.Equal(t, int32(2), slow.calls.Load())
}

func TestSession_HoverKeepsComputationCached(t *testing.T) {
	ctx := context.Background()
	slow := &blocking{started: make(chan struct{}, 4), release: make(chan struct{})}
	s := newSession(t, WithTransforms(slow))
	require.NoError(t, s.AddPanel(panel.NewLineChart("p", panel.WithTransforms("slow"))))
	s.Bus().Start(ctx)

	v1, err := s.Dispatch(ctx, view.RangeChanged{Range: core.NewRange(date(time.March, 1), date(time.April, 1)), PanelID: "p"})
	require.NoError(t, err)

	done := make(chan panel.Frame, 1)
	go func() {
		frame, _ := s.Frame(ctx, "p", v1)
		done <- frame
	}()
	<-slow.started

	hover, err := s.Dispatch(ctx, view.HoverChanged{Point: &core.Point{Time: date(time.March, 15), Price: 170}, PanelID: "p"})
	require.NoError(t, err)
	v3, err := s.Dispatch(ctx, view.ChartTypeChanged{Mode: view.Bar, PanelID: "p"})
	require.NoError(t, err)
	assert.Greater(t, hover.Version, v1.Version)
	assert.Equal(t, v3.Version, s.Engine().Version())

	close(slow.release)
	<-done
	assert.Equal(t, uint64(0), s.Engine().Stats().Discarded)
	assert.Equal(t, 1, s.Engine().Cached("slow"))

	// the newest version reuses the result computed for v1
	_, err = s.Frame(ctx, "p", v3)
	require.NoError(t, err)
	assert.Equal(t, int32(1), slow.calls.Load())
}

func TestSession_PnL(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	s.Bus().Start(ctx)

	_, err := s.PnL()
	var incomplete *core.IncompleteSelectionError
	require.ErrorAs(t, err, &incomplete)

	_, err = s.Dispatch(ctx, view.SelectionChanged{
		Points: []core.Point{
			{Time: date(time.June, 1), Price: 120},
			{Time: date(time.February, 1), Price: 100},
		},
		PanelID: "p",
	})
	require.NoError(t, err)

	result, err := s.PnL()
	require.NoError(t, err)
	assert.Equal(t, pnl.Long, result.Direction)
	assert.InDelta(t, 20, result.Absolute, 1e-9)
	assert.InDelta(t, 20, result.Percent, 1e-9)

	_, err = s.Params().Set(ParamPositionDirection, "short")
	require.NoError(t, err)
	_, err = s.Params().Set(ParamPositionSize, 3)
	require.NoError(t, err)
	result, err = s.PnL()
	require.NoError(t, err)
	assert.InDelta(t, -60, result.Absolute, 1e-9)
	assert.InDelta(t, -20, result.Percent, 1e-9)

	_, err = s.Params().Set(ParamPositionSize, 0)
	require.NoError(t, err)
	_, err = s.PnL()
	var invalid *core.InvalidSizeError
	assert.ErrorAs(t, err, &invalid)

	_, err = s.Params().Set(ParamPositionSize, -1)
	var domain *core.DomainError
	assert.ErrorAs(t, err, &domain)
}

func TestSession_ComposedView(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, WithTransforms(transform.SMA("sma", 5, "#fff"), failing{}), WithViewRetention(2))
	s.Bus().Start(ctx)

	hover := core.Point{Time: date(time.March, 3), Price: 1}
	_, err := s.Dispatch(ctx, view.RangeChanged{Range: core.NewRange(date(time.March, 1), date(time.April, 1)), PanelID: "p"})
	require.NoError(t, err)
	state, err := s.Dispatch(ctx, view.HoverChanged{Point: &hover, PanelID: "p"})
	require.NoError(t, err)

	v, err := s.ComposedView(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.Version, v.Version)
	assert.Nil(t, v.State.Hover)
	assert.Contains(t, v.Overlays, "sma")
	assert.Contains(t, v.Errors["broken"], "model unavailable")
	assert.Nil(t, v.PnL)

	saved, err := s.Views().Latest()
	require.NoError(t, err)
	assert.Equal(t, v.Version, saved.Version)
	assert.Contains(t, saved.Errors["broken"], "model unavailable")
}

func TestSession_AddPanel(t *testing.T) {
	s := newSession(t, WithTransforms(transform.SMA("sma", 5, "#fff")))

	require.NoError(t, s.AddPanel(panel.NewLineChart("a", panel.WithTransforms("sma"))))
	assert.Error(t, s.AddPanel(panel.NewBarChart("a")))
	assert.ErrorIs(t, s.AddPanel(panel.NewBarChart("b", panel.WithTransforms("rsi"))), core.ErrUnknownTransform)
	assert.Equal(t, []string{"a"}, s.Panels())

	_, err := s.Frame(context.Background(), "missing", s.Bus().Current())
	assert.Error(t, err)
}

func TestSession_PanelsFollowTheBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	priceRec, volumeRec := panel.NewRecorder(), panel.NewRecorder()
	s := newSession(t,
		WithTransforms(transform.SMA("sma", 5, "#fff")),
		WithParameters(params.Categorical("color.mode", "light", "light", "dark")),
	)
	price := panel.NewPriceChart("price", panel.WithTransforms("sma"), panel.WithRenderer(priceRec))
	require.NoError(t, s.AddPanel(price))
	s.Start(ctx)

	// Added after start: its loop starts right away.
	require.NoError(t, s.AddPanel(panel.NewBarChart("volume", panel.WithRenderer(volumeRec))))

	require.Eventually(t, func() bool { return priceRec.Len() == 1 && volumeRec.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, price.Zoom(core.NewRange(date(time.March, 1), date(time.June, 1))))
	require.Eventually(t, func() bool { return volumeRec.Len() == 2 }, time.Second, 5*time.Millisecond)
	scene, _ := volumeRec.Last()
	assert.Equal(t, uint64(1), scene.Version)
	assert.Equal(t, date(time.March, 1), scene.Range.Start)
	assert.Equal(t, 1, priceRec.Len())

	_, err := s.Params().Set("color.mode", "dark")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return priceRec.Len() == 2 && volumeRec.Len() == 3 }, time.Second, 5*time.Millisecond)
	// the origin panel picks up its own zoom with the refresh
	scene, _ = priceRec.Last()
	assert.Equal(t, uint64(1), scene.Version)
	assert.Equal(t, date(time.March, 1), scene.Range.Start)
	require.Len(t, scene.Overlays, 1)
}
