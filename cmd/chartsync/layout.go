package main

import (
	"time"

	"github.com/raykavin/chartsync/internal/config"
	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/derived"
	"github.com/raykavin/chartsync/pkg/feed"
	"github.com/raykavin/chartsync/pkg/logger"
	"github.com/raykavin/chartsync/pkg/panel"
	"github.com/raykavin/chartsync/pkg/session"
	"github.com/raykavin/chartsync/pkg/syncbus"
	"github.com/raykavin/chartsync/pkg/transform"
)

var walkStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func loadSeries() (*core.Series, error) {
	if csvPath == "" {
		return feed.RandomWalk("random-walk", bars, walkStart, 24*time.Hour, 100, seed)
	}

	var options []feed.Option
	if target != "" {
		options = append(options, feed.WithResample(timeframe, target))
	}
	if limitTo != "" {
		options = append(options, feed.WithLimit(limitTo))
	}
	return feed.LoadCSV(csvPath, options...)
}

// layout lists the transforms the series can feed and the panels showing
// them. Model plots are only added when the series carries their columns.
func layout(series *core.Series) ([]derived.Transform, []func(panel.Option) panel.Panel) {
	transforms := []derived.Transform{
		transform.SMA("sma", 20, "#ffa500"),
		transform.EMA("ema", 50, "#1e90ff"),
		transform.NewBollinger("bb", 20, 2, "#808080"),
		transform.NewRSI("rsi", 14, "#9370db"),
		transform.NewMACD("macd", 12, 26, 9, "#1e90ff", "#ff8c00", "#a9a9a9"),
	}
	panels := []func(panel.Option) panel.Panel{
		func(r panel.Option) panel.Panel {
			return panel.NewPriceChart("price", r, panel.WithTransforms("sma", "ema", "bb"))
		},
		func(r panel.Option) panel.Panel { return panel.NewBarChart("volume", r) },
		func(r panel.Option) panel.Panel { return panel.NewLineChart("rsi", r, panel.WithTransforms("rsi")) },
		func(r panel.Option) panel.Panel { return panel.NewLineChart("macd", r, panel.WithTransforms("macd")) },
	}

	has := func(columns ...string) bool {
		for _, c := range columns {
			if !series.HasColumn(c) {
				return false
			}
		}
		return true
	}

	if has(core.ColumnActual, core.ColumnPredicted) {
		transforms = append(transforms, transform.NewPredictions("predictions", core.ColumnActual, core.ColumnPredicted, "#2e8b57"))
		panels = append(panels, func(r panel.Option) panel.Panel {
			return panel.NewLineChart("model", r, panel.WithTransforms("predictions"))
		})
	}
	if has("feature1", "feature2", "label") {
		model := transform.PredictorFunc(func(x, y float64) float64 {
			if x+y > 0 {
				return 1
			}
			return 0
		})
		transforms = append(transforms, transform.NewDecisionBoundary("boundary", model, "feature1", "feature2", "label"))
		panels = append(panels, func(r panel.Option) panel.Panel {
			return panel.NewScatterChart("features", "feature1", "feature2", "label", r, panel.WithTransforms("boundary"))
		})
	}
	if has("label", "guess") {
		transforms = append(transforms, transform.NewConfusionMatrix("confusion", "label", "guess"))
	}
	if has("label", "score") {
		transforms = append(transforms, transform.NewROC("roc", "label", "score", "#dc143c"))
	}
	return transforms, panels
}

// newSession builds a session for series from the configuration. Every
// panel draws into its own recorder.
func newSession(series *core.Series, c *config.Config, log logger.Logger) (*session.Session, map[string]*panel.Recorder, error) {
	transforms, panels := layout(series)

	busOptions := []syncbus.Option{
		syncbus.WithQueueSize(c.Bus.QueueSize),
		syncbus.WithChartType(c.View.ChartType),
	}
	if c.View.Span > 0 {
		span := series.Span()
		if from := span.End.Add(-c.View.Span); from.After(span.Start) {
			busOptions = append(busOptions, syncbus.WithInitialRange(core.NewRange(from, span.End)))
		}
	}

	s, err := session.New(series,
		session.WithLogger(log),
		session.WithTransforms(transforms...),
		session.WithEngineOptions(derived.WithCacheSize(c.Engine.CacheSize), derived.WithWorkers(c.Engine.Workers)),
		session.WithBusOptions(busOptions...),
		session.WithPosition(c.Position.Size, c.Position.Direction),
		session.WithViewRetention(c.View.Retention),
	)
	if err != nil {
		return nil, nil, err
	}

	recorders := make(map[string]*panel.Recorder, len(panels))
	for _, build := range panels {
		recorder := panel.NewRecorder()
		p := build(panel.WithRenderer(recorder))
		if err := s.AddPanel(p); err != nil {
			return nil, nil, err
		}
		recorders[p.ID()] = recorder
	}
	return s, recorders, nil
}
