package main

import (
	"context"
	"fmt"
	"os"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/view"
	"github.com/raykavin/chartsync/pkg/window"
	"github.com/spf13/cobra"
)

// origin of the events the CLI dispatches; no panel has this id.
const cliOrigin = "cli"

var (
	demoEntry     string
	demoExit      string
	demoChartType string
)

func buildDemoCmd() *cobra.Command {
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Run every panel over the series and print what they drew",
		RunE:  runDemo,
	}

	demoCmd.Flags().StringVar(&demoEntry, "entry", "", "Selection entry date (default: first visible bar)")
	demoCmd.Flags().StringVar(&demoExit, "exit", "", "Selection exit date (default: last visible bar)")
	demoCmd.Flags().StringVar(&demoChartType, "chart-type", "", "Switch every panel to this chart type")

	return demoCmd
}

func runDemo(cmd *cobra.Command, _ []string) error {
	series, err := loadSeries()
	if err != nil {
		return err
	}

	s, recorders, err := newSession(series, cfg, log)
	if err != nil {
		return err
	}
	defer s.Stop()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	s.Start(ctx)

	log.Infof("series %s: %d bars, showing %s", series.ID(), series.Len(), s.Bus().Current().Range)
	if err := warmUp(ctx, s); err != nil {
		return err
	}

	state := s.Bus().Current()
	w, err := window.Slice(series, state.Range)
	if err != nil {
		return err
	}

	entry, exit, err := selection(series, w, demoEntry, demoExit)
	if err != nil {
		return err
	}
	if state, err = s.Dispatch(ctx, view.SelectionChanged{Points: []core.Point{entry, exit}, PanelID: cliOrigin}); err != nil {
		return err
	}

	if demoChartType != "" {
		chartType, err := view.ParseChartType(demoChartType)
		if err != nil {
			return err
		}
		if state, err = s.Dispatch(ctx, view.ChartTypeChanged{Mode: chartType, PanelID: cliOrigin}); err != nil {
			return err
		}
	}

	if err := settle(ctx, recorders, state.Version, cfg.Bus.SettleTimeout); err != nil {
		log.WithError(err).Warn("panels did not settle")
	}

	composed, err := s.ComposedView(ctx)
	if err != nil {
		return err
	}

	fmt.Println(panelTable(s, recorders))
	fmt.Println(overlayTable(composed))
	if result, err := s.PnL(); err != nil {
		log.WithError(err).Warn("no P&L for the selection")
	} else {
		fmt.Println(pnlTable(result))
	}
	printReturns(os.Stdout, w)
	return nil
}

// selection resolves the entry and exit flags, defaulting to the first and
// last bars of w.
func selection(series *core.Series, w window.Window, entryFlag, exitFlag string) (core.Point, core.Point, error) {
	resolve := func(flag string, fallback int) (core.Point, error) {
		if flag == "" {
			bar := series.Bar(fallback)
			return core.Point{Time: bar.Time, Price: bar.Close}, nil
		}
		t, err := parseDate(flag)
		if err != nil {
			return core.Point{}, err
		}
		return pointAt(series, t)
	}

	lo, hi := w.Bounds()
	entry, err := resolve(entryFlag, lo)
	if err != nil {
		return core.Point{}, core.Point{}, err
	}
	exit, err := resolve(exitFlag, hi-1)
	if err != nil {
		return core.Point{}, core.Point{}, err
	}
	return entry, exit, nil
}
