package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/params"
	"github.com/raykavin/chartsync/pkg/pnl"
	"github.com/raykavin/chartsync/pkg/session"
	"github.com/raykavin/chartsync/pkg/view"
	"github.com/raykavin/chartsync/pkg/window"
	"github.com/spf13/cobra"
)

var (
	pnlEntry      string
	pnlExit       string
	pnlEntryPrice float64
	pnlExitPrice  float64
	pnlDirection  string
	pnlSize       float64
)

func buildPnLCmd() *cobra.Command {
	pnlCmd := &cobra.Command{
		Use:   "pnl",
		Short: "Simulate a trade between two points of the series",
		RunE:  runPnL,
	}

	pnlCmd.Flags().StringVar(&pnlEntry, "entry", "", "Entry date (e.g. 2024-03-01)")
	pnlCmd.Flags().StringVar(&pnlExit, "exit", "", "Exit date (e.g. 2024-06-01)")
	pnlCmd.Flags().Float64Var(&pnlEntryPrice, "entry-price", 0, "Entry price (default: close of the entry bar)")
	pnlCmd.Flags().Float64Var(&pnlExitPrice, "exit-price", 0, "Exit price (default: close of the exit bar)")
	pnlCmd.Flags().StringVarP(&pnlDirection, "direction", "d", "", "long or short (default: configured direction)")
	pnlCmd.Flags().Float64VarP(&pnlSize, "size", "s", 0, "Position size (default: configured size)")

	pnlCmd.MarkFlagRequired("entry")
	pnlCmd.MarkFlagRequired("exit")

	return pnlCmd
}

func runPnL(cmd *cobra.Command, _ []string) error {
	series, err := loadSeries()
	if err != nil {
		return err
	}

	s, _, err := newSession(series, cfg, log)
	if err != nil {
		return err
	}
	defer s.Stop()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	s.Start(ctx)

	var size *float64
	if cmd.Flags().Changed("size") {
		size = &pnlSize
	}
	if err := overridePosition(s.Params(), pnlDirection, size); err != nil {
		return err
	}

	entry, exit, err := selection(series, window.Full(series), pnlEntry, pnlExit)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("entry-price") {
		entry.Price = pnlEntryPrice
	}
	if cmd.Flags().Changed("exit-price") {
		exit.Price = pnlExitPrice
	}

	// The selection is clamped to the visible range, so show everything.
	if _, err := s.Dispatch(ctx, view.RangeChanged{Range: series.Span(), PanelID: cliOrigin}); err != nil {
		return err
	}
	if _, err := s.Dispatch(ctx, view.SelectionChanged{Points: []core.Point{entry, exit}, PanelID: cliOrigin}); err != nil {
		return err
	}

	result, err := s.PnL()
	var incomplete *core.IncompleteSelectionError
	if errors.As(err, &incomplete) {
		return fmt.Errorf("entry and exit must be distinct points: %w", err)
	}
	if err != nil {
		return err
	}

	fmt.Println(pnlTable(result))
	return nil
}

// overridePosition applies the position flags to store. The direction
// accepts the same spellings as the configuration, buy and sell included.
func overridePosition(store *params.Store, direction string, size *float64) error {
	if direction != "" {
		d, err := pnl.ParseDirection(direction)
		if err != nil {
			return err
		}
		if _, err := store.Set(session.ParamPositionDirection, string(d)); err != nil {
			return err
		}
	}
	if size != nil {
		if _, err := store.Set(session.ParamPositionSize, *size); err != nil {
			return err
		}
	}
	return nil
}
