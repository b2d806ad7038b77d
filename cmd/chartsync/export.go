package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/view"
	"github.com/spf13/cobra"
)

var (
	exportFrom   string
	exportTo     string
	exportOutput string
)

func buildExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the composed view (state and every overlay) as JSON",
		RunE:  runExport,
	}

	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start of the visible range (default: configured span)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End of the visible range, exclusive")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")

	return exportCmd
}

func runExport(cmd *cobra.Command, _ []string) error {
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

	if exportFrom != "" || exportTo != "" {
		span := s.Bus().Current().Range
		if exportFrom != "" {
			if span.Start, err = parseDate(exportFrom); err != nil {
				return err
			}
		}
		if exportTo != "" {
			if span.End, err = parseDate(exportTo); err != nil {
				return err
			}
		}
		if _, err := s.Dispatch(ctx, view.RangeChanged{Range: core.NewRange(span.Start, span.End), PanelID: cliOrigin}); err != nil {
			return err
		}
	}

	composed, err := s.ComposedView(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(composed, "", "  ")
	if err != nil {
		return err
	}

	if exportOutput == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
		return err
	}
	log.WithField("path", exportOutput).Infof("view %d exported", composed.Version)
	return nil
}
