package main

import (
	"fmt"
	"os"

	"github.com/raykavin/chartsync/internal/config"
	"github.com/raykavin/chartsync/pkg/logger"
	"github.com/spf13/cobra"
)

// Command line flags
var (
	configPath string
	logLevel   string
	logFormat  string

	csvPath   string
	timeframe string
	target    string
	limitTo   string
	bars      int
	seed      int64
)

// Loaded by the root command before any subcommand runs.
var (
	cfg *config.Config
	log logger.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "chartsync",
		Short:             "Synchronized multi-panel charts over a price series",
		Version:           "1.0.0",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override the configured log format (console, json, logrus)")

	rootCmd.PersistentFlags().StringVarP(&csvPath, "csv", "f", "", "CSV file with the series (random walk when empty)")
	rootCmd.PersistentFlags().StringVarP(&timeframe, "timeframe", "t", "", "Timeframe of the CSV rows (e.g. 1h), required with --resample")
	rootCmd.PersistentFlags().StringVar(&target, "resample", "", "Resample the CSV rows to this timeframe (e.g. 1d)")
	rootCmd.PersistentFlags().StringVar(&limitTo, "limit", "", "Keep only the most recent duration of the CSV (e.g. 180d)")
	rootCmd.PersistentFlags().IntVarP(&bars, "bars", "n", 365, "Bars of the random walk")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 42, "Seed of the random walk")

	rootCmd.AddCommand(buildDemoCmd(), buildPnLCmd(), buildExportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(configPath); err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err = newLogger(cfg.Log, os.Stderr)
	return err
}
