// Package main provides the CLI entry point for exagg-go.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile string
	outputPath string
	jsonOut    bool

	cfg   *Config
	runID string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "exagg",
		Short: "Aggregate and reconcile spreadsheet workbooks",
		Long: `exagg-go counts reporting keys across the sheets of an Excel workbook,
writes summary and audit sheets, and fills or marks cells in place.

Pass "-" as the input to read the workbook from stdin; it is then written to
stdout unless --output is given.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default: ./exagg.yaml)")
	pf.StringVarP(&outputPath, "output", "o", "", "Output workbook (default: <input>_processed.xlsx)")
	pf.BoolVar(&jsonOut, "json", false, "Print the result as JSON to stdout")
	pf.Int("header-row", 1, "1-indexed header row")
	pf.StringSlice("sheets", nil, "Sheets to process (default: all)")
	pf.String("title-cell", "", "Cell holding each sheet's display title, e.g. A1")
	pf.String("blank-label", "", "Reporting key for blank cells")
	pf.Int("max-rows", 0, "Maximum data rows per audit report sheet")
	pf.String("summary", "", "Summary sheet name")
	pf.Bool("reorder", true, "Move report sheets to the front")
	pf.String("match-mode", "whole", "Term matching mode: whole, partial, loose")
	pf.String("mapping", "", "File of 'term : key' lines")
	pf.String("log-level", "info", "Log level")
	pf.String("log-format", "console", "Log format: console, json")
	pf.String("store", "", "SQLite file to export the run to")

	rootCmd.AddCommand(
		newAggregateCmd(),
		newUpdateCmd(),
		newFillCmd(),
		newDedupeCmd(),
		newStripCmd(),
	)
	return rootCmd
}

// setup loads .env and the configuration, and attaches the run logger to the
// command context.
func setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	c, err := loadConfig(viper.New(), cmd.Flags(), configFile)
	if err != nil {
		return err
	}
	cfg = c
	runID = newRunID()

	logger := newLogger(stderr, cfg.Logging.Level, cfg.Logging.Format, runID)
	cmd.SetContext(logger.WithContext(cmd.Context()))
	return nil
}
