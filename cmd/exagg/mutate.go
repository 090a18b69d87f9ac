package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/ukaji3/exagg-go/pkg/exagg/columns"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/match"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
	"github.com/ukaji3/exagg-go/pkg/exagg/mutate"
	"github.com/ukaji3/exagg-go/pkg/exagg/report"
	"github.com/ukaji3/exagg-go/pkg/exagg/store"
)

var updateFlags struct {
	searchColumns     string
	targetColumn      string
	onlyBlanks        bool
	validationColumns string
	highlight         bool
	noReport          bool
}

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [input.xlsx]",
		Short: "Write the matched key of every row into a target column",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpdate,
	}
	f := &updateFlags
	cmd.Flags().StringVar(&f.searchColumns, "search-columns", "", "Columns searched for terms")
	cmd.Flags().StringVar(&f.targetColumn, "target-column", "", "Column receiving the key")
	cmd.Flags().BoolVar(&f.onlyBlanks, "only-blanks", false, "Leave filled target cells alone")
	cmd.Flags().StringVar(&f.validationColumns, "validate-columns", "", "Update only rows paired with a neighbor on these columns")
	cmd.Flags().BoolVar(&f.highlight, "highlight", true, "Highlight updated cells")
	cmd.Flags().BoolVar(&f.noReport, "no-report", false, "Skip the update_report sheet")
	return cmd
}

var fillFlags struct {
	searchColumns string
	keyColumn     string
}

func newFillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fill [input.xlsx]",
		Short: "Fill blank key cells from the matched term",
		Args:  cobra.ExactArgs(1),
		RunE:  runFill,
	}
	cmd.Flags().StringVar(&fillFlags.searchColumns, "search-columns", "", "Columns searched for terms")
	cmd.Flags().StringVar(&fillFlags.keyColumn, "key-column", "", "Key column to fill")
	return cmd
}

var dedupeFlags struct {
	keyColumns   string
	markerColumn string
	template     string
}

func newDedupeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedupe [input.xlsx]",
		Short: "Mark rows that repeat an earlier row",
		Args:  cobra.ExactArgs(1),
		RunE:  runDedupe,
	}
	cmd.Flags().StringVar(&dedupeFlags.keyColumns, "key-columns", "", "Columns that identify a row")
	cmd.Flags().StringVar(&dedupeFlags.markerColumn, "marker-column", "", "Column receiving the marker")
	cmd.Flags().StringVar(&dedupeFlags.template, "template", mutate.DefaultDuplicateTemplate, "Marker template; {Header} and {_row} are replaced")
	return cmd
}

func newStripCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strip-formulas [input.xlsx]",
		Short: "Replace formulas with their values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkbook(cmd.Context(), args[0], func(wb *grid.File) (any, error) {
				n, err := mutate.StripFormulas(cmd.Context(), wb, cfg.Workbook.Sheets)
				return map[string]int{"stripped": n}, err
			})
		},
	}
}

// withWorkbook opens input, runs fn, then saves the workbook and prints fn's
// result with --json.
func withWorkbook(ctx context.Context, input string, fn func(*grid.File) (any, error)) error {
	wb, err := openWorkbook(input)
	if err != nil {
		return err
	}
	defer wb.Close()

	result, err := fn(wb)
	if err != nil {
		return cancelled(ctx, err)
	}
	if err := saveWorkbook(ctx, wb, input); err != nil {
		return err
	}
	if jsonOut {
		return printJSON(result)
	}
	return nil
}

func parseSpecs(specs ...string) ([]columns.Spec, error) {
	out := make([]columns.Spec, len(specs))
	for i, s := range specs {
		if s == "" {
			continue
		}
		spec, err := columns.Parse(s)
		if err != nil {
			return nil, err
		}
		out[i] = spec
	}
	return out, nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	f := &updateFlags
	m, err := readMapping(cfg.Match.MappingFile)
	if err != nil {
		return err
	}
	mode, err := match.ParseMode(cfg.Match.Mode)
	if err != nil {
		return err
	}
	specs, err := parseSpecs(f.searchColumns, f.targetColumn, f.validationColumns)
	if err != nil {
		return err
	}
	uc := mutate.UpdateConfig{
		Options:           cfg.options(),
		Sheets:            cfg.Workbook.Sheets,
		Map:               m,
		SearchColumns:     specs[0],
		Match:             mode,
		TargetColumn:      specs[1],
		UpdateOnlyBlanks:  f.onlyBlanks,
		ValidationColumns: specs[2],
		Highlight:         f.highlight,
	}
	return withWorkbook(ctx, args[0], func(wb *grid.File) (any, error) {
		records, err := mutate.LookupAndUpdate(ctx, wb, uc, logProgress(ctx))
		if err != nil {
			return nil, err
		}
		return records, writeUpdates(ctx, wb, args[0], records, !f.noReport)
	})
}

func runFill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	m, err := readMapping(cfg.Match.MappingFile)
	if err != nil {
		return err
	}
	mode, err := match.ParseMode(cfg.Match.Mode)
	if err != nil {
		return err
	}
	specs, err := parseSpecs(fillFlags.searchColumns, fillFlags.keyColumn)
	if err != nil {
		return err
	}
	fc := mutate.FillConfig{
		Options:       cfg.options(),
		Sheets:        cfg.Workbook.Sheets,
		Map:           m,
		SearchColumns: specs[0],
		Match:         mode,
		KeyColumn:     specs[1],
		Highlight:     true,
	}
	return withWorkbook(ctx, args[0], func(wb *grid.File) (any, error) {
		records, err := mutate.FillKeyColumn(ctx, wb, fc, logProgress(ctx))
		if err != nil {
			return nil, err
		}
		return records, writeUpdates(ctx, wb, args[0], records, true)
	})
}

func runDedupe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	specs, err := parseSpecs(dedupeFlags.keyColumns, dedupeFlags.markerColumn)
	if err != nil {
		return err
	}
	dc := mutate.DuplicateConfig{
		Options:      cfg.options(),
		Sheets:       cfg.Workbook.Sheets,
		KeyColumns:   specs[0],
		MarkerColumn: specs[1],
		Template:     dedupeFlags.template,
		Highlight:    true,
	}
	return withWorkbook(ctx, args[0], func(wb *grid.File) (any, error) {
		n, err := mutate.MarkDuplicates(ctx, wb, dc)
		return map[string]int{"duplicates": n}, err
	})
}

// writeUpdates writes the update report when asked and exports the records.
func writeUpdates(ctx context.Context, wb *grid.File, input string, records []models.UpdateRecord, withReport bool) error {
	if withReport {
		names, err := report.UpdateReport(ctx, wb, records, cfg.options())
		if err != nil {
			return err
		}
		if err := report.Arrange(wb, names, cfg.options()); err != nil {
			return err
		}
	}
	return export(ctx, input, store.Run{Updates: records})
}
