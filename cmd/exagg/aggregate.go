package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/ukaji3/exagg-go/pkg/exagg/aggregate"
	"github.com/ukaji3/exagg-go/pkg/exagg/columns"
	"github.com/ukaji3/exagg-go/pkg/exagg/match"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
	"github.com/ukaji3/exagg-go/pkg/exagg/mutate"
	"github.com/ukaji3/exagg-go/pkg/exagg/report"
	"github.com/ukaji3/exagg-go/pkg/exagg/store"
	"github.com/ukaji3/exagg-go/pkg/exagg/workflow"
)

var aggregateFlags struct {
	searchColumns     string
	keyColumn         string
	discover          bool
	conditionalColumn string

	blankColumn  string
	blankMode    string
	blankDetails bool

	edits         string
	groups        string
	compiled      bool
	orientation   string
	live          bool
	hideColumns   []string
	inSheet       bool
	inSheetAnchor string
	localKeys     bool
	markColumn    string
	marker        string
	stripFormulas bool
}

func newAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate [input.xlsx]",
		Short: "Count reporting keys across sheets and write summary reports",
		Args:  cobra.ExactArgs(1),
		RunE:  runAggregate,
	}
	f := &aggregateFlags
	fl := cmd.Flags()
	fl.StringVar(&f.searchColumns, "search-columns", "", "Columns searched for terms (value matching)")
	fl.StringVar(&f.keyColumn, "key-column", "", "Column holding keys (key matching)")
	fl.BoolVar(&f.discover, "discover", false, "Add every distinct key column value as a key")
	fl.StringVar(&f.conditionalColumn, "conditional-column", "", "Skip rows whose cell in this column is filled")
	fl.StringVar(&f.blankColumn, "blank-column", "", "Column whose blank cells are counted")
	fl.StringVar(&f.blankMode, "blank-mode", "row_aware", "Blank counting: row_aware, full_column")
	fl.BoolVar(&f.blankDetails, "blank-details", false, "Write a blank_details sheet")
	fl.StringVar(&f.edits, "edits", "", "YAML file mapping original keys to edited keys")
	fl.StringVar(&f.groups, "groups", "", "File of 'Group: key1, key2' lines for a grouped report")
	fl.BoolVar(&f.compiled, "compiled", false, "Also compile every sheet's summary side by side")
	fl.StringVar(&f.orientation, "orientation", "sheets", "Summary layout: sheets (one row per sheet) or keys")
	fl.BoolVar(&f.live, "live", false, "Write recalculating formulas (key matching only)")
	fl.StringSliceVar(&f.hideColumns, "hide-columns", nil, "Summary columns to hide, by header")
	fl.BoolVar(&f.inSheet, "in-sheet", false, "Insert a summary block into every sheet")
	fl.StringVar(&f.inSheetAnchor, "in-sheet-anchor", "", "Top-left cell of the in-sheet block")
	fl.BoolVar(&f.localKeys, "local-keys", false, "In-sheet blocks list only keys found on that sheet")
	fl.StringVar(&f.markColumn, "mark-column", "", "Write a marker into this column of every matching row")
	fl.StringVar(&f.marker, "marker", mutate.DefaultMarker, "Marker text")
	fl.BoolVar(&f.stripFormulas, "strip-formulas", false, "Replace formulas with values before writing")
	return cmd
}

func scanConfig(m models.ValueToKeyMap) (aggregate.Config, error) {
	f := &aggregateFlags
	sc := aggregate.Config{
		Options:   cfg.options(),
		Sheets:    cfg.Workbook.Sheets,
		Map:       m,
		TitleCell: cfg.Workbook.TitleCell,
	}

	switch {
	case f.keyColumn != "" && f.searchColumns != "":
		return sc, fmt.Errorf("--key-column and --search-columns are exclusive")
	case f.keyColumn != "":
		key, err := columns.Parse(f.keyColumn)
		if err != nil {
			return sc, err
		}
		sc.Mode = aggregate.KeyMatch{KeyColumn: key, DiscoverNewKeys: f.discover}
	default:
		search, err := columns.Parse(f.searchColumns)
		if err != nil {
			return sc, err
		}
		mode, err := match.ParseMode(cfg.Match.Mode)
		if err != nil {
			return sc, err
		}
		vm := aggregate.ValueMatch{SearchColumns: search, Match: mode}
		if f.conditionalColumn != "" {
			if vm.ConditionalColumn, err = columns.Parse(f.conditionalColumn); err != nil {
				return sc, err
			}
		}
		sc.Mode = vm
	}

	if f.blankColumn != "" {
		col, err := columns.Parse(f.blankColumn)
		if err != nil {
			return sc, err
		}
		mode, err := aggregate.ParseBlankMode(f.blankMode)
		if err != nil {
			return sc, err
		}
		sc.Blanks = &aggregate.BlankTracking{Column: col, Mode: mode, CaptureDetails: f.blankDetails}
	}
	return sc, nil
}

func finalizeOptions(groups report.Groups) (workflow.FinalizeOptions, error) {
	f := &aggregateFlags
	opts := workflow.FinalizeOptions{
		Options:       cfg.options(),
		StripFormulas: f.stripFormulas,
		LiveFormulas:  f.live,
		KeyMappings:   true,
		BlankDetails:  f.blankDetails,
	}

	ct := &report.CrossTabOptions{HiddenColumns: f.hideColumns, Autosize: true}
	switch f.orientation {
	case "sheets", "":
		ct.Orientation = report.SheetsAsRows
	case "keys":
		ct.Orientation = report.KeysAsRows
	default:
		return opts, fmt.Errorf("invalid orientation: %s (must be sheets or keys)", f.orientation)
	}
	opts.CrossTab = ct

	if f.inSheet {
		opts.InSheet = &report.InSheetOptions{Anchor: f.inSheetAnchor, LocalKeysOnly: f.localKeys, Autosize: true}
	}
	if groups != nil {
		opts.Groups = groups
		opts.Grouped = &report.GroupedOptions{Compiled: f.compiled, LocalKeysOnly: f.localKeys}
	}
	if f.markColumn != "" {
		col, err := columns.Parse(f.markColumn)
		if err != nil {
			return opts, err
		}
		opts.Mark = &mutate.MarkConfig{Column: col, Marker: f.marker}
	}
	return opts, nil
}

func runAggregate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)
	input := args[0]

	m, err := readMapping(cfg.Match.MappingFile)
	if err != nil {
		return err
	}
	edits, err := readEdits(aggregateFlags.edits)
	if err != nil {
		return err
	}
	groups, err := readGroups(aggregateFlags.groups)
	if err != nil {
		return err
	}
	sc, err := scanConfig(m)
	if err != nil {
		return err
	}
	fin, err := finalizeOptions(groups)
	if err != nil {
		return err
	}

	wb, err := openWorkbook(input)
	if err != nil {
		return err
	}
	defer wb.Close()

	session := workflow.NewSession(wb)
	if _, err := session.Scan(ctx, sc, logProgress(ctx)); err != nil {
		return cancelled(ctx, err)
	}
	if len(edits) > 0 {
		_, audit, err := session.Edit(edits)
		if err != nil {
			return err
		}
		if merged := audit.Merged(); len(merged) > 0 {
			logger.Info().Strs("keys", merged).Msg("keys merged by edits")
		}
	}
	mappings := session.Mappings()

	out, err := session.Finalize(ctx, fin, logProgress(ctx))
	if err != nil {
		return cancelled(ctx, err)
	}
	if err := saveWorkbook(ctx, wb, input); err != nil {
		return err
	}
	if err := export(ctx, input, store.Run{Result: out.Result, Mappings: mappings, Updates: out.Updates}); err != nil {
		return fmt.Errorf("export run: %w", err)
	}
	if jsonOut {
		return printJSON(out.Result)
	}
	return nil
}
