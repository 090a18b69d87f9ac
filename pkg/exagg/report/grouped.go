package report

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

// UnmappedGroup collects reporting keys that belong to no group.
const UnmappedGroup = "Unmapped Keys"

// CompiledSheet is the side-by-side compilation of every sheet's summary.
const CompiledSheet = exagg.GroupedReportSheet + "_sheets"

// Group is a named set of reporting keys.
type Group struct {
	Name string
	Keys []string
}

// Groups keeps groups in the order they were declared.
type Groups []Group

// ParseGroups parses lines of the form "Group: key1, key2". Blank lines and lines
// starting with # are skipped. A key listed under several groups stays in the first.
func ParseGroups(text string) (Groups, error) {
	var groups Groups
	index := make(map[string]int)
	seen := make(map[string]bool)

	sc := bufio.NewScanner(strings.NewReader(text))
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		name, list, ok := strings.Cut(s, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: group line %d %q", exagg.ErrInvalidConfig, line, s)
		}
		i, exists := index[name]
		if !exists {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Name: name})
		}
		for _, k := range strings.Split(list, ",") {
			k = strings.TrimSpace(k)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			groups[i].Keys = append(groups[i].Keys, k)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

// GroupedOptions configures GroupedReport.
type GroupedOptions struct {
	exagg.Options
	// Compiled also writes CompiledSheet.
	Compiled bool
	// LocalKeysOnly limits each compiled block to the keys found on its sheet.
	LocalKeysOnly bool
}

// GroupedReport writes a Group/Key/Count table with a subtotal per group, an
// UnmappedGroup bucket and a grand total. It returns the sheets written.
func GroupedReport(ctx context.Context, wb grid.Workbook, res *models.AggregationResult, groups Groups, opts GroupedOptions) ([]string, error) {
	opts.Options = opts.Options.Normalize()
	if err := exagg.CheckCancelled(ctx); err != nil {
		return nil, err
	}

	mapped := make(map[string]bool)
	for _, g := range groups {
		for _, k := range g.Keys {
			mapped[k] = true
		}
	}
	var unmapped []string
	for _, k := range res.ReportKeys() {
		if !mapped[k] {
			unmapped = append(unmapped, k)
		}
	}
	all := append(Groups(nil), groups...)
	if len(unmapped) > 0 {
		all = append(all, Group{Name: UnmappedGroup, Keys: unmapped})
	}

	cells := [][]grid.Cell{grid.Header("Group", "Key", "Count")}
	var subtotals []string
	for _, g := range all {
		first := len(cells)
		for _, k := range g.Keys {
			style := keyStyle(res, k, grid.StyleNone)
			cells = append(cells, []grid.Cell{{Value: g.Name}, {Value: k, Style: style}, {Value: res.TotalCounts[k], Style: style}})
		}
		r := len(cells)
		cells = append(cells, []grid.Cell{
			{Value: g.Name + " Subtotal", Style: grid.StyleSubtotal},
			{Style: grid.StyleSubtotal},
			{Formula: sumFormula(grid.Range{FirstRow: first, FirstCol: 2, LastRow: r - 1, LastCol: 2}), Style: grid.StyleSubtotal},
		})
		subtotals = append(subtotals, grid.CellName(r, 2))
	}
	grand := "0"
	if len(subtotals) > 0 {
		grand = strings.Join(subtotals, "+")
	}
	cells = append(cells, []grid.Cell{
		{Value: "Grand Total", Style: grid.StyleTotal},
		{Style: grid.StyleTotal},
		{Formula: grand, Style: grid.StyleTotal},
	})

	if err := wb.AppendSheet(exagg.GroupedReportSheet, cells); err != nil {
		return nil, err
	}
	if err := autosize(wb, exagg.GroupedReportSheet, 0, cells); err != nil {
		return nil, err
	}
	names := []string{exagg.GroupedReportSheet}

	if opts.Compiled {
		if err := compile(ctx, wb, res, opts.LocalKeysOnly); err != nil {
			return names, err
		}
		names = append(names, CompiledSheet)
	}
	zerolog.Ctx(ctx).Info().Int("groups", len(all)).Int("unmapped", len(unmapped)).Msg("grouped report written")
	return names, nil
}

// compile lays each processed sheet's summary block side by side, one spacer
// column apart, under a merged title.
func compile(ctx context.Context, wb grid.Workbook, res *models.AggregationResult, localOnly bool) error {
	if err := wb.AppendSheet(CompiledSheet, nil); err != nil {
		return err
	}
	for i, sheet := range res.ProcessedSheetNames {
		if err := exagg.CheckCancelled(ctx); err != nil {
			return err
		}
		keys := res.ReportKeys()
		if localOnly {
			keys = res.LocalKeys(sheet)
		}
		col := i * 3
		block := summaryBlock(res, Live{}, false, sheet, keys, 0, col, res.Title(sheet))
		block[0][0].Link = grid.Location(sheet, 0, 0)
		if err := wb.WriteCells(CompiledSheet, 0, col, block); err != nil {
			return err
		}
		if err := wb.Merge(CompiledSheet, grid.Range{FirstRow: 0, FirstCol: col, LastRow: 0, LastCol: col + 1}); err != nil {
			return err
		}
		if err := autosize(wb, CompiledSheet, col, block); err != nil {
			return err
		}
	}
	return nil
}
