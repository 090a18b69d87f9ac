package report

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

// Orientation selects the cross-tab layout.
type Orientation int

const (
	// SheetsAsRows puts one row per sheet and one column per key.
	SheetsAsRows Orientation = iota
	// KeysAsRows puts one row per key and one column per sheet.
	KeysAsRows
)

// CrossTabOptions configures CrossTab.
type CrossTabOptions struct {
	exagg.Options
	// SheetName defaults to Options.SummarySheet.
	SheetName   string
	Orientation Orientation
	// Source is Static{} (default) or a Live from LiveFrom.
	Source Source
	// HiddenColumns lists header texts whose columns are hidden.
	HiddenColumns []string
	Autosize      bool
}

// CrossTab writes a sheet × key count table with a Total row and column.
// It returns the names of the sheets it wrote.
func CrossTab(ctx context.Context, wb grid.Workbook, res *models.AggregationResult, opts CrossTabOptions) ([]string, error) {
	opts.Options = opts.Options.Normalize()
	name := opts.SheetName
	if name == "" {
		name = opts.SummarySheet
	}
	live, isLive, err := liveSource(opts.Source)
	if err != nil {
		return nil, err
	}
	if err := exagg.CheckCancelled(ctx); err != nil {
		return nil, err
	}

	var written []string
	if isLive {
		if err := writeDataSource(wb, res, live); err != nil {
			return nil, err
		}
		written = append(written, exagg.DataSourceSheet)
	}

	keys := res.ReportKeys()
	sheets := res.ProcessedSheetNames
	var cells [][]grid.Cell
	if opts.Orientation == KeysAsRows {
		cells = keysAsRows(res, keys, sheets, isLive)
	} else {
		cells = sheetsAsRows(res, keys, sheets, isLive)
	}

	if err := wb.AppendSheet(name, cells); err != nil {
		return written, err
	}
	written = append([]string{name}, written...)

	if opts.Autosize {
		if err := autosize(wb, name, 0, cells); err != nil {
			return written, err
		}
	}
	for col, c := range cells[0] {
		h := grid.Text(c.Value)
		for _, hidden := range opts.HiddenColumns {
			if strings.EqualFold(strings.TrimSpace(hidden), h) {
				if err := wb.HideColumn(name, col); err != nil {
					return written, err
				}
			}
		}
	}
	if isLive {
		if err := wb.HideSheet(exagg.DataSourceSheet); err != nil {
			return written, err
		}
	}

	zerolog.Ctx(ctx).Info().Str("sheet", name).Int("keys", len(keys)).Int("sheets", len(sheets)).
		Bool("live", isLive).Msg("cross-tab written")
	return written, nil
}

func sheetsAsRows(res *models.AggregationResult, keys, sheets []string, isLive bool) [][]grid.Cell {
	header := []grid.Cell{{Value: "Sheet", Style: grid.StyleHeader}}
	for _, k := range keys {
		header = append(header, grid.Cell{Value: k, Style: keyStyle(res, k, grid.StyleHeader)})
	}
	header = append(header, grid.Cell{Value: "Total", Style: grid.StyleHeader})
	cells := [][]grid.Cell{header}
	last := len(keys)

	for i, sheet := range sheets {
		r := i + 1
		row := []grid.Cell{{Value: res.Title(sheet), Link: grid.Location(sheet, 0, 0)}}
		for _, k := range keys {
			c := countCell(res, isLive, sheet, k)
			c.Style = keyStyle(res, k, grid.StyleNone)
			row = append(row, c)
		}
		row = append(row, grid.Cell{
			Formula: sumFormula(grid.Range{FirstRow: r, FirstCol: 1, LastRow: r, LastCol: last}),
			Style:   grid.StyleTotal,
		})
		cells = append(cells, row)
	}

	total := []grid.Cell{{Value: "Total", Style: grid.StyleTotal}}
	for col := 1; col <= last+1; col++ {
		total = append(total, grid.Cell{
			Formula: sumFormula(grid.Range{FirstRow: 1, FirstCol: col, LastRow: len(sheets), LastCol: col}),
			Style:   grid.StyleTotal,
		})
	}
	return append(cells, total)
}

func keysAsRows(res *models.AggregationResult, keys, sheets []string, isLive bool) [][]grid.Cell {
	header := []grid.Cell{{Value: "Key", Style: grid.StyleHeader}}
	for _, s := range sheets {
		header = append(header, grid.Cell{Value: res.Title(s), Style: grid.StyleHeader, Link: grid.Location(s, 0, 0)})
	}
	header = append(header, grid.Cell{Value: "Total", Style: grid.StyleHeader})
	cells := [][]grid.Cell{header}
	last := len(sheets)

	for i, k := range keys {
		r := i + 1
		style := keyStyle(res, k, grid.StyleNone)
		row := []grid.Cell{{Value: k, Style: style}}
		for _, s := range sheets {
			c := countCell(res, isLive, s, k)
			c.Style = style
			row = append(row, c)
		}
		row = append(row, grid.Cell{
			Formula: sumFormula(grid.Range{FirstRow: r, FirstCol: 1, LastRow: r, LastCol: last}),
			Style:   grid.StyleTotal,
		})
		cells = append(cells, row)
	}

	total := []grid.Cell{{Value: "Total", Style: grid.StyleTotal}}
	for col := 1; col <= last+1; col++ {
		total = append(total, grid.Cell{
			Formula: sumFormula(grid.Range{FirstRow: 1, FirstCol: col, LastRow: len(keys), LastCol: col}),
			Style:   grid.StyleTotal,
		})
	}
	return append(cells, total)
}

// writeDataSource writes the flattened (sheet, key, count) table that live cells read,
// the normalized key columns its counts are taken over, and defines NameSheets,
// NameKeys and NameCounts over the table columns.
func writeDataSource(wb grid.Workbook, res *models.AggregationResult, live Live) error {
	cells := [][]grid.Cell{grid.Header("Sheet", "Key", "Count")}
	for _, sheet := range res.ProcessedSheetNames {
		for _, key := range res.ReportKeys() {
			count := grid.Cell{Value: res.Count(sheet, key)}
			if f, ok := live.countFormula(res, sheet, key); ok {
				count = grid.Cell{Formula: f}
			}
			cells = append(cells, []grid.Cell{{Value: sheet}, {Value: key}, count})
		}
	}
	if err := wb.AppendSheet(exagg.DataSourceSheet, cells); err != nil {
		return err
	}
	for _, sheet := range res.ProcessedSheetNames {
		col, helper, ok := live.helperCells(res, sheet)
		if !ok {
			continue
		}
		if err := wb.WriteCells(exagg.DataSourceSheet, 0, col, helper); err != nil {
			return err
		}
	}

	last := len(cells) - 1
	if last < 1 {
		last = 1
	}
	for col, name := range []string{NameSheets, NameKeys, NameCounts} {
		r := grid.Range{FirstRow: 1, FirstCol: col, LastRow: last, LastCol: col}
		if err := wb.DefineName(name, exagg.DataSourceSheet, r); err != nil {
			return err
		}
	}
	return nil
}

// ensureDataSource writes the hidden data source sheet unless it already exists.
func ensureDataSource(wb grid.Workbook, res *models.AggregationResult, live Live) error {
	if hasSheet(wb, exagg.DataSourceSheet) {
		return nil
	}
	if err := writeDataSource(wb, res, live); err != nil {
		return err
	}
	return wb.HideSheet(exagg.DataSourceSheet)
}
