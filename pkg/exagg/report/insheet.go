package report

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

// InSheetOptions configures InSheetSummary.
type InSheetOptions struct {
	exagg.Options
	// Anchor is the top-left cell of the block, e.g. "H1". Empty places the block
	// two columns right of the sheet's data, on the header row.
	Anchor string
	// LocalKeysOnly lists only keys with a non-zero count on that sheet.
	LocalKeysOnly bool
	Source        Source
	// Title is written above the block when set.
	Title    string
	Autosize bool
}

// Placement records where a summary block was written.
type Placement struct {
	Sheet string
	// Block covers the header, key rows and the Total row.
	Block grid.Range
}

// InSheetSummary writes a Key/Count block into every processed sheet. Live blocks
// count over the hidden data source sheet, which is written first if CrossTab has
// not already done so.
func InSheetSummary(ctx context.Context, wb grid.Workbook, res *models.AggregationResult, opts InSheetOptions) ([]Placement, error) {
	opts.Options = opts.Options.Normalize()
	live, isLive, err := liveSource(opts.Source)
	if err != nil {
		return nil, err
	}

	var anchorRow, anchorCol int
	if opts.Anchor != "" {
		if anchorRow, anchorCol, err = grid.ParseCell(opts.Anchor); err != nil {
			return nil, exagg.NewConfigError("", opts.Anchor, err)
		}
	}
	if isLive {
		if err := ensureDataSource(wb, res, live); err != nil {
			return nil, err
		}
	}

	logger := zerolog.Ctx(ctx)
	var placed []Placement
	for _, sheet := range res.ProcessedSheetNames {
		if err := exagg.CheckCancelled(ctx); err != nil {
			return placed, err
		}
		row, col := anchorRow, anchorCol
		if opts.Anchor == "" {
			b, err := wb.Bounds(sheet)
			if err != nil {
				logger.Warn().Err(err).Str("sheet", sheet).Msg("in-sheet summary skipped")
				continue
			}
			row, col = opts.HeaderRow-1, b.LastCol+2
			if col < 1 {
				col = 1
			}
		}

		keys := res.ReportKeys()
		if opts.LocalKeysOnly {
			keys = res.LocalKeys(sheet)
		}
		cells := summaryBlock(res, live, isLive, sheet, keys, row, col, opts.Title)
		if err := wb.WriteCells(sheet, row, col, cells); err != nil {
			return placed, err
		}
		if opts.Title != "" {
			if err := wb.Merge(sheet, grid.Range{FirstRow: row, FirstCol: col, LastRow: row, LastCol: col + 1}); err != nil {
				return placed, err
			}
		}
		if opts.Autosize {
			if err := autosize(wb, sheet, col, cells); err != nil {
				return placed, err
			}
		}
		placed = append(placed, Placement{
			Sheet: sheet,
			Block: grid.Range{FirstRow: row, FirstCol: col, LastRow: row + len(cells) - 1, LastCol: col + 1},
		})
		logger.Debug().Str("sheet", sheet).Str("anchor", grid.CellName(row, col)).Int("keys", len(keys)).Msg("in-sheet summary written")
	}
	return placed, nil
}

// summaryBlock builds the Key/Count block whose top-left lands on (row, col).
func summaryBlock(res *models.AggregationResult, live Live, isLive bool, sheet string, keys []string, row, col int, title string) [][]grid.Cell {
	var cells [][]grid.Cell
	if title != "" {
		cells = append(cells, []grid.Cell{{Value: title, Style: grid.StyleTitle}, {}})
	}
	cells = append(cells, grid.Header("Key", "Count"))
	first := row + len(cells)

	for _, k := range keys {
		style := keyStyle(res, k, grid.StyleNone)
		count := grid.Cell{Value: res.Count(sheet, k), Style: style}
		if isLive {
			if f, ok := live.countFormula(res, sheet, k); ok {
				count = grid.Cell{Formula: f, Style: style}
			}
		}
		cells = append(cells, []grid.Cell{{Value: k, Style: style}, count})
	}

	total := grid.Cell{
		Formula: sumFormula(grid.Range{FirstRow: first, FirstCol: col + 1, LastRow: first + len(keys) - 1, LastCol: col + 1}),
		Style:   grid.StyleTotal,
	}
	return append(cells, []grid.Cell{{Value: "Total", Style: grid.StyleTotal}, total})
}
