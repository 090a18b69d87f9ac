// Package report builds report sheets from aggregation results: cross-tab summaries,
// in-sheet summaries, audit tables and grouped roll-ups.
package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

// Names of the defined names over the hidden data source sheet.
const (
	NameSheets = "exagg_sheets"
	NameKeys   = "exagg_keys"
	NameCounts = "exagg_counts"
)

// Source selects how count cells are produced.
type Source interface {
	source()
}

// Static writes counts as plain numbers.
type Static struct{}

func (Static) source() {}

// Live writes formulas that recount the source sheets when the workbook recalculates.
// It can only be built from a key-column result, see LiveFrom.
type Live struct {
	columns models.KeyColumnIndex
}

func (Live) source() {}

// LiveFrom returns a Live source for res, which must come from a key-column scan.
func LiveFrom(res *models.AggregationResult) (Live, error) {
	if !res.HasKeyColumns() {
		return Live{}, fmt.Errorf("%w: live formulas need a key column aggregation", exagg.ErrInvalidConfig)
	}
	return Live{columns: res.SheetKeyColumnIndices}, nil
}

func liveSource(src Source) (Live, bool, error) {
	live, ok := src.(Live)
	if !ok {
		return Live{}, false, nil
	}
	if live.columns == nil {
		return Live{}, false, fmt.Errorf("%w: live source not built with LiveFrom", exagg.ErrInvalidConfig)
	}
	return live, true, nil
}

// helperOrigin is the first data source column holding normalized key texts, one
// column per processed sheet, to the right of the Sheet/Key/Count table.
const helperOrigin = 4

// helperColumn returns the data source column mirroring sheet's key column; ok is
// false when the sheet has no key column or no data rows.
func (l Live) helperColumn(res *models.AggregationResult, sheet string) (int, models.Extent, bool) {
	if _, ok := l.columns[sheet]; !ok {
		return 0, models.Extent{}, false
	}
	ext, ok := res.SheetExtents[sheet]
	if !ok || ext.LastRow < ext.FirstRow {
		return 0, models.Extent{}, false
	}
	for i, s := range res.ProcessedSheetNames {
		if s == sheet {
			return helperOrigin + i, ext, true
		}
	}
	return 0, models.Extent{}, false
}

// helperCells returns sheet's helper column: the sheet name on the header row, then
// LOWER(TRIM(cell)) of every key cell on the row it mirrors. Row indexes match the
// source sheet so the counted range has the same extent as the scan.
func (l Live) helperCells(res *models.AggregationResult, sheet string) (int, [][]grid.Cell, bool) {
	col, ext, ok := l.helperColumn(res, sheet)
	if !ok {
		return 0, nil, false
	}
	keyCol := l.columns[sheet]
	cells := make([][]grid.Cell, ext.LastRow)
	cells[0] = []grid.Cell{{Value: sheet, Style: grid.StyleHeader}}
	for r := 1; r < ext.LastRow; r++ {
		cells[r] = []grid.Cell{{}}
	}
	for r := ext.FirstRow - 1; r < ext.LastRow; r++ {
		ref := grid.QuoteSheet(sheet) + "!" + grid.AbsCellName(r, keyCol)
		cells[r] = []grid.Cell{{Formula: "LOWER(TRIM(" + ref + "))"}}
	}
	return col, cells, true
}

// countFormula counts the rows of sheet whose trimmed, case-folded key cell equals a
// term of key, the same test the scan applies. Terms are compared with "=" criteria
// and wildcards escaped, so COUNTIF matches whole cells literally. Blank tallies have
// no term and stay static.
func (l Live) countFormula(res *models.AggregationResult, sheet, key string) (string, bool) {
	if key == res.BlankLabel && res.BlankTotal() > 0 {
		return "", false
	}
	col, ext, ok := l.helperColumn(res, sheet)
	if !ok {
		return "", false
	}
	terms := res.ValueToKeyMap.TermsFor(key)
	if len(terms) == 0 {
		return "", false
	}
	rng := grid.RangeRef(exagg.DataSourceSheet, grid.Range{
		FirstRow: ext.FirstRow - 1, FirstCol: col, LastRow: ext.LastRow - 1, LastCol: col,
	})
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = fmt.Sprintf("COUNTIF(%s,%s)", rng, quote("="+escapeCriteria(t)))
	}
	return strings.Join(parts, "+"), true
}

var criteriaEscaper = strings.NewReplacer("~", "~~", "*", "~*", "?", "~?")

// escapeCriteria makes COUNTIF treat the wildcard characters of s literally.
func escapeCriteria(s string) string {
	return criteriaEscaper.Replace(s)
}

// quote renders s as a formula string literal.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// countCell returns the cell for the count of key on sheet; live cells look the count
// up in the hidden data source sheet.
func countCell(res *models.AggregationResult, isLive bool, sheet, key string) grid.Cell {
	if isLive {
		return grid.Cell{Formula: fmt.Sprintf("SUMPRODUCT(EXACT(%s,%s)*EXACT(%s,%s),%s)",
			NameSheets, quote(sheet), NameKeys, quote(key), NameCounts)}
	}
	return grid.Cell{Value: res.Count(sheet, key)}
}

func keyStyle(res *models.AggregationResult, key string, base grid.Style) grid.Style {
	if key == res.BlankLabel && res.BlankTotal() > 0 {
		return grid.StyleBlank
	}
	return base
}

func sumFormula(r grid.Range) string {
	if r.Empty() {
		return "0"
	}
	return "SUM(" + grid.CellName(r.FirstRow, r.FirstCol) + ":" + grid.CellName(r.LastRow, r.LastCol) + ")"
}

// autosize sets each column's width from the longest text written in it.
func autosize(wb grid.Writer, sheet string, originCol int, cells [][]grid.Cell) error {
	var widths []int
	for _, row := range cells {
		for j, c := range row {
			for len(widths) <= j {
				widths = append(widths, 0)
			}
			n := utf8.RuneCountInString(grid.Text(c.Value))
			if c.Formula != "" && n < 8 {
				n = 8
			}
			if n > widths[j] {
				widths[j] = n
			}
		}
	}
	for j, w := range widths {
		width := float64(w) + 2
		if width < 8 {
			width = 8
		}
		if width > 60 {
			width = 60
		}
		if err := wb.SetColumnWidth(sheet, originCol+j, width); err != nil {
			return err
		}
	}
	return nil
}

// chunkName returns the sheet name of the i-th chunk (0-based) of base.
func chunkName(base string, i int) string {
	if i == 0 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, i+1)
}

// writeChunked writes header plus rows into base, base_2, … with at most limit data rows
// per sheet. Stale chunks left by an earlier, longer run are deleted.
func writeChunked(wb grid.Workbook, base string, header []string, rows [][]grid.Cell, limit int) ([]string, error) {
	var names []string
	for i := 0; i == 0 || i*limit < len(rows); i++ {
		end := (i + 1) * limit
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[i*limit : end]
		name := chunkName(base, i)

		cells := make([][]grid.Cell, 0, len(chunk)+1)
		cells = append(cells, grid.Header(header...))
		cells = append(cells, chunk...)
		if err := wb.AppendSheet(name, cells); err != nil {
			return names, err
		}
		if err := wb.SetAutoFilter(name, grid.Range{LastRow: len(chunk), LastCol: len(header) - 1}); err != nil {
			return names, fmt.Errorf("auto filter on %q: %w", name, err)
		}
		if err := autosize(wb, name, 0, cells); err != nil {
			return names, err
		}
		names = append(names, name)
	}

	for i := len(names); ; i++ {
		stale := chunkName(base, i)
		if !hasSheet(wb, stale) {
			break
		}
		if err := wb.DeleteSheet(stale); err != nil {
			return names, err
		}
	}
	return names, nil
}

func hasSheet(r grid.Reader, name string) bool {
	for _, s := range r.SheetNames() {
		if s == name {
			return true
		}
	}
	return false
}

// Arrange moves the given report sheets to the front when opts asks for it.
func Arrange(wb grid.Workbook, names []string, opts exagg.Options) error {
	if !opts.ShouldReorderReports() || len(names) == 0 {
		return nil
	}
	var present []string
	for _, n := range names {
		if hasSheet(wb, n) {
			present = append(present, n)
		}
	}
	return wb.ReorderSheets(present)
}
