package grid

import (
	"fmt"
	"strings"

	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/xuri/excelize/v2"
)

// ColumnName converts a 0-indexed column to letters (0 -> A).
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return ""
	}
	return name
}

// CellName converts 0-indexed coordinates to an A1 reference.
func CellName(row, col int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row+1)
	return name
}

// AbsCellName converts 0-indexed coordinates to a $A$1 reference.
func AbsCellName(row, col int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row+1, true)
	return name
}

// QuoteSheet quotes a sheet name for use in formulas and locations.
func QuoteSheet(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// Location builds an in-workbook hyperlink to a cell.
func Location(sheet string, row, col int) string {
	return "#" + QuoteSheet(sheet) + "!" + CellName(row, col)
}

// RangeRef renders r as an absolute reference, optionally sheet-qualified.
func RangeRef(sheet string, r Range) string {
	ref := AbsCellName(r.FirstRow, r.FirstCol) + ":" + AbsCellName(r.LastRow, r.LastCol)
	if sheet == "" {
		return ref
	}
	return QuoteSheet(sheet) + "!" + ref
}

// ParseCell parses an A1 reference into 0-indexed coordinates.
func ParseCell(ref string) (row, col int, err error) {
	ref = strings.ReplaceAll(strings.TrimSpace(ref), "$", "")
	c, r, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", exagg.ErrInvalidRange, ref)
	}
	return r - 1, c - 1, nil
}
