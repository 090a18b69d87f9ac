// Package grid exposes workbooks as 2-D cell grids for reading and writing.
package grid

// Range is an inclusive block of cells, 0-indexed.
type Range struct {
	FirstRow int
	FirstCol int
	LastRow  int
	LastCol  int
}

// Empty reports whether the range covers no cells.
func (r Range) Empty() bool {
	return r.FirstRow < 0 || r.FirstCol < 0 || r.LastRow < r.FirstRow || r.LastCol < r.FirstCol
}

// Style is a named cell style; File maps each to an excelize style on first use.
type Style int

const (
	StyleNone Style = iota
	StyleHeader
	StyleTitle
	StyleTotal
	StyleSubtotal
	StyleBlank
	StyleHighlight
	StyleUpdated
	StyleLink
)

// Cell is one value or formula to write.
type Cell struct {
	// Value is a scalar; nil leaves the existing value alone.
	Value any
	// Formula takes precedence over Value when set (no leading "=").
	Formula string
	// Style is applied after the value.
	Style Style
	// Link is a hyperlink; a leading "#" marks an in-workbook location.
	Link string
}

// Reader is the grid accessor consumed by the scanning stages.
type Reader interface {
	// SheetNames lists sheets in workbook order.
	SheetNames() []string
	// Rows returns the sheet as rows of scalars (string, int64, float64, bool) or nil.
	Rows(sheet string) ([][]any, error)
	// Bounds returns the extent of non-empty cells.
	Bounds(sheet string) (Range, error)
}

// Writer places cells and layout metadata on sheets.
type Writer interface {
	WriteCells(sheet string, row, col int, cells [][]Cell) error
	Merge(sheet string, r Range) error
	SetColumnWidth(sheet string, col int, width float64) error
	HideColumn(sheet string, col int) error
	SetAutoFilter(sheet string, r Range) error
	DefineName(name, sheet string, r Range) error
}

// Workbook is a mutable in-memory workbook.
type Workbook interface {
	Reader
	Writer
	// AppendSheet creates name (replacing any existing sheet) and fills it from the origin.
	AppendSheet(name string, cells [][]Cell) error
	DeleteSheet(name string) error
	// ReorderSheets moves the named sheets, in order, to the front.
	ReorderSheets(order []string) error
	HideSheet(name string) error
	// StripFormulas replaces formulas with their values and returns how many were replaced.
	StripFormulas(sheet string) (int, error)
}

// Header builds a header row of styled cells.
func Header(names ...string) []Cell {
	row := make([]Cell, len(names))
	for i, n := range names {
		row[i] = Cell{Value: n, Style: StyleHeader}
	}
	return row
}

// Values wraps plain rows as unstyled cells.
func Values(rows ...[]any) [][]Cell {
	out := make([][]Cell, len(rows))
	for i, row := range rows {
		out[i] = make([]Cell, len(row))
		for j, v := range row {
			out[i][j] = Cell{Value: v}
		}
	}
	return out
}
