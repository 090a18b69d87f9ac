package grid

import (
	"fmt"
	"io"
	"strings"

	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/xuri/excelize/v2"
)

// File implements Workbook on top of an excelize file.
// Rows are cached per sheet until the sheet is written.
type File struct {
	f      *excelize.File
	rows   map[string][][]any
	styles map[Style]int
}

var _ Workbook = (*File)(nil)

// Open opens an xlsx/xlsm file.
func Open(path string) (*File, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", path, err)
	}
	return Wrap(f), nil
}

// OpenReader reads a workbook from r.
func OpenReader(r io.Reader) (*File, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	return Wrap(f), nil
}

// New creates an empty workbook with the default sheet.
func New() *File {
	return Wrap(excelize.NewFile())
}

// Wrap adapts an already opened excelize file.
func Wrap(f *excelize.File) *File {
	return &File{
		f:      f,
		rows:   make(map[string][][]any),
		styles: make(map[Style]int),
	}
}

// Excelize exposes the underlying file.
func (w *File) Excelize() *excelize.File {
	return w.f
}

// SaveAs writes the workbook to path.
func (w *File) SaveAs(path string) error {
	return w.f.SaveAs(path)
}

// Write streams the workbook to out.
func (w *File) Write(out io.Writer) error {
	return w.f.Write(out)
}

// Close releases the underlying file.
func (w *File) Close() error {
	return w.f.Close()
}

// SheetNames lists sheets in workbook order.
func (w *File) SheetNames() []string {
	return w.f.GetSheetList()
}

func (w *File) hasSheet(sheet string) bool {
	for _, s := range w.f.GetSheetList() {
		if s == sheet {
			return true
		}
	}
	return false
}

// Rows returns the sheet's rows as typed scalars.
func (w *File) Rows(sheet string) ([][]any, error) {
	if rows, ok := w.rows[sheet]; ok {
		return rows, nil
	}
	if !w.hasSheet(sheet) {
		return nil, fmt.Errorf("%w: %q", exagg.ErrSheetNotFound, sheet)
	}

	raw, err := w.f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows of %q: %w", sheet, err)
	}

	rows := make([][]any, len(raw))
	for i, r := range raw {
		row := make([]any, len(r))
		for j, v := range r {
			row[j] = parseValue(v)
		}
		rows[i] = row
	}
	w.rows[sheet] = rows
	return rows, nil
}

// Bounds returns the extent of non-empty cells.
func (w *File) Bounds(sheet string) (Range, error) {
	rows, err := w.Rows(sheet)
	if err != nil {
		return Range{}, err
	}
	return findDataBounds(rows), nil
}

func (w *File) invalidate(sheet string) {
	delete(w.rows, sheet)
}

// WriteCells writes a block of cells with its top-left at (row, col).
func (w *File) WriteCells(sheet string, row, col int, cells [][]Cell) error {
	if !w.hasSheet(sheet) {
		return fmt.Errorf("%w: %q", exagg.ErrSheetNotFound, sheet)
	}
	defer w.invalidate(sheet)

	for i, line := range cells {
		for j, c := range line {
			ref := CellName(row+i, col+j)
			if err := w.writeCell(sheet, ref, c); err != nil {
				return fmt.Errorf("write %s!%s: %w", sheet, ref, err)
			}
		}
	}
	return nil
}

func (w *File) writeCell(sheet, ref string, c Cell) error {
	switch {
	case c.Formula != "":
		if err := w.f.SetCellFormula(sheet, ref, strings.TrimPrefix(c.Formula, "=")); err != nil {
			return err
		}
	case c.Value != nil:
		if err := w.f.SetCellValue(sheet, ref, c.Value); err != nil {
			return err
		}
	}

	if c.Link != "" {
		link, linkType := c.Link, "External"
		if strings.HasPrefix(link, "#") {
			link, linkType = strings.TrimPrefix(link, "#"), "Location"
		}
		if err := w.f.SetCellHyperLink(sheet, ref, link, linkType); err != nil {
			return err
		}
		if c.Style == StyleNone {
			c.Style = StyleLink
		}
	}

	if c.Style != StyleNone {
		id, err := w.styleID(c.Style)
		if err != nil {
			return err
		}
		if err := w.f.SetCellStyle(sheet, ref, ref, id); err != nil {
			return err
		}
	}
	return nil
}

// styleID creates the excelize style for s on first use.
func (w *File) styleID(s Style) (int, error) {
	if id, ok := w.styles[s]; ok {
		return id, nil
	}
	id, err := w.f.NewStyle(styleDefinition(s))
	if err != nil {
		return 0, fmt.Errorf("create style: %w", err)
	}
	w.styles[s] = id
	return id, nil
}

func styleDefinition(s Style) *excelize.Style {
	switch s {
	case StyleHeader:
		return &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}
	case StyleTitle:
		return &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 12},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}
	case StyleTotal:
		return &excelize.Style{
			Font:   &excelize.Font{Bold: true},
			Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
			Border: []excelize.Border{{Type: "top", Color: "#000000", Style: 1}},
		}
	case StyleSubtotal:
		return &excelize.Style{
			Font: &excelize.Font{Bold: true, Italic: true},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#EDEDED"}},
		}
	case StyleBlank:
		return &excelize.Style{
			Font: &excelize.Font{Italic: true, Color: "#7F6000"},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFF2CC"}},
		}
	case StyleHighlight:
		return &excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFFF00"}},
		}
	case StyleUpdated:
		return &excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#C6EFCE"}},
		}
	case StyleLink:
		return &excelize.Style{
			Font: &excelize.Font{Color: "#0563C1", Underline: "single"},
		}
	}
	return &excelize.Style{}
}

// Merge declares a merged region.
func (w *File) Merge(sheet string, r Range) error {
	return w.f.MergeCell(sheet, CellName(r.FirstRow, r.FirstCol), CellName(r.LastRow, r.LastCol))
}

// SetColumnWidth sets the width of one column.
func (w *File) SetColumnWidth(sheet string, col int, width float64) error {
	name := ColumnName(col)
	return w.f.SetColWidth(sheet, name, name, width)
}

// HideColumn hides one column.
func (w *File) HideColumn(sheet string, col int) error {
	return w.f.SetColVisible(sheet, ColumnName(col), false)
}

// SetAutoFilter adds an auto-filter over r.
func (w *File) SetAutoFilter(sheet string, r Range) error {
	ref := CellName(r.FirstRow, r.FirstCol) + ":" + CellName(r.LastRow, r.LastCol)
	return w.f.AutoFilter(sheet, ref, nil)
}

// DefineName creates or replaces a workbook-scoped defined name.
func (w *File) DefineName(name, sheet string, r Range) error {
	_ = w.f.DeleteDefinedName(&excelize.DefinedName{Name: name})
	return w.f.SetDefinedName(&excelize.DefinedName{
		Name:     name,
		RefersTo: RangeRef(sheet, r),
	})
}

// AppendSheet creates name, replacing an existing sheet of the same name.
func (w *File) AppendSheet(name string, cells [][]Cell) error {
	if w.hasSheet(name) {
		if err := w.f.DeleteSheet(name); err != nil {
			return fmt.Errorf("replace sheet %q: %w", name, err)
		}
	}
	if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	w.invalidate(name)
	if len(cells) == 0 {
		return nil
	}
	return w.WriteCells(name, 0, 0, cells)
}

// DeleteSheet removes a sheet if present.
func (w *File) DeleteSheet(name string) error {
	if !w.hasSheet(name) {
		return nil
	}
	w.invalidate(name)
	return w.f.DeleteSheet(name)
}

// ReorderSheets moves the named sheets, in order, to the front and activates the first.
func (w *File) ReorderSheets(order []string) error {
	for i, name := range order {
		list := w.f.GetSheetList()
		if i >= len(list) {
			break
		}
		if list[i] == name {
			continue
		}
		if !w.hasSheet(name) {
			return fmt.Errorf("%w: %q", exagg.ErrSheetNotFound, name)
		}
		if err := w.f.MoveSheet(name, list[i]); err != nil {
			return fmt.Errorf("move sheet %q: %w", name, err)
		}
	}
	if len(order) > 0 {
		if idx, err := w.f.GetSheetIndex(order[0]); err == nil && idx >= 0 {
			w.f.SetActiveSheet(idx)
		}
	}
	return nil
}

// HideSheet hides a sheet, moving the active tab away from it first.
func (w *File) HideSheet(name string) error {
	idx, err := w.f.GetSheetIndex(name)
	if err != nil || idx < 0 {
		return fmt.Errorf("%w: %q", exagg.ErrSheetNotFound, name)
	}
	if w.f.GetActiveSheetIndex() == idx {
		for _, other := range w.f.GetSheetList() {
			if other == name {
				continue
			}
			if oi, err := w.f.GetSheetIndex(other); err == nil && oi >= 0 {
				w.f.SetActiveSheet(oi)
				break
			}
		}
	}
	return w.f.SetSheetVisible(name, false)
}

// StripFormulas replaces every formula on sheet with its cached (or calculated) value.
func (w *File) StripFormulas(sheet string) (int, error) {
	if !w.hasSheet(sheet) {
		return 0, fmt.Errorf("%w: %q", exagg.ErrSheetNotFound, sheet)
	}
	raw, err := w.f.GetRows(sheet)
	if err != nil {
		return 0, err
	}
	defer w.invalidate(sheet)

	width := 0
	for _, row := range raw {
		if len(row) > width {
			width = len(row)
		}
	}

	stripped := 0
	for rowIdx, row := range raw {
		for colIdx := 0; colIdx < width; colIdx++ {
			ref := CellName(rowIdx, colIdx)
			formula, err := w.f.GetCellFormula(sheet, ref)
			if err != nil || formula == "" {
				continue
			}
			var value string
			if colIdx < len(row) {
				value = row[colIdx]
			}
			if value == "" {
				if calc, err := w.f.CalcCellValue(sheet, ref); err == nil {
					value = calc
				}
			}
			if err := w.f.SetCellValue(sheet, ref, parseValue(value)); err != nil {
				return stripped, fmt.Errorf("strip %s!%s: %w", sheet, ref, err)
			}
			stripped++
		}
	}
	return stripped, nil
}
