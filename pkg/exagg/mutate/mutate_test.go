package mutate

import (
	"context"
	"errors"
	"testing"

	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/columns"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/match"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

func newBook(t *testing.T, name string, rows ...[]any) *grid.File {
	t.Helper()
	wb := grid.New()
	t.Cleanup(func() { wb.Close() })
	if err := wb.AppendSheet(name, grid.Values(rows...)); err != nil {
		t.Fatalf("AppendSheet failed: %v", err)
	}
	return wb
}

func cellText(t *testing.T, wb *grid.File, sheet string, row, col int) string {
	t.Helper()
	rows, err := wb.Rows(sheet)
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if row >= len(rows) {
		return ""
	}
	return grid.Text(grid.At(rows[row], col))
}

func updateBook(t *testing.T) *grid.File {
	return newBook(t, "Data",
		[]any{"Desc", "Category", "Ref"},
		[]any{"apple pie", nil, "A1"},
		[]any{"banana", "Existing", "a1 "},
		[]any{"apple tart", "", "B"},
		[]any{"nothing", nil, "C"},
	)
}

func updateConfig() UpdateConfig {
	return UpdateConfig{
		Map:           match.ParseMapping("apple : Fruit-A\nbanana : Fruit-B"),
		SearchColumns: columns.MustParse("Desc"),
		TargetColumn:  columns.MustParse("Category"),
		Highlight:     true,
	}
}

func TestLookupAndUpdate(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*UpdateConfig)
		expected []int // updated worksheet rows
	}{
		{"all rows", func(*UpdateConfig) {}, []int{2, 3, 4}},
		{"only blanks", func(c *UpdateConfig) { c.UpdateOnlyBlanks = true }, []int{2, 4}},
		{"paired rows", func(c *UpdateConfig) { c.ValidationColumns = columns.MustParse("Ref") }, []int{2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := updateBook(t)
			cfg := updateConfig()
			tt.modify(&cfg)

			records, err := LookupAndUpdate(context.Background(), wb, cfg, nil)
			if err != nil {
				t.Fatalf("LookupAndUpdate failed: %v", err)
			}
			if len(records) != len(tt.expected) {
				t.Fatalf("records = %+v, expected rows %v", records, tt.expected)
			}
			for i, r := range records {
				if r.Row != tt.expected[i] {
					t.Errorf("records[%d].Row = %d, expected %d", i, r.Row, tt.expected[i])
				}
				if got := cellText(t, wb, "Data", r.Row-1, 1); got != r.NewValue {
					t.Errorf("cell at row %d = %q, expected %q", r.Row, got, r.NewValue)
				}
			}
		})
	}
}

func TestLookupAndUpdateRecord(t *testing.T) {
	wb := updateBook(t)
	records, err := LookupAndUpdate(context.Background(), wb, updateConfig(), nil)
	if err != nil {
		t.Fatalf("LookupAndUpdate failed: %v", err)
	}
	expected := models.UpdateRecord{
		Sheet:         "Data",
		Row:           3,
		Column:        1,
		OriginalValue: "Existing",
		NewValue:      "Fruit-B",
		Key:           "Fruit-B",
		Term:          "banana",
		TriggerColumn: "Desc",
		TriggerValue:  "banana",
	}
	if records[1] != expected {
		t.Errorf("records[1] = %+v, expected %+v", records[1], expected)
	}
}

func TestPairedRowRuns(t *testing.T) {
	sd := &sheetData{
		name: "S",
		rows: [][]any{
			{"Ref"},
			{"X"},
			{"x"},
			{"X "},
			{nil},
			{"Y"},
		},
		dataStart: 1,
	}
	tests := []struct {
		row      int
		expected bool
	}{
		{1, true},
		{2, true},
		{3, true},
		{5, false},
	}
	for _, tt := range tests {
		if got := pairedRow(sd, tt.row, []int{0}); got != tt.expected {
			t.Errorf("pairedRow(%d) = %v, expected %v", tt.row, got, tt.expected)
		}
	}
}

func TestFillKeyColumn(t *testing.T) {
	wb := updateBook(t)
	records, err := FillKeyColumn(context.Background(), wb, FillConfig{
		Map:           match.ParseMapping("apple : Fruit-A\nbanana : Fruit-B"),
		SearchColumns: columns.MustParse("Desc"),
		KeyColumn:     columns.MustParse("B"),
	}, nil)
	if err != nil {
		t.Fatalf("FillKeyColumn failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %+v", records)
	}
	if got := cellText(t, wb, "Data", 2, 1); got != "Existing" {
		t.Errorf("non-blank key overwritten with %q", got)
	}
	if got := cellText(t, wb, "Data", 3, 1); got != "Fruit-A" {
		t.Errorf("blank key = %q, expected Fruit-A", got)
	}
}

func TestUpdateErrors(t *testing.T) {
	wb := updateBook(t)

	cfg := updateConfig()
	cfg.TargetColumn = columns.MustParse("Memo Text")
	_, err := LookupAndUpdate(context.Background(), wb, cfg, nil)
	var ce *exagg.ConfigError
	if !errors.As(err, &ce) || ce.SheetName != "Data" {
		t.Errorf("unresolvable target error = %v", err)
	}

	if _, err := FillKeyColumn(context.Background(), wb, FillConfig{}, nil); !errors.Is(err, exagg.ErrInvalidConfig) {
		t.Errorf("missing key column error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := LookupAndUpdate(ctx, wb, updateConfig(), nil); !errors.Is(err, exagg.ErrCancelled) {
		t.Errorf("cancelled error = %v", err)
	}

	_, err = LookupAndUpdate(context.Background(), wb, updateConfig(), func(models.Progress) error {
		return exagg.ErrCancelled
	})
	if !exagg.IsCancelled(err) {
		t.Errorf("progress cancel error = %v", err)
	}
}

func TestUpdateSkipsSheetWithoutTarget(t *testing.T) {
	wb := newBook(t, "Good",
		[]any{"Desc", "Status"},
		[]any{"apple pie", nil},
	)
	if err := wb.AppendSheet("Odd", grid.Values(
		[]any{"Desc", "Other"},
		[]any{"banana", nil},
	)); err != nil {
		t.Fatalf("AppendSheet failed: %v", err)
	}

	cfg := updateConfig()
	cfg.TargetColumn = columns.MustParse("Status")
	records, err := LookupAndUpdate(context.Background(), wb, cfg, nil)
	if err != nil {
		t.Fatalf("LookupAndUpdate failed: %v", err)
	}
	if len(records) != 1 || records[0].Sheet != "Good" {
		t.Fatalf("records = %+v, expected one update on Good", records)
	}
	if got := cellText(t, wb, "Good", 1, 1); got != "Fruit-A" {
		t.Errorf("Good!B2 = %q, expected Fruit-A", got)
	}
	rows, err := wb.Rows("Odd")
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows[1]) > 2 {
		t.Errorf("Odd row written past its columns: %v", rows[1])
	}
	if got := cellText(t, wb, "Odd", 1, 1); got != "" {
		t.Errorf("Odd!B2 = %q, expected untouched", got)
	}
}

func TestMarkMatchingRows(t *testing.T) {
	wb := updateBook(t)
	n, err := MarkMatchingRows(context.Background(), wb, map[string][]int{
		"Data":    {0, 2},
		"Missing": {1},
	}, MarkConfig{Column: columns.MustParse("D")})
	if err != nil {
		t.Fatalf("MarkMatchingRows failed: %v", err)
	}
	if n != 2 {
		t.Errorf("marked = %d, expected 2", n)
	}
	for _, row := range []int{1, 3} {
		if got := cellText(t, wb, "Data", row, 3); got != DefaultMarker {
			t.Errorf("row %d marker = %q", row+1, got)
		}
	}
	if got := cellText(t, wb, "Data", 2, 3); got != "" {
		t.Errorf("unmatched row marked with %q", got)
	}
}

func TestMarkDuplicates(t *testing.T) {
	wb := newBook(t, "People",
		[]any{"Name", "City", "Note"},
		[]any{"Ann", "Oslo"},
		[]any{"Bob", "Rome"},
		[]any{"ann ", "OSLO"},
		[]any{"Ann", "Paris"},
		[]any{nil},
		[]any{"Bob", "Rome"},
	)

	n, err := MarkDuplicates(context.Background(), wb, DuplicateConfig{
		KeyColumns:   columns.MustParse("Name,City"),
		MarkerColumn: columns.MustParse("Note"),
		Template:     "Duplicate of row {_row}: {Name}",
	})
	if err != nil {
		t.Fatalf("MarkDuplicates failed: %v", err)
	}
	if n != 2 {
		t.Errorf("marked = %d, expected 2", n)
	}

	expected := map[int]string{
		3: "Duplicate of row 2: Ann",
		4: "",
		6: "Duplicate of row 3: Bob",
	}
	for row, want := range expected {
		if got := cellText(t, wb, "People", row, 2); got != want {
			t.Errorf("row %d note = %q, expected %q", row+1, got, want)
		}
	}
}

func TestStripFormulas(t *testing.T) {
	wb := newBook(t, "Calc", []any{"a", "b", "sum"}, []any{1, 2})
	if err := wb.WriteCells("Calc", 1, 2, [][]grid.Cell{{{Formula: "A2+B2"}}}); err != nil {
		t.Fatalf("WriteCells failed: %v", err)
	}
	if err := wb.AppendSheet("update_report", [][]grid.Cell{{{Formula: "1+1"}}}); err != nil {
		t.Fatalf("AppendSheet failed: %v", err)
	}

	n, err := StripFormulas(context.Background(), wb, nil)
	if err != nil {
		t.Fatalf("StripFormulas failed: %v", err)
	}
	if n != 1 {
		t.Errorf("stripped = %d, expected 1", n)
	}
	if f, _ := wb.Excelize().GetCellFormula("Calc", "C2"); f != "" {
		t.Errorf("formula left in C2: %q", f)
	}
	if got := cellText(t, wb, "Calc", 1, 2); got != "3" {
		t.Errorf("C2 = %q, expected 3", got)
	}
	if f, _ := wb.Excelize().GetCellFormula("update_report", "A1"); f == "" {
		t.Error("report sheet formula was stripped")
	}
}
