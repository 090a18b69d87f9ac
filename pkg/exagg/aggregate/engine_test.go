package aggregate

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/columns"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/match"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

func newBook(t *testing.T, sheets map[string][][]any) *grid.File {
	t.Helper()
	wb := grid.New()
	t.Cleanup(func() { wb.Close() })
	for name, rows := range sheets {
		if err := wb.AppendSheet(name, grid.Values(rows...)); err != nil {
			t.Fatalf("AppendSheet(%q) failed: %v", name, err)
		}
	}
	return wb
}

func checkInvariant(t *testing.T, res *models.AggregationResult) {
	t.Helper()
	sums := make(map[string]int)
	for _, counts := range res.PerSheetCounts {
		for k, n := range counts {
			sums[k] += n
		}
	}
	for k, n := range res.TotalCounts {
		if sums[k] != n {
			t.Errorf("TotalCounts[%q] = %d, per-sheet sum %d", k, n, sums[k])
		}
	}
	for k, n := range sums {
		if n != 0 && res.TotalCounts[k] != n {
			t.Errorf("per-sheet key %q missing from totals", k)
		}
	}
}

func TestRunEndToEnd(t *testing.T) {
	wb := newBook(t, map[string][][]any{
		"Data": {
			{"Name", "Note"},
			{"A", "apple pie"},
			{"B", "banana split"},
			{"C", "apple tart"},
		},
	})

	cfg := Config{
		Options: exagg.Options{HeaderRow: 1},
		Sheets:  []string{"Data"},
		Map:     match.ParseMapping("apple : Fruit-A"),
		Mode:    ValueMatch{SearchColumns: columns.MustParse("Note"), Match: match.ModeWhole},
	}
	res, err := Run(context.Background(), wb, cfg, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !reflect.DeepEqual(res.TotalCounts, map[string]int{"Fruit-A": 2}) {
		t.Errorf("TotalCounts = %v", res.TotalCounts)
	}
	if res.PerSheetCounts["Data"]["Fruit-A"] != 2 {
		t.Errorf("PerSheetCounts = %v", res.PerSheetCounts)
	}
	if !reflect.DeepEqual(res.MatchingRows["Data"], []int{0, 2}) {
		t.Errorf("MatchingRows = %v, expected [0 2]", res.MatchingRows["Data"])
	}
	if !reflect.DeepEqual(res.ReportingKeys, []string{"Fruit-A"}) {
		t.Errorf("ReportingKeys = %v", res.ReportingKeys)
	}
	if ext := res.SheetExtents["Data"]; ext.FirstRow != 2 || ext.LastRow != 4 {
		t.Errorf("SheetExtents = %+v", ext)
	}
	if res.HasKeyColumns() {
		t.Error("value match result must not carry key columns")
	}
	checkInvariant(t, res)
}

func TestRunDeterministic(t *testing.T) {
	wb := newBook(t, map[string][][]any{
		"North": {
			{"Vendor", "Memo"},
			{"Acme Corp", "office chairs"},
			{"Globex", "chairs and desks"},
			{"Initech", "printer paper"},
		},
		"South": {
			{"Vendor", "Memo"},
			{"acme", "desks"},
			{nil, "paper"},
			{"Hooli", ""},
		},
	})
	cfg := Config{
		Sheets: []string{"North", "South"},
		Map: match.ParseMapping(`
acme : Zeta
corp : Alpha
desk : Furniture
chairs : Furniture
paper : Supplies
`),
		Mode: ValueMatch{SearchColumns: columns.MustParse("A:B"), Match: match.ModePartial},
	}

	first, err := Run(context.Background(), wb, cfg, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	second, err := Run(context.Background(), wb, cfg, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !reflect.DeepEqual(first.TotalCounts, second.TotalCounts) ||
		!reflect.DeepEqual(first.PerSheetCounts, second.PerSheetCounts) {
		t.Errorf("scans differ: %v vs %v", first.PerSheetCounts, second.PerSheetCounts)
	}
	checkInvariant(t, first)

	// Acme Corp ties Zeta/Alpha/Furniture at 1; Alpha wins.
	if first.PerSheetCounts["North"]["Alpha"] != 1 {
		t.Errorf("North counts = %v", first.PerSheetCounts["North"])
	}
	if first.TotalCounts["Supplies"] != 2 {
		t.Errorf("Supplies = %d, expected 2", first.TotalCounts["Supplies"])
	}
	if !reflect.DeepEqual(first.MatchingRows["South"], []int{0, 1}) {
		t.Errorf("South matching rows = %v", first.MatchingRows["South"])
	}
}

func TestRunDiscoverNewKeys(t *testing.T) {
	wb := newBook(t, map[string][][]any{
		"S1": {{"Key"}, {"Widget"}},
		"S2": {{"Key"}, {"Gadget"}},
	})
	cfg := Config{
		Sheets: []string{"S1", "S2"},
		Mode:   KeyMatch{KeyColumn: columns.MustParse("Key"), DiscoverNewKeys: true},
	}

	res, err := Run(context.Background(), wb, cfg, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !reflect.DeepEqual(res.ReportingKeys, []string{"Gadget", "Widget"}) {
		t.Errorf("ReportingKeys = %v", res.ReportingKeys)
	}
	if res.TotalCounts["Gadget"] != 1 || res.TotalCounts["Widget"] != 1 {
		t.Errorf("TotalCounts = %v", res.TotalCounts)
	}
	if res.ValueToKeyMap["widget"] != "Widget" {
		t.Errorf("ValueToKeyMap = %v", res.ValueToKeyMap)
	}
	if !res.HasKeyColumns() || res.SheetKeyColumnIndices["S2"] != 0 {
		t.Errorf("SheetKeyColumnIndices = %v", res.SheetKeyColumnIndices)
	}
	if res.Mode != models.ModeKeyMatch {
		t.Errorf("Mode = %q", res.Mode)
	}
}

func TestRunKeyMatchWithoutDiscovery(t *testing.T) {
	wb := newBook(t, map[string][][]any{
		"S1": {{"Key"}, {"widget"}, {"WIDGET "}, {"Gizmo"}},
	})
	cfg := Config{
		Sheets: []string{"S1"},
		Map:    models.ValueToKeyMap{"widget": "Widget"},
		Mode:   KeyMatch{KeyColumn: columns.MustParse("A")},
	}

	res, err := Run(context.Background(), wb, cfg, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !reflect.DeepEqual(res.TotalCounts, map[string]int{"Widget": 2}) {
		t.Errorf("TotalCounts = %v", res.TotalCounts)
	}
}

func TestRunBlankModes(t *testing.T) {
	rows := [][]any{
		{"Item", "Owner", "Done"},
		{"x", "", nil},
		{nil, nil, nil},
		{"y", "Bob", nil},
		{"w", nil, "yes"},
	}
	tests := []struct {
		mode     BlankMode
		expected int
	}{
		{BlankRowAware, 1},
		{BlankFullColumn, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			wb := newBook(t, map[string][][]any{"Data": rows})
			cfg := Config{
				Sheets: []string{"Data"},
				Map:    match.ParseMapping("x : X\ny : Y\nw : W"),
				Mode: ValueMatch{
					SearchColumns:     columns.MustParse("Item"),
					ConditionalColumn: columns.MustParse("Done"),
				},
				Blanks: &BlankTracking{Column: columns.MustParse("B"), Mode: tt.mode, CaptureDetails: true},
			}

			res, err := Run(context.Background(), wb, cfg, nil)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if res.BlankTotal() != tt.expected || res.BlankCount("Data") != tt.expected {
				t.Errorf("blanks = %d, expected %d", res.BlankTotal(), tt.expected)
			}
			if res.TotalCounts[exagg.DefaultBlankLabel] != tt.expected {
				t.Errorf("TotalCounts[blank] = %d, expected %d", res.TotalCounts[exagg.DefaultBlankLabel], tt.expected)
			}
			if len(res.BlankDetails) != tt.expected {
				t.Fatalf("BlankDetails = %v", res.BlankDetails)
			}
			if d := res.BlankDetails[0]; d.Row != 2 || d.Values[0] != "x" || d.Headers[1] != "Owner" {
				t.Errorf("BlankDetails[0] = %+v", d)
			}
			if !reflect.DeepEqual(res.ReportingKeys, []string{"X", "Y"}) {
				t.Errorf("ReportingKeys = %v", res.ReportingKeys)
			}
			keys := res.ReportKeys()
			if keys[len(keys)-1] != exagg.DefaultBlankLabel {
				t.Errorf("ReportKeys = %v", keys)
			}
			checkInvariant(t, res)
		})
	}
}

func TestRunSkipsReportSheets(t *testing.T) {
	data := [][]any{{"Note"}, {"apple"}}
	wb := newBook(t, map[string][][]any{
		"Data":               data,
		"update_report_2":    data,
		"Aggregation_Report": data,
		"My Summary":         data,
	})
	cfg := Config{
		Options: exagg.Options{SummarySheet: "my summary"},
		Sheets:  []string{"Data", "update_report_2", "Aggregation_Report", "My Summary", "Missing"},
		Map:     match.ParseMapping("apple"),
		Mode:    ValueMatch{SearchColumns: columns.MustParse("Note")},
	}

	res, err := Run(context.Background(), wb, cfg, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !reflect.DeepEqual(res.ProcessedSheetNames, []string{"Data"}) {
		t.Errorf("ProcessedSheetNames = %v", res.ProcessedSheetNames)
	}
	if res.TotalCounts["apple"] != 1 {
		t.Errorf("TotalCounts = %v", res.TotalCounts)
	}
}

func TestRunCancellation(t *testing.T) {
	wb := newBook(t, map[string][][]any{
		"S1": {{"Note"}, {"apple"}},
		"S2": {{"Note"}, {"apple"}},
	})
	cfg := Config{
		Sheets: []string{"S1", "S2"},
		Map:    match.ParseMapping("apple"),
		Mode:   ValueMatch{SearchColumns: columns.MustParse("Note")},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, wb, cfg, nil); !errors.Is(err, exagg.ErrCancelled) {
		t.Errorf("Run(cancelled ctx) error = %v, expected ErrCancelled", err)
	}

	calls := 0
	_, err := Run(context.Background(), wb, cfg, func(p models.Progress) error {
		calls++
		if p.CurrentTotals["apple"] != 1 || p.CurrentSheet != 1 || p.TotalSheets != 2 {
			t.Errorf("progress = %+v", p)
		}
		return exagg.ErrCancelled
	})
	if !exagg.IsCancelled(err) {
		t.Errorf("Run(progress cancel) error = %v, expected cancellation", err)
	}
	if calls != 1 {
		t.Errorf("progress called %d times, expected 1", calls)
	}
}

func TestRunConfigErrors(t *testing.T) {
	wb := newBook(t, map[string][][]any{
		"Good": {{"Memo Text"}, {"apple"}},
		"Bad":  {{"Other"}, {"apple"}},
	})
	mapping := match.ParseMapping("apple")

	// "Memo Text" is neither a header of Bad nor a column letter or number.

	_, err := Run(context.Background(), wb, Config{
		Options: exagg.Options{HeaderRow: -1},
		Mode:    ValueMatch{SearchColumns: columns.MustParse("Memo Text")},
	}, nil)
	if !errors.Is(err, exagg.ErrHeaderRowOutOfBounds) {
		t.Errorf("negative header row error = %v", err)
	}

	if _, err := Run(context.Background(), wb, Config{}, nil); !errors.Is(err, exagg.ErrInvalidConfig) {
		t.Errorf("missing mode error = %v", err)
	}

	_, err = Run(context.Background(), wb, Config{
		Sheets: []string{"Bad"},
		Map:    mapping,
		Mode:   ValueMatch{SearchColumns: columns.MustParse("Memo Text")},
	}, nil)
	var ce *exagg.ConfigError
	if !errors.As(err, &ce) || ce.SheetName != "Bad" || !errors.Is(err, exagg.ErrColumnNotFound) {
		t.Errorf("unresolvable column error = %v", err)
	}

	res, err := Run(context.Background(), wb, Config{
		Sheets: []string{"Bad", "Good"},
		Map:    mapping,
		Mode:   ValueMatch{SearchColumns: columns.MustParse("Memo Text")},
	}, nil)
	if err != nil {
		t.Fatalf("batch with one bad sheet failed: %v", err)
	}
	if !reflect.DeepEqual(res.ProcessedSheetNames, []string{"Good"}) {
		t.Errorf("ProcessedSheetNames = %v", res.ProcessedSheetNames)
	}

	res, err = Run(context.Background(), wb, Config{
		Options: exagg.Options{HeaderRow: 10},
		Sheets:  []string{"Good"},
		Map:     mapping,
		Mode:    ValueMatch{SearchColumns: columns.MustParse("Memo Text")},
	}, nil)
	if err != nil || len(res.ProcessedSheetNames) != 0 {
		t.Errorf("header past end: res = %v, err = %v", res, err)
	}
}

func TestRunSheetTitles(t *testing.T) {
	wb := newBook(t, map[string][][]any{
		"Q1": {{"First quarter"}, {"Note"}, {"apple"}},
		"Q2": {{nil}, {"Note"}, {"apple"}},
	})
	cfg := Config{
		Options:   exagg.Options{HeaderRow: 2},
		Sheets:    []string{"Q1", "Q2"},
		Map:       match.ParseMapping("apple"),
		Mode:      ValueMatch{SearchColumns: columns.MustParse("Note")},
		TitleCell: "A1",
	}

	res, err := Run(context.Background(), wb, cfg, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Title("Q1") != "First quarter" || res.Title("Q2") != "Q2" {
		t.Errorf("SheetTitles = %v", res.SheetTitles)
	}
	if res.MatchingRows["Q1"][0] != 0 {
		t.Errorf("MatchingRows = %v", res.MatchingRows)
	}
}
