package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

func sampleResult() *models.AggregationResult {
	res := models.NewAggregationResult(models.ModeKeyMatch, 1, "(blank)")
	res.PerSheetCounts = map[string]map[string]int{
		"North": {"Apple": 3, "(blank)": 1},
		"South": {"Apple": 1, "Pear": 2},
	}
	res.TotalCounts = map[string]int{"Apple": 4, "Pear": 2, "(blank)": 1}
	res.BlankCounts = &models.BlankCounts{Total: 1, PerSheet: map[string]int{"North": 1, "South": 0}}
	res.ReportingKeys = []string{"Apple", "Pear"}
	res.ProcessedSheetNames = []string{"North", "South"}
	return res
}

func TestSaveAndRead(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	id, err := s.Save(ctx, Run{
		Workbook: "book.xlsx",
		Result:   sampleResult(),
		Mappings: []models.KeyMapping{{Term: "apple", OriginalKey: "Apple", ReportingKey: "Apple", Count: 4}},
		Updates:  []models.UpdateRecord{{Sheet: "North", Row: 2, NewValue: "Apple"}},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("run id %q is not a uuid: %v", id, err)
	}

	counts, err := s.Counts(ctx, id)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	expected := []Count{
		{Sheet: "North", Key: "(blank)", Count: 1, Blank: true},
		{Sheet: "North", Key: "Apple", Count: 3},
		{Sheet: "South", Key: "Apple", Count: 1},
		{Sheet: "South", Key: "Pear", Count: 2},
	}
	if !reflect.DeepEqual(counts, expected) {
		t.Errorf("Counts = %+v, expected %+v", counts, expected)
	}

	totals, err := s.Totals(ctx, id)
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if !reflect.DeepEqual(totals, sampleResult().TotalCounts) {
		t.Errorf("Totals = %v", totals)
	}

	n, err := s.UpdateCount(ctx, id)
	if err != nil || n != 1 {
		t.Errorf("UpdateCount = %d, %v", n, err)
	}

	// a second run keeps its rows apart
	other, err := s.Save(ctx, Run{ID: "fixed", Workbook: "book.xlsx", Result: sampleResult()})
	if err != nil || other != "fixed" {
		t.Fatalf("Save = %q, %v", other, err)
	}
	if n, _ := s.UpdateCount(ctx, other); n != 0 {
		t.Errorf("UpdateCount(second run) = %d", n)
	}
	if _, err := s.Save(ctx, Run{ID: "fixed", Result: sampleResult()}); err == nil {
		t.Error("duplicate run id accepted")
	}
}

func TestSaveUpdatesOnly(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	id, err := s.Save(ctx, Run{Updates: []models.UpdateRecord{{Sheet: "S", Row: 2}, {Sheet: "S", Row: 3}}})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if n, err := s.UpdateCount(ctx, id); err != nil || n != 2 {
		t.Errorf("UpdateCount = %d, %v", n, err)
	}
	if counts, err := s.Counts(ctx, id); err != nil || len(counts) != 0 {
		t.Errorf("Counts = %v, %v", counts, err)
	}
}
