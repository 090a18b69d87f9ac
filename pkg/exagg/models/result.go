// Package models defines data structures shared by the aggregation stages.
package models

// Match modes recorded on a result.
const (
	ModeValueMatch = "value_match"
	ModeKeyMatch   = "key_match"
)

// BlankCounts holds counts of blank cells in the tracked column.
type BlankCounts struct {
	// Total is the number of blanks across all processed sheets.
	Total int `json:"total"`
	// PerSheet maps sheet name to its blank count.
	PerSheet map[string]int `json:"per_sheet"`
}

// BlankDetail captures one blank hit with a snapshot of its row.
type BlankDetail struct {
	// Sheet is the sheet name.
	Sheet string `json:"sheet"`
	// Row is the 1-based worksheet row.
	Row int `json:"row"`
	// Column is the 0-indexed tracked column.
	Column int `json:"column"`
	// Headers are the sheet's column names in order.
	Headers []string `json:"headers"`
	// Values are the row's cell texts aligned with Headers.
	Values []string `json:"values"`
}

// Extent describes the worksheet rows holding data for one sheet.
type Extent struct {
	// FirstRow is the first 1-based data row (header row + 1).
	FirstRow int `json:"first_row"`
	// LastRow is the last 1-based row containing any value.
	LastRow int `json:"last_row"`
}

// KeyColumnIndex maps sheet name to the 0-indexed key column.
// It is only populated by key-column aggregation and is what live formulas reference.
type KeyColumnIndex map[string]int

// AggregationResult is the product of one scan, or of replaying key edits on a scan.
// It is treated as immutable once returned.
type AggregationResult struct {
	// Mode is ModeValueMatch or ModeKeyMatch.
	Mode string `json:"mode"`
	// HeaderRow is the 1-indexed header row used for the scan.
	HeaderRow int `json:"header_row"`
	// TotalCounts maps key to its count across all processed sheets.
	TotalCounts map[string]int `json:"total_counts"`
	// PerSheetCounts maps sheet name to key counts.
	PerSheetCounts map[string]map[string]int `json:"per_sheet_counts"`
	// BlankLabel is the key under which blanks are tallied.
	BlankLabel string `json:"blank_label"`
	// BlankCounts is nil when blank tracking was not configured.
	BlankCounts *BlankCounts `json:"blank_counts,omitempty"`
	// BlankDetails lists every blank found when detail capture was requested.
	BlankDetails []BlankDetail `json:"blank_details,omitempty"`
	// ReportingKeys is the sorted set of keys with at least one match.
	ReportingKeys []string `json:"reporting_keys"`
	// ValueToKeyMap is the term to key mapping actually used.
	ValueToKeyMap ValueToKeyMap `json:"value_to_key_map"`
	// ProcessedSheetNames lists scanned sheets in scan order.
	ProcessedSheetNames []string `json:"processed_sheet_names"`
	// MatchingRows maps sheet name to ascending 0-indexed data rows with a match.
	MatchingRows map[string][]int `json:"matching_rows"`
	// SheetKeyColumnIndices is set for key-column scans only.
	SheetKeyColumnIndices KeyColumnIndex `json:"sheet_key_column_indices,omitempty"`
	// SheetTitles maps sheet name to its display title.
	SheetTitles map[string]string `json:"sheet_titles"`
	// SheetExtents maps sheet name to its data row span.
	SheetExtents map[string]Extent `json:"sheet_extents"`
}

// NewAggregationResult returns an empty result with all maps allocated.
func NewAggregationResult(mode string, headerRow int, blankLabel string) *AggregationResult {
	return &AggregationResult{
		Mode:           mode,
		HeaderRow:      headerRow,
		TotalCounts:    make(map[string]int),
		PerSheetCounts: make(map[string]map[string]int),
		BlankLabel:     blankLabel,
		ValueToKeyMap:  make(ValueToKeyMap),
		MatchingRows:   make(map[string][]int),
		SheetTitles:    make(map[string]string),
		SheetExtents:   make(map[string]Extent),
	}
}

// Title returns the display title of a sheet, falling back to its name.
func (r *AggregationResult) Title(sheet string) string {
	if t, ok := r.SheetTitles[sheet]; ok && t != "" {
		return t
	}
	return sheet
}

// BlankTotal returns the total blank count, or 0 when blanks were not tracked.
func (r *AggregationResult) BlankTotal() int {
	if r.BlankCounts == nil {
		return 0
	}
	return r.BlankCounts.Total
}

// BlankCount returns the blank count for one sheet.
func (r *AggregationResult) BlankCount(sheet string) int {
	if r.BlankCounts == nil {
		return 0
	}
	return r.BlankCounts.PerSheet[sheet]
}

// ReportKeys returns the reporting keys plus the blank label when blanks were found.
func (r *AggregationResult) ReportKeys() []string {
	keys := append([]string(nil), r.ReportingKeys...)
	if r.BlankTotal() > 0 && !containsString(keys, r.BlankLabel) {
		keys = append(keys, r.BlankLabel)
	}
	return keys
}

// LocalKeys returns the report keys that have a non-zero count on sheet.
func (r *AggregationResult) LocalKeys(sheet string) []string {
	counts := r.PerSheetCounts[sheet]
	var keys []string
	for _, k := range r.ReportKeys() {
		if counts[k] > 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

// Count returns the count for key on sheet.
func (r *AggregationResult) Count(sheet, key string) int {
	return r.PerSheetCounts[sheet][key]
}

// HasKeyColumns reports whether the result came from a key-column scan.
func (r *AggregationResult) HasKeyColumns() bool {
	return r.Mode == ModeKeyMatch && len(r.SheetKeyColumnIndices) > 0
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
