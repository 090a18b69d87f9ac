// Package exagg provides spreadsheet aggregation and reconciliation over in-memory workbooks.
package exagg

import "strings"

// Report sheet names. Sheets whose names start with any of these are never scanned.
const (
	UpdateReportSheet      = "update_report"
	AggregationReportSheet = "aggregation_report"
	KeyMappingsSheet       = "key_mappings"
	BlankDetailsSheet      = "blank_details"
	GroupedReportSheet     = "grouped_report"
	DataSourceSheet        = "aggregation_data"
)

// DefaultBlankLabel is the reporting key used for blank cells.
const DefaultBlankLabel = "(blank)"

// DefaultMaxRowsPerSheet caps the data rows written to one audit report sheet.
const DefaultMaxRowsPerSheet = 50000

// Options holds settings shared by every stage of a run.
type Options struct {
	// HeaderRow is the 1-indexed header row; data rows follow it.
	HeaderRow int
	// BlankLabel is the reporting key for blank cells.
	BlankLabel string
	// MaxRowsPerSheet caps audit report sheets before they are chunked.
	MaxRowsPerSheet int
	// SummarySheet is the cross-sheet summary name; it is excluded from scans.
	SummarySheet string
	// ReorderReports moves generated report sheets to the front of the workbook.
	// If nil, defaults to true.
	ReorderReports *bool
}

// DefaultOptions returns default run options.
func DefaultOptions() Options {
	return Options{
		HeaderRow:       1,
		BlankLabel:      DefaultBlankLabel,
		MaxRowsPerSheet: DefaultMaxRowsPerSheet,
		SummarySheet:    AggregationReportSheet,
	}
}

// ShouldReorderReports returns whether report sheets are moved to the front.
func (o Options) ShouldReorderReports() bool {
	if o.ReorderReports != nil {
		return *o.ReorderReports
	}
	return true
}

// Normalize fills zero values with defaults.
func (o Options) Normalize() Options {
	d := DefaultOptions()
	if o.HeaderRow == 0 {
		o.HeaderRow = d.HeaderRow
	}
	if o.BlankLabel == "" {
		o.BlankLabel = d.BlankLabel
	}
	if o.MaxRowsPerSheet <= 0 {
		o.MaxRowsPerSheet = d.MaxRowsPerSheet
	}
	if o.SummarySheet == "" {
		o.SummarySheet = d.SummarySheet
	}
	return o
}

var reservedPrefixes = []string{
	UpdateReportSheet,
	AggregationReportSheet,
	KeyMappingsSheet,
	BlankDetailsSheet,
	GroupedReportSheet,
	DataSourceSheet,
}

// IsReportSheet reports whether name looks like a generated report sheet.
// extra holds additional configured report names (e.g. a custom summary sheet).
func IsReportSheet(name string, extra ...string) bool {
	lower := strings.ToLower(name)
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	for _, p := range extra {
		if p != "" && strings.HasPrefix(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
