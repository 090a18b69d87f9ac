package models

// Stages reported through progress callbacks.
const (
	StageDiscovering   = "discovering"
	StageScanning      = "scanning"
	StageBlankScan     = "blank_scan"
	StageUpdating      = "updating"
	StageFilling       = "filling"
	StageMarking       = "marking"
	StageStripping     = "stripping"
	StageDeduplicating = "deduplicating"
	StageReporting     = "reporting"
)

// Progress is a snapshot sent after each unit of work.
type Progress struct {
	// Stage names the running step.
	Stage string `json:"stage"`
	// SheetName is the sheet just processed.
	SheetName string `json:"sheet_name"`
	// CurrentSheet is 1-based.
	CurrentSheet int `json:"current_sheet"`
	// TotalSheets is the number of sheets in the batch.
	TotalSheets int `json:"total_sheets"`
	// CurrentTotals is a copy of the running total counts, when applicable.
	CurrentTotals map[string]int `json:"current_totals,omitempty"`
}

// ProgressFunc receives progress snapshots. Returning an error aborts the running
// operation; return exagg.ErrCancelled to signal a user cancel.
type ProgressFunc func(Progress) error
