package models

// UpdateRecord is the audit entry for one cell written by a mutator.
type UpdateRecord struct {
	// Sheet is the sheet name.
	Sheet string `json:"sheet"`
	// Row is the 1-based worksheet row.
	Row int `json:"row"`
	// Column is the 0-indexed column written.
	Column int `json:"column"`
	// OriginalValue is the cell text before the update.
	OriginalValue string `json:"original_value"`
	// NewValue is the value written.
	NewValue string `json:"new_value"`
	// Key is the winning reporting key.
	Key string `json:"key"`
	// Term is the search term that produced the winning score.
	Term string `json:"term"`
	// TriggerColumn is the header of the column whose text matched.
	TriggerColumn string `json:"trigger_column"`
	// TriggerValue is the text of the matching cell.
	TriggerValue string `json:"trigger_value"`
}

// KeyMapping is one row of the key mapping audit.
type KeyMapping struct {
	// Term is the normalized search term.
	Term string `json:"term"`
	// OriginalKey is the key the term mapped to at scan time.
	OriginalKey string `json:"original_key"`
	// ReportingKey is the key after user edits.
	ReportingKey string `json:"reporting_key"`
	// Count is the total count of ReportingKey.
	Count int `json:"count"`
}
