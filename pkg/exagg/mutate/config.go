// Package mutate writes matching results back into the source workbook.
// Every function mutates the workbook in place and assumes exclusive access to it.
package mutate

import (
	"fmt"

	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/columns"
	"github.com/ukaji3/exagg-go/pkg/exagg/match"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

// DefaultMarker is written by MarkMatchingRows when no marker is configured.
const DefaultMarker = "Matched"

// DefaultDuplicateTemplate is the marker template used by MarkDuplicates.
const DefaultDuplicateTemplate = "Duplicate of row {_row}"

// UpdateConfig configures LookupAndUpdate.
type UpdateConfig struct {
	exagg.Options
	// Sheets to update; empty means every non-report sheet.
	Sheets []string
	// Map is the term to key mapping.
	Map models.ValueToKeyMap
	// SearchColumns lists the columns searched for terms.
	SearchColumns columns.Spec
	// Match is the term matching mode.
	Match match.Mode
	// TargetColumn receives the winning key.
	TargetColumn columns.Spec
	// UpdateOnlyBlanks skips rows whose target cell already has a value.
	UpdateOnlyBlanks bool
	// ValidationColumns enables paired-row validation when set: a row is updated only
	// if the row directly above or below has the same values in all of these columns.
	ValidationColumns columns.Spec
	// Highlight styles every updated cell.
	Highlight bool
}

func (c UpdateConfig) validate() error {
	if c.HeaderRow < 1 {
		return exagg.NewConfigError("", fmt.Sprintf("header row %d", c.HeaderRow), exagg.ErrHeaderRowOutOfBounds)
	}
	if c.SearchColumns.IsZero() {
		return exagg.NewConfigError("", "search columns", exagg.ErrInvalidConfig)
	}
	if c.TargetColumn.IsZero() {
		return exagg.NewConfigError("", "target column", exagg.ErrInvalidConfig)
	}
	return nil
}

// FillConfig configures FillKeyColumn.
type FillConfig struct {
	exagg.Options
	Sheets        []string
	Map           models.ValueToKeyMap
	SearchColumns columns.Spec
	Match         match.Mode
	// KeyColumn is filled where it is blank.
	KeyColumn columns.Spec
	Highlight bool
}

// MarkConfig configures MarkMatchingRows.
type MarkConfig struct {
	exagg.Options
	// Column receives the marker.
	Column columns.Spec
	// Marker is the value written; DefaultMarker when empty.
	Marker string
}

// DuplicateConfig configures MarkDuplicates.
type DuplicateConfig struct {
	exagg.Options
	Sheets []string
	// KeyColumns identify a row; rows repeating an earlier row's values are duplicates.
	KeyColumns columns.Spec
	// MarkerColumn receives the interpolated template.
	MarkerColumn columns.Spec
	// Template may reference {_row} and any {Header} of the first occurrence.
	Template string
	// Highlight styles every marked cell.
	Highlight bool
}
