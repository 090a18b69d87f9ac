// Package aggregate scans workbook sheets and tallies reporting keys.
package aggregate

import (
	"fmt"

	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/columns"
	"github.com/ukaji3/exagg-go/pkg/exagg/match"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

// Mode selects how rows are turned into keys. It is either ValueMatch or KeyMatch.
type Mode interface {
	name() string
}

// ValueMatch searches columns for mapped terms.
type ValueMatch struct {
	// SearchColumns lists the columns searched for terms.
	SearchColumns columns.Spec
	// Match is the term matching mode.
	Match match.Mode
	// ConditionalColumn, when set, skips rows whose cell in it is non-blank.
	ConditionalColumn columns.Spec
}

func (ValueMatch) name() string { return models.ModeValueMatch }

// KeyMatch reads one key column and looks its text up in the mapping.
type KeyMatch struct {
	// KeyColumn names the column holding keys.
	KeyColumn columns.Spec
	// DiscoverNewKeys adds every distinct value of the key column as a self-mapped key
	// before counting starts.
	DiscoverNewKeys bool
}

func (KeyMatch) name() string { return models.ModeKeyMatch }

// BlankMode selects how blank cells in the tracked column are counted.
type BlankMode string

const (
	// BlankRowAware counts a blank only for rows the match loop evaluates.
	BlankRowAware BlankMode = "row_aware"
	// BlankFullColumn scans every non-empty row of the sheet independently of the match loop.
	BlankFullColumn BlankMode = "full_column"
)

// ParseBlankMode validates a blank mode name.
func ParseBlankMode(s string) (BlankMode, error) {
	switch m := BlankMode(s); m {
	case BlankRowAware, BlankFullColumn:
		return m, nil
	case "":
		return BlankRowAware, nil
	}
	return "", fmt.Errorf("%w: blank mode %q (must be row_aware or full_column)", exagg.ErrInvalidConfig, s)
}

// BlankTracking configures blank detection.
type BlankTracking struct {
	// Column is the tracked column.
	Column columns.Spec
	// Mode is the counting mode.
	Mode BlankMode
	// CaptureDetails records a snapshot of every row with a blank.
	CaptureDetails bool
}

// Config configures one scan.
type Config struct {
	exagg.Options
	// Sheets to scan; empty means every sheet.
	Sheets []string
	// Map is the term to key mapping.
	Map models.ValueToKeyMap
	// Mode is ValueMatch or KeyMatch.
	Mode Mode
	// Blanks enables blank tracking when non-nil.
	Blanks *BlankTracking
	// TitleCell is an A1 reference holding each sheet's display title.
	TitleCell string
}

func (c Config) validate() error {
	if c.HeaderRow < 1 {
		return exagg.NewConfigError("", fmt.Sprintf("header row %d", c.HeaderRow), exagg.ErrHeaderRowOutOfBounds)
	}

	switch m := c.Mode.(type) {
	case ValueMatch:
		if m.SearchColumns.IsZero() {
			return exagg.NewConfigError("", "search columns", exagg.ErrInvalidConfig)
		}
	case KeyMatch:
		if m.KeyColumn.IsZero() {
			return exagg.NewConfigError("", "key column", exagg.ErrInvalidConfig)
		}
	case nil:
		return exagg.NewConfigError("", "mode", exagg.ErrInvalidConfig)
	}

	if c.Blanks != nil && c.Blanks.Column.IsZero() {
		return exagg.NewConfigError("", "blank column", exagg.ErrInvalidConfig)
	}
	return nil
}
