package mutate

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

// sheetData is a sheet snapshot taken before any write.
type sheetData struct {
	name      string
	rows      [][]any
	headers   []string
	dataStart int
}

// selectSheets returns the existing, non-report sheets among requested (all when empty).
func selectSheets(ctx context.Context, wb grid.Reader, requested []string, summary string) []string {
	logger := zerolog.Ctx(ctx)
	all := wb.SheetNames()
	existing := make(map[string]bool, len(all))
	for _, s := range all {
		existing[s] = true
	}
	if len(requested) == 0 {
		requested = all
	}

	var sheets []string
	for _, s := range requested {
		switch {
		case exagg.IsReportSheet(s, summary):
			continue
		case !existing[s]:
			logger.Warn().Str("sheet", s).Msg("sheet not found, skipping")
			continue
		}
		sheets = append(sheets, s)
	}
	return sheets
}

// loadSheet reads a sheet; ok is false when the header row lies past its end.
func loadSheet(ctx context.Context, wb grid.Reader, name string, headerRow int) (*sheetData, bool, error) {
	rows, err := wb.Rows(name)
	if err != nil {
		return nil, false, err
	}
	if headerRow > len(rows) {
		zerolog.Ctx(ctx).Warn().Str("sheet", name).Int("headerRow", headerRow).
			Msg("header row beyond sheet bounds, skipping")
		return nil, false, nil
	}
	return &sheetData{
		name:      name,
		rows:      rows,
		headers:   grid.Headers(rows[headerRow-1]),
		dataStart: headerRow,
	}, true, nil
}

// columnSkipper absorbs per-sheet column errors and remembers the first one.
type columnSkipper struct {
	first error
	done  int
}

func (s *columnSkipper) skip(ctx context.Context, sheet string, err error) {
	var ce *exagg.ConfigError
	if errors.As(err, &ce) {
		ce.SheetName = sheet
	}
	if s.first == nil {
		s.first = err
	}
	zerolog.Ctx(ctx).Warn().Err(err).Str("sheet", sheet).Msg("column not resolvable, skipping sheet")
}

// result returns the first column error when no sheet could be processed.
func (s *columnSkipper) result() error {
	if s.done == 0 && s.first != nil {
		return s.first
	}
	return nil
}

func report(progress models.ProgressFunc, stage, sheet string, current, total int) error {
	if progress == nil {
		return nil
	}
	if err := progress(models.Progress{Stage: stage, SheetName: sheet, CurrentSheet: current, TotalSheets: total}); err != nil {
		return fmt.Errorf("%s %q: %w", stage, sheet, err)
	}
	return nil
}

func styleIf(on bool, s grid.Style) grid.Style {
	if on {
		return s
	}
	return grid.StyleNone
}

func writeOne(wb grid.Writer, sheet string, row, col int, c grid.Cell) error {
	return wb.WriteCells(sheet, row, col, [][]grid.Cell{{c}})
}
