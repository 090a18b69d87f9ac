package mutate

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/match"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

// LookupAndUpdate rescans the sheets with the row winner rules of the matcher and
// writes each row's winning key into the target column. It returns one record per
// written cell.
func LookupAndUpdate(ctx context.Context, wb grid.Workbook, cfg UpdateConfig, progress models.ProgressFunc) ([]models.UpdateRecord, error) {
	return update(ctx, wb, cfg, models.StageUpdating, progress)
}

// FillKeyColumn writes the winning key into the key column of every row where it is blank.
func FillKeyColumn(ctx context.Context, wb grid.Workbook, cfg FillConfig, progress models.ProgressFunc) ([]models.UpdateRecord, error) {
	if cfg.KeyColumn.IsZero() {
		return nil, exagg.NewConfigError("", "key column", exagg.ErrInvalidConfig)
	}
	return update(ctx, wb, UpdateConfig{
		Options:          cfg.Options,
		Sheets:           cfg.Sheets,
		Map:              cfg.Map,
		SearchColumns:    cfg.SearchColumns,
		Match:            cfg.Match,
		TargetColumn:     cfg.KeyColumn,
		UpdateOnlyBlanks: true,
		Highlight:        cfg.Highlight,
	}, models.StageFilling, progress)
}

func update(ctx context.Context, wb grid.Workbook, cfg UpdateConfig, stage string, progress models.ProgressFunc) ([]models.UpdateRecord, error) {
	cfg.Options = cfg.Options.Normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	mode := cfg.Match
	if mode == "" {
		mode = match.ModeWhole
	}
	matcher := match.NewRowMatcher(cfg.Map, mode)
	logger := zerolog.Ctx(ctx)

	sheets := selectSheets(ctx, wb, cfg.Sheets, cfg.SummarySheet)
	records := []models.UpdateRecord{}
	var skipper columnSkipper

	for i, name := range sheets {
		if err := exagg.CheckCancelled(ctx); err != nil {
			return nil, err
		}
		sd, ok, err := loadSheet(ctx, wb, name, cfg.HeaderRow)
		if err != nil {
			return nil, err
		}
		if ok {
			recs, err := updateSheet(wb, sd, cfg, matcher)
			if err != nil {
				var ce *exagg.ConfigError
				if !errors.As(err, &ce) {
					return nil, err
				}
				skipper.skip(ctx, name, err)
			} else {
				skipper.done++
				records = append(records, recs...)
				logger.Debug().Str("sheet", name).Int("updated", len(recs)).Msg(stage + " finished")
			}
		}
		if err := report(progress, stage, name, i+1, len(sheets)); err != nil {
			return nil, err
		}
	}
	if err := skipper.result(); err != nil {
		return nil, err
	}
	logger.Info().Int("cells", len(records)).Msg(stage + " complete")
	return records, nil
}

func updateSheet(wb grid.Workbook, sd *sheetData, cfg UpdateConfig, matcher *match.RowMatcher) ([]models.UpdateRecord, error) {
	search, err := cfg.SearchColumns.Resolve(sd.headers)
	if err != nil {
		return nil, err
	}
	target, err := cfg.TargetColumn.ResolveOne(sd.headers)
	if err != nil {
		return nil, err
	}
	var validation []int
	if !cfg.ValidationColumns.IsZero() {
		if validation, err = cfg.ValidationColumns.Resolve(sd.headers); err != nil {
			return nil, err
		}
	}

	var records []models.UpdateRecord
	for i := sd.dataStart; i < len(sd.rows); i++ {
		row := sd.rows[i]
		if grid.RowIsEmpty(row) {
			continue
		}
		current := grid.Text(grid.At(row, target))
		if cfg.UpdateOnlyBlanks && !grid.IsBlank(current) {
			continue
		}
		hit, ok := matcher.Match(row, search)
		if !ok {
			continue
		}
		if validation != nil && !pairedRow(sd, i, validation) {
			continue
		}

		if err := writeOne(wb, sd.name, i, target, grid.Cell{
			Value: hit.Key,
			Style: styleIf(cfg.Highlight, grid.StyleUpdated),
		}); err != nil {
			return nil, err
		}
		records = append(records, models.UpdateRecord{
			Sheet:         sd.name,
			Row:           i + 1,
			Column:        target,
			OriginalValue: current,
			NewValue:      hit.Key,
			Key:           hit.Key,
			Term:          hit.Term,
			TriggerColumn: headerAt(sd.headers, hit.Column),
			TriggerValue:  hit.Text,
		})
	}
	return records, nil
}

// pairedRow reports whether the data row directly above or below row i has equal
// values (trimmed, case-insensitive) in every validation column. Each row is judged
// on its own neighbours, so every row of a run of three or more equal rows passes.
// Entirely empty neighbours never pair.
func pairedRow(sd *sheetData, i int, cols []int) bool {
	for _, j := range []int{i - 1, i + 1} {
		if j < sd.dataStart || j >= len(sd.rows) || grid.RowIsEmpty(sd.rows[j]) {
			continue
		}
		if sameValues(sd.rows[i], sd.rows[j], cols) {
			return true
		}
	}
	return false
}

func sameValues(a, b []any, cols []int) bool {
	for _, c := range cols {
		x := strings.TrimSpace(grid.Text(grid.At(a, c)))
		y := strings.TrimSpace(grid.Text(grid.At(b, c)))
		if !strings.EqualFold(x, y) {
			return false
		}
	}
	return true
}

func headerAt(headers []string, col int) string {
	if col >= 0 && col < len(headers) {
		return headers[col]
	}
	return grid.ColumnName(col)
}
