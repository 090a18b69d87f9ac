package mutate

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/match"
)

// MarkMatchingRows writes the marker into the configured column of every matching row
// and highlights it. matchingRows holds 0-indexed data rows per sheet, as recorded by a scan.
func MarkMatchingRows(ctx context.Context, wb grid.Workbook, matchingRows map[string][]int, cfg MarkConfig) (int, error) {
	cfg.Options = cfg.Options.Normalize()
	if cfg.Column.IsZero() {
		return 0, exagg.NewConfigError("", "marker column", exagg.ErrInvalidConfig)
	}
	marker := cfg.Marker
	if marker == "" {
		marker = DefaultMarker
	}

	names := make([]string, 0, len(matchingRows))
	for name := range matchingRows {
		names = append(names, name)
	}
	sort.Strings(names)
	sheets := selectSheets(ctx, wb, names, cfg.SummarySheet)

	marked := 0
	var skipper columnSkipper
	for _, name := range sheets {
		if err := exagg.CheckCancelled(ctx); err != nil {
			return marked, err
		}
		sd, ok, err := loadSheet(ctx, wb, name, cfg.HeaderRow)
		if err != nil {
			return marked, err
		}
		if !ok {
			continue
		}
		col, err := cfg.Column.ResolveOne(sd.headers)
		if err != nil {
			skipper.skip(ctx, name, err)
			continue
		}
		skipper.done++
		for _, idx := range matchingRows[name] {
			if err := writeOne(wb, name, sd.dataStart+idx, col, grid.Cell{Value: marker, Style: grid.StyleHighlight}); err != nil {
				return marked, err
			}
			marked++
		}
	}
	if err := skipper.result(); err != nil {
		return marked, err
	}
	zerolog.Ctx(ctx).Info().Int("rows", marked).Msg("matching rows marked")
	return marked, nil
}

// MarkDuplicates marks every row whose key columns repeat an earlier row of the same sheet.
// The marker is the template interpolated against the first occurrence, with {_row} being
// its worksheet row number. Rows whose key columns are all blank are ignored.
func MarkDuplicates(ctx context.Context, wb grid.Workbook, cfg DuplicateConfig) (int, error) {
	cfg.Options = cfg.Options.Normalize()
	if cfg.KeyColumns.IsZero() || cfg.MarkerColumn.IsZero() {
		return 0, exagg.NewConfigError("", "duplicate columns", exagg.ErrInvalidConfig)
	}
	tmpl := cfg.Template
	if tmpl == "" {
		tmpl = DefaultDuplicateTemplate
	}

	marked := 0
	var skipper columnSkipper
	for _, name := range selectSheets(ctx, wb, cfg.Sheets, cfg.SummarySheet) {
		if err := exagg.CheckCancelled(ctx); err != nil {
			return marked, err
		}
		sd, ok, err := loadSheet(ctx, wb, name, cfg.HeaderRow)
		if err != nil {
			return marked, err
		}
		if !ok {
			continue
		}
		n, err := markSheetDuplicates(wb, sd, cfg, tmpl)
		marked += n
		if err != nil {
			var ce *exagg.ConfigError
			if !errors.As(err, &ce) {
				return marked, err
			}
			skipper.skip(ctx, name, err)
			continue
		}
		skipper.done++
	}
	if err := skipper.result(); err != nil {
		return marked, err
	}
	zerolog.Ctx(ctx).Info().Int("rows", marked).Msg("duplicates marked")
	return marked, nil
}

func markSheetDuplicates(wb grid.Workbook, sd *sheetData, cfg DuplicateConfig, tmpl string) (int, error) {
	keyCols, err := cfg.KeyColumns.Resolve(sd.headers)
	if err != nil {
		return 0, err
	}
	markerCol, err := cfg.MarkerColumn.ResolveOne(sd.headers)
	if err != nil {
		return 0, err
	}

	first := make(map[string]int)
	marked := 0
	for i := sd.dataStart; i < len(sd.rows); i++ {
		row := sd.rows[i]
		key, ok := rowKey(row, keyCols)
		if !ok {
			continue
		}
		orig, seen := first[key]
		if !seen {
			first[key] = i
			continue
		}

		values := make([]string, len(sd.headers))
		for c := range sd.headers {
			values[c] = grid.Text(grid.At(sd.rows[orig], c))
		}
		text := match.Interpolate(tmpl, match.RowLookup(sd.headers, values, strconv.Itoa(orig+1)))
		if err := writeOne(wb, sd.name, i, markerCol, grid.Cell{
			Value: text,
			Style: styleIf(cfg.Highlight, grid.StyleHighlight),
		}); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// rowKey joins the normalized key cells; ok is false when all of them are blank.
func rowKey(row []any, cols []int) (string, bool) {
	parts := make([]string, len(cols))
	nonBlank := false
	for i, c := range cols {
		parts[i] = strings.ToLower(strings.TrimSpace(grid.Text(grid.At(row, c))))
		if parts[i] != "" {
			nonBlank = true
		}
	}
	return strings.Join(parts, "\x1f"), nonBlank
}
