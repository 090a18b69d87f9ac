package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/match"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

// blankScanInterval is how many rows a full-column blank scan handles between
// cancellation checks and progress reports.
const blankScanInterval = 5000

// sheetScan holds the resolved layout of one sheet.
type sheetScan struct {
	name      string
	rows      [][]any
	headers   []string
	dataStart int
	search    []int
	cond      int
	keyCol    int
	blankCol  int
}

type engine struct {
	cfg      Config
	res      *models.AggregationResult
	logger   *zerolog.Logger
	matcher  *match.RowMatcher
	progress models.ProgressFunc

	titleRow, titleCol int
	colErr             error
}

// Run scans the configured sheets of r and returns a new AggregationResult.
// Per-sheet problems (missing sheet, header row past the end, unresolvable column)
// are logged and the sheet is skipped; if no sheet could be scanned because of a
// column problem, that problem is returned.
func Run(ctx context.Context, r grid.Reader, cfg Config, progress models.ProgressFunc) (*models.AggregationResult, error) {
	cfg.Options = cfg.Options.Normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Map == nil {
		cfg.Map = make(models.ValueToKeyMap)
	}

	e := &engine{
		cfg:      cfg,
		res:      models.NewAggregationResult(cfg.Mode.name(), cfg.HeaderRow, cfg.BlankLabel),
		logger:   zerolog.Ctx(ctx),
		progress: progress,
		titleRow: -1,
	}
	e.res.ValueToKeyMap = cfg.Map.Clone()

	if cfg.TitleCell != "" {
		row, col, err := grid.ParseCell(cfg.TitleCell)
		if err != nil {
			return nil, exagg.NewConfigError("", cfg.TitleCell, err)
		}
		e.titleRow, e.titleCol = row, col
	}
	if cfg.Blanks != nil {
		e.res.BlankCounts = &models.BlankCounts{PerSheet: make(map[string]int)}
	}

	sheets := e.selectSheets(r)

	if km, ok := cfg.Mode.(KeyMatch); ok {
		e.res.SheetKeyColumnIndices = make(models.KeyColumnIndex)
		if km.DiscoverNewKeys {
			if err := e.discover(ctx, r, sheets); err != nil {
				return nil, err
			}
		}
	}
	if vm, ok := cfg.Mode.(ValueMatch); ok {
		mode := vm.Match
		if mode == "" {
			mode = match.ModeWhole
		}
		e.matcher = match.NewRowMatcher(e.res.ValueToKeyMap, mode)
	}

	for i, name := range sheets {
		if err := exagg.CheckCancelled(ctx); err != nil {
			return nil, err
		}

		sc, ok, err := e.prepare(r, name)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := e.scanSheet(ctx, sc, i, len(sheets)); err != nil {
				return nil, err
			}
		}

		if err := e.report(models.StageScanning, name, i+1, len(sheets)); err != nil {
			return nil, err
		}
	}

	if len(e.res.ProcessedSheetNames) == 0 && e.colErr != nil {
		return nil, e.colErr
	}

	e.res.ReportingKeys = e.reportingKeys()
	e.logger.Info().
		Int("sheets", len(e.res.ProcessedSheetNames)).
		Int("keys", len(e.res.ReportingKeys)).
		Int("blanks", e.res.BlankTotal()).
		Msg("aggregation finished")
	return e.res, nil
}

// selectSheets filters the requested sheets down to existing, non-report sheets.
func (e *engine) selectSheets(r grid.Reader) []string {
	existing := make(map[string]bool)
	all := r.SheetNames()
	for _, s := range all {
		existing[s] = true
	}

	requested := e.cfg.Sheets
	if len(requested) == 0 {
		requested = all
	}

	var sheets []string
	seen := make(map[string]bool)
	for _, s := range requested {
		if seen[s] {
			continue
		}
		seen[s] = true
		if exagg.IsReportSheet(s, e.cfg.SummarySheet) {
			e.logger.Debug().Str("sheet", s).Msg("skipping report sheet")
			continue
		}
		if !existing[s] {
			e.logger.Warn().Str("sheet", s).Msg("sheet not found, skipping")
			continue
		}
		sheets = append(sheets, s)
	}
	return sheets
}

// prepare reads a sheet and resolves its columns. ok is false when the sheet is skipped.
func (e *engine) prepare(r grid.Reader, name string) (*sheetScan, bool, error) {
	rows, err := r.Rows(name)
	if err != nil {
		return nil, false, err
	}
	if e.cfg.HeaderRow > len(rows) {
		e.logger.Warn().Str("sheet", name).Int("headerRow", e.cfg.HeaderRow).Int("rows", len(rows)).
			Msg("header row beyond sheet bounds, skipping")
		return nil, false, nil
	}

	sc := &sheetScan{
		name:      name,
		rows:      rows,
		headers:   grid.Headers(rows[e.cfg.HeaderRow-1]),
		dataStart: e.cfg.HeaderRow,
		cond:      -1,
		keyCol:    -1,
		blankCol:  -1,
	}

	if err := e.resolveColumns(sc); err != nil {
		var ce *exagg.ConfigError
		if errors.As(err, &ce) {
			ce.SheetName = name
		}
		if e.colErr == nil {
			e.colErr = err
		}
		e.logger.Warn().Err(err).Str("sheet", name).Msg("column not resolvable, skipping sheet")
		return nil, false, nil
	}
	return sc, true, nil
}

func (e *engine) resolveColumns(sc *sheetScan) error {
	var err error
	switch m := e.cfg.Mode.(type) {
	case ValueMatch:
		if sc.search, err = m.SearchColumns.Resolve(sc.headers); err != nil {
			return err
		}
		if !m.ConditionalColumn.IsZero() {
			if sc.cond, err = m.ConditionalColumn.ResolveOne(sc.headers); err != nil {
				return err
			}
		}
	case KeyMatch:
		if sc.keyCol, err = m.KeyColumn.ResolveOne(sc.headers); err != nil {
			return err
		}
	}
	if e.cfg.Blanks != nil {
		if sc.blankCol, err = e.cfg.Blanks.Column.ResolveOne(sc.headers); err != nil {
			return err
		}
	}
	return nil
}

// discover adds every distinct key column value across all sheets as a self-mapped key.
func (e *engine) discover(ctx context.Context, r grid.Reader, sheets []string) error {
	km := e.cfg.Mode.(KeyMatch)
	added := 0
	for i, name := range sheets {
		if err := exagg.CheckCancelled(ctx); err != nil {
			return err
		}
		rows, err := r.Rows(name)
		if err != nil {
			return err
		}
		if e.cfg.HeaderRow <= len(rows) {
			headers := grid.Headers(rows[e.cfg.HeaderRow-1])
			col, err := km.KeyColumn.ResolveOne(headers)
			if err == nil {
				for _, row := range rows[e.cfg.HeaderRow:] {
					text := grid.Text(grid.At(row, col))
					if !grid.IsBlank(text) && e.res.ValueToKeyMap.Add(text, text) {
						added++
					}
				}
			}
		}
		if err := e.report(models.StageDiscovering, name, i+1, len(sheets)); err != nil {
			return err
		}
	}
	e.logger.Debug().Int("added", added).Msg("key discovery finished")
	return nil
}

func (e *engine) scanSheet(ctx context.Context, sc *sheetScan, index, total int) error {
	res := e.res
	res.ProcessedSheetNames = append(res.ProcessedSheetNames, sc.name)
	res.PerSheetCounts[sc.name] = make(map[string]int)
	res.SheetTitles[sc.name] = e.title(sc)
	res.SheetExtents[sc.name] = models.Extent{FirstRow: sc.dataStart + 1, LastRow: len(sc.rows)}
	if sc.keyCol >= 0 {
		res.SheetKeyColumnIndices[sc.name] = sc.keyCol
	}
	if res.BlankCounts != nil {
		res.BlankCounts.PerSheet[sc.name] = 0
	}

	rowAware := e.cfg.Blanks != nil && e.cfg.Blanks.Mode != BlankFullColumn
	matching := []int{}

	for i := sc.dataStart; i < len(sc.rows); i++ {
		row := sc.rows[i]
		if grid.RowIsEmpty(row) {
			continue
		}

		if sc.cond >= 0 && !grid.IsBlank(grid.At(row, sc.cond)) {
			continue
		}

		if rowAware && grid.IsBlank(grid.At(row, sc.blankCol)) {
			e.countBlank(sc, i)
		}

		key, ok := e.matchRow(sc, row)
		if !ok {
			continue
		}
		res.TotalCounts[key]++
		res.PerSheetCounts[sc.name][key]++
		matching = append(matching, i-sc.dataStart)
	}
	res.MatchingRows[sc.name] = matching

	if e.cfg.Blanks != nil && e.cfg.Blanks.Mode == BlankFullColumn {
		if err := e.scanBlankColumn(ctx, sc, index, total); err != nil {
			return err
		}
	}

	e.logger.Debug().Str("sheet", sc.name).Int("matches", len(matching)).Msg("sheet scanned")
	return nil
}

func (e *engine) matchRow(sc *sheetScan, row []any) (string, bool) {
	if e.matcher != nil {
		hit, ok := e.matcher.Match(row, sc.search)
		return hit.Key, ok
	}
	text := grid.Text(grid.At(row, sc.keyCol))
	if grid.IsBlank(text) {
		return "", false
	}
	return e.res.ValueToKeyMap.Lookup(text)
}

// scanBlankColumn counts blanks over every row independently of the match loop.
func (e *engine) scanBlankColumn(ctx context.Context, sc *sheetScan, index, total int) error {
	for i := sc.dataStart; i < len(sc.rows); i++ {
		if n := i - sc.dataStart; n > 0 && n%blankScanInterval == 0 {
			if err := exagg.CheckCancelled(ctx); err != nil {
				return err
			}
			if err := e.report(models.StageBlankScan, sc.name, index+1, total); err != nil {
				return err
			}
		}
		row := sc.rows[i]
		if grid.RowIsEmpty(row) {
			continue
		}
		if grid.IsBlank(grid.At(row, sc.blankCol)) {
			e.countBlank(sc, i)
		}
	}
	return nil
}

func (e *engine) countBlank(sc *sheetScan, rowIdx int) {
	res := e.res
	label := res.BlankLabel
	res.BlankCounts.Total++
	res.BlankCounts.PerSheet[sc.name]++
	res.TotalCounts[label]++
	res.PerSheetCounts[sc.name][label]++

	if !e.cfg.Blanks.CaptureDetails {
		return
	}
	row := sc.rows[rowIdx]
	values := make([]string, len(sc.headers))
	for c := range sc.headers {
		values[c] = grid.Text(grid.At(row, c))
	}
	res.BlankDetails = append(res.BlankDetails, models.BlankDetail{
		Sheet:   sc.name,
		Row:     rowIdx + 1,
		Column:  sc.blankCol,
		Headers: sc.headers,
		Values:  values,
	})
}

func (e *engine) title(sc *sheetScan) string {
	if e.titleRow < 0 || e.titleRow >= len(sc.rows) {
		return sc.name
	}
	if t := grid.Text(grid.At(sc.rows[e.titleRow], e.titleCol)); !grid.IsBlank(t) {
		return t
	}
	return sc.name
}

// reportingKeys returns the keys with at least one real match, excluding pure blank tallies.
func (e *engine) reportingKeys() []string {
	var keys []string
	for k, n := range e.res.TotalCounts {
		if k == e.res.BlankLabel {
			n -= e.res.BlankTotal()
		}
		if n > 0 {
			keys = append(keys, k)
		}
	}
	models.SortKeys(keys)
	return keys
}

func (e *engine) report(stage, sheet string, current, total int) error {
	if e.progress == nil {
		return nil
	}
	totals := make(map[string]int, len(e.res.TotalCounts))
	for k, v := range e.res.TotalCounts {
		totals[k] = v
	}
	err := e.progress(models.Progress{
		Stage:         stage,
		SheetName:     sheet,
		CurrentSheet:  current,
		TotalSheets:   total,
		CurrentTotals: totals,
	})
	if err != nil {
		return fmt.Errorf("%s %q: %w", stage, sheet, err)
	}
	return nil
}
