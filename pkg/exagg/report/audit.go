package report

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
)

// UpdateReport writes one row per updated cell, linking back to the cell.
func UpdateReport(ctx context.Context, wb grid.Workbook, records []models.UpdateRecord, opts exagg.Options) ([]string, error) {
	opts = opts.Normalize()
	if err := exagg.CheckCancelled(ctx); err != nil {
		return nil, err
	}
	rows := make([][]grid.Cell, len(records))
	for i, r := range records {
		rows[i] = []grid.Cell{
			{Value: r.Sheet},
			{Value: grid.CellName(r.Row-1, r.Column), Link: grid.Location(r.Sheet, r.Row-1, r.Column)},
			{Value: r.OriginalValue},
			{Value: r.NewValue},
			{Value: r.Key},
			{Value: r.Term},
			{Value: r.TriggerColumn},
			{Value: r.TriggerValue},
		}
	}
	names, err := writeChunked(wb, exagg.UpdateReportSheet,
		[]string{"Sheet", "Cell", "Original Value", "New Value", "Key", "Term", "Trigger Column", "Trigger Value"},
		rows, opts.MaxRowsPerSheet)
	if err != nil {
		return names, err
	}
	zerolog.Ctx(ctx).Info().Int("rows", len(records)).Strs("sheets", names).Msg("update report written")
	return names, nil
}

// BlankDetails writes one row per blank found, with a snapshot of the rest of its row.
func BlankDetails(ctx context.Context, wb grid.Workbook, details []models.BlankDetail, opts exagg.Options) ([]string, error) {
	opts = opts.Normalize()
	if err := exagg.CheckCancelled(ctx); err != nil {
		return nil, err
	}
	rows := make([][]grid.Cell, len(details))
	for i, d := range details {
		var column string
		if d.Column < len(d.Headers) {
			column = d.Headers[d.Column]
		}
		rows[i] = []grid.Cell{
			{Value: d.Sheet},
			{Value: grid.CellName(d.Row-1, d.Column), Link: grid.Location(d.Sheet, d.Row-1, d.Column)},
			{Value: column},
			{Value: snapshot(d)},
		}
	}
	names, err := writeChunked(wb, exagg.BlankDetailsSheet, []string{"Sheet", "Cell", "Column", "Row Values"}, rows, opts.MaxRowsPerSheet)
	if err != nil {
		return names, err
	}
	zerolog.Ctx(ctx).Info().Int("rows", len(details)).Strs("sheets", names).Msg("blank details written")
	return names, nil
}

// snapshot renders the non-blank cells of a row as "Header: value" pairs.
func snapshot(d models.BlankDetail) string {
	var parts []string
	for i, v := range d.Values {
		if strings.TrimSpace(v) == "" || i == d.Column {
			continue
		}
		h := ""
		if i < len(d.Headers) {
			h = d.Headers[i]
		}
		parts = append(parts, h+": "+v)
	}
	return strings.Join(parts, "; ")
}

// KeyMappings writes the term to key audit, usually built by resolve.Mappings.
func KeyMappings(ctx context.Context, wb grid.Workbook, mappings []models.KeyMapping, opts exagg.Options) ([]string, error) {
	opts = opts.Normalize()
	if err := exagg.CheckCancelled(ctx); err != nil {
		return nil, err
	}
	rows := make([][]grid.Cell, len(mappings))
	for i, m := range mappings {
		style := grid.StyleNone
		if m.OriginalKey != m.ReportingKey {
			style = grid.StyleUpdated
		}
		rows[i] = []grid.Cell{
			{Value: m.Term},
			{Value: m.OriginalKey},
			{Value: m.ReportingKey, Style: style},
			{Value: m.Count},
		}
	}
	names, err := writeChunked(wb, exagg.KeyMappingsSheet, []string{"Term", "Original Key", "Reporting Key", "Count"}, rows, opts.MaxRowsPerSheet)
	if err != nil {
		return names, err
	}
	zerolog.Ctx(ctx).Info().Int("rows", len(mappings)).Strs("sheets", names).Msg("key mappings written")
	return names, nil
}
