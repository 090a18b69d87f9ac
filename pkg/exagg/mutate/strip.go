package mutate

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
)

// StripFormulas replaces the formulas of the given sheets (all sheets when empty)
// with their values, so later writes are not recalculated away. Report sheets are
// left alone.
func StripFormulas(ctx context.Context, wb grid.Workbook, sheets []string) (int, error) {
	logger := zerolog.Ctx(ctx)
	total := 0
	for _, name := range selectSheets(ctx, wb, sheets, "") {
		if err := exagg.CheckCancelled(ctx); err != nil {
			return total, err
		}
		n, err := wb.StripFormulas(name)
		if err != nil {
			return total, err
		}
		if n > 0 {
			logger.Debug().Str("sheet", name).Int("formulas", n).Msg("formulas stripped")
		}
		total += n
	}
	return total, nil
}
