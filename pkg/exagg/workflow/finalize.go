package workflow

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
	"github.com/ukaji3/exagg-go/pkg/exagg/mutate"
	"github.com/ukaji3/exagg-go/pkg/exagg/report"
)

// FinalizeOptions selects the mutators and reports run by Finalize.
// Nil sections are skipped. Sections whose Options are zero inherit Options.
type FinalizeOptions struct {
	exagg.Options

	// StripFormulas replaces formulas on the data sheets before anything is written.
	StripFormulas bool
	Fill          *mutate.FillConfig
	Update        *mutate.UpdateConfig
	// Mark writes a marker on the rows the scan matched.
	Mark       *mutate.MarkConfig
	Duplicates *mutate.DuplicateConfig

	// LiveFormulas makes the cross-tab and in-sheet counts formulas. It needs a
	// key column scan.
	LiveFormulas bool
	CrossTab     *report.CrossTabOptions
	InSheet      *report.InSheetOptions
	Groups       report.Groups
	Grouped      *report.GroupedOptions

	UpdateReport bool
	BlankDetails bool
	KeyMappings  bool
}

// Outcome summarizes a finalize run.
type Outcome struct {
	Result       *models.AggregationResult
	Updates      []models.UpdateRecord
	Marked       int
	Duplicates   int
	Stripped     int
	Placements   []report.Placement
	ReportSheets []string
}

func (o FinalizeOptions) inherit(sub exagg.Options) exagg.Options {
	if sub == (exagg.Options{}) {
		return o.Options
	}
	return sub
}

// Finalize applies the mutators and writes the reports for the edited result, then
// returns to Idle. On cancellation the session is reset and exagg.ErrCancelled is
// returned; the workbook may hold partial writes and should be discarded.
func (s *Session) Finalize(ctx context.Context, opts FinalizeOptions, progress models.ProgressFunc) (*Outcome, error) {
	if err := s.transition(Finalizing, Reviewing); err != nil {
		return nil, err
	}
	s.mu.Lock()
	res, mappings := s.edited, append([]models.KeyMapping(nil), s.mappings...)
	s.mu.Unlock()

	out, err := finalize(ctx, s.wb, res, mappings, opts.normalize(), progress)
	s.reset()
	if err != nil {
		if exagg.IsCancelled(err) {
			zerolog.Ctx(ctx).Info().Msg("finalize cancelled")
		}
		return nil, err
	}
	return out, nil
}

func (o FinalizeOptions) normalize() FinalizeOptions {
	o.Options = o.Options.Normalize()
	return o
}

func finalize(ctx context.Context, wb grid.Workbook, res *models.AggregationResult, mappings []models.KeyMapping, opts FinalizeOptions, progress models.ProgressFunc) (*Outcome, error) {
	logger := zerolog.Ctx(ctx)
	out := &Outcome{Result: res}
	var source report.Source = report.Static{}
	if opts.LiveFormulas {
		live, err := report.LiveFrom(res)
		if err != nil {
			return nil, err
		}
		source = live
	}

	var err error
	if opts.StripFormulas {
		if out.Stripped, err = mutate.StripFormulas(ctx, wb, res.ProcessedSheetNames); err != nil {
			return nil, fmt.Errorf("strip formulas: %w", err)
		}
	}
	if opts.Fill != nil {
		cfg := *opts.Fill
		cfg.Options = opts.inherit(cfg.Options)
		filled, err := mutate.FillKeyColumn(ctx, wb, cfg, progress)
		if err != nil {
			return nil, fmt.Errorf("fill key column: %w", err)
		}
		out.Updates = append(out.Updates, filled...)
	}
	if opts.Update != nil {
		cfg := *opts.Update
		cfg.Options = opts.inherit(cfg.Options)
		updated, err := mutate.LookupAndUpdate(ctx, wb, cfg, progress)
		if err != nil {
			return nil, fmt.Errorf("lookup and update: %w", err)
		}
		out.Updates = append(out.Updates, updated...)
	}
	if opts.Mark != nil {
		cfg := *opts.Mark
		cfg.Options = opts.inherit(cfg.Options)
		if out.Marked, err = mutate.MarkMatchingRows(ctx, wb, res.MatchingRows, cfg); err != nil {
			return nil, fmt.Errorf("mark rows: %w", err)
		}
	}
	if opts.Duplicates != nil {
		cfg := *opts.Duplicates
		cfg.Options = opts.inherit(cfg.Options)
		if out.Duplicates, err = mutate.MarkDuplicates(ctx, wb, cfg); err != nil {
			return nil, fmt.Errorf("mark duplicates: %w", err)
		}
	}

	steps := reportSteps(res, mappings, out, opts, source)
	for i, step := range steps {
		if err := exagg.CheckCancelled(ctx); err != nil {
			return nil, err
		}
		names, err := step.run(ctx, wb)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
		out.ReportSheets = append(out.ReportSheets, names...)
		if progress != nil {
			if err := progress(models.Progress{Stage: models.StageReporting, SheetName: step.name, CurrentSheet: i + 1, TotalSheets: len(steps)}); err != nil {
				return nil, fmt.Errorf("progress: %w", err)
			}
		}
	}

	if err := report.Arrange(wb, out.ReportSheets, opts.Options); err != nil {
		return nil, fmt.Errorf("arrange reports: %w", err)
	}
	logger.Info().Int("updates", len(out.Updates)).Int("marked", out.Marked).Int("duplicates", out.Duplicates).
		Strs("reports", out.ReportSheets).Msg("finalize finished")
	return out, nil
}

type reportStep struct {
	name string
	run  func(context.Context, grid.Workbook) ([]string, error)
}

// reportSteps lists the enabled reports in the order their sheets are arranged.
func reportSteps(res *models.AggregationResult, mappings []models.KeyMapping, out *Outcome, opts FinalizeOptions, source report.Source) []reportStep {
	var steps []reportStep
	if opts.CrossTab != nil {
		cfg := *opts.CrossTab
		cfg.Options = opts.inherit(cfg.Options)
		cfg.Source = source
		steps = append(steps, reportStep{"cross-tab", func(ctx context.Context, wb grid.Workbook) ([]string, error) {
			return report.CrossTab(ctx, wb, res, cfg)
		}})
	}
	if opts.Grouped != nil {
		cfg := *opts.Grouped
		cfg.Options = opts.inherit(cfg.Options)
		steps = append(steps, reportStep{"grouped report", func(ctx context.Context, wb grid.Workbook) ([]string, error) {
			return report.GroupedReport(ctx, wb, res, opts.Groups, cfg)
		}})
	}
	if opts.UpdateReport {
		steps = append(steps, reportStep{"update report", func(ctx context.Context, wb grid.Workbook) ([]string, error) {
			return report.UpdateReport(ctx, wb, out.Updates, opts.Options)
		}})
	}
	if opts.KeyMappings {
		steps = append(steps, reportStep{"key mappings", func(ctx context.Context, wb grid.Workbook) ([]string, error) {
			return report.KeyMappings(ctx, wb, mappings, opts.Options)
		}})
	}
	if opts.BlankDetails {
		steps = append(steps, reportStep{"blank details", func(ctx context.Context, wb grid.Workbook) ([]string, error) {
			return report.BlankDetails(ctx, wb, res.BlankDetails, opts.Options)
		}})
	}
	if opts.InSheet != nil {
		cfg := *opts.InSheet
		cfg.Options = opts.inherit(cfg.Options)
		cfg.Source = source
		steps = append(steps, reportStep{"in-sheet summary", func(ctx context.Context, wb grid.Workbook) ([]string, error) {
			placed, err := report.InSheetSummary(ctx, wb, res, cfg)
			out.Placements = placed
			return nil, err
		}})
	}
	return steps
}
