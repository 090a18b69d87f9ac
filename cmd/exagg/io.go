package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/match"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
	"github.com/ukaji3/exagg-go/pkg/exagg/report"
	"github.com/ukaji3/exagg-go/pkg/exagg/store"
	"gopkg.in/yaml.v3"
)

// stdio names standard input as the workbook, or standard output as the output.
const stdio = "-"

func openWorkbook(path string) (*grid.File, error) {
	if path == stdio {
		return grid.OpenReader(stdin)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return grid.Open(path)
}

// outputFor returns the output path for input: the --output flag, or the input
// name with a _processed suffix and the same extension. A workbook read from stdin
// is written to stdout.
func outputFor(input string) string {
	if outputPath != "" {
		return outputPath
	}
	if input == stdio {
		return stdio
	}
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_processed" + ext
}

func saveWorkbook(ctx context.Context, wb *grid.File, input string) error {
	out := outputFor(input)
	if out == stdio {
		if jsonOut {
			return fmt.Errorf("%w: --json needs a file output when the workbook goes to stdout", exagg.ErrInvalidConfig)
		}
		if err := wb.Write(stdout); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := wb.SaveAs(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("path", out).Msg("workbook written")
	return nil
}

// readMapping parses a file of "term : key" lines; an empty path yields an empty map.
func readMapping(path string) (models.ValueToKeyMap, error) {
	if path == "" {
		return make(models.ValueToKeyMap), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	return match.ParseMapping(string(data)), nil
}

// readEdits reads a YAML mapping of original key to edited key.
func readEdits(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read edits: %w", err)
	}
	var edits map[string]string
	if err := yaml.Unmarshal(data, &edits); err != nil {
		return nil, fmt.Errorf("%w: edits file %s: %v", exagg.ErrInvalidConfig, path, err)
	}
	return edits, nil
}

func readGroups(path string) (report.Groups, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read groups: %w", err)
	}
	return report.ParseGroups(string(data))
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// logProgress logs every progress snapshot at debug level.
func logProgress(ctx context.Context) models.ProgressFunc {
	logger := zerolog.Ctx(ctx)
	return func(p models.Progress) error {
		logger.Debug().Str("stage", p.Stage).Str("sheet", p.SheetName).
			Int("current", p.CurrentSheet).Int("total", p.TotalSheets).Msg("progress")
		return nil
	}
}

// cancelled turns a cancellation into a clean exit: nothing is written and no
// error is reported.
func cancelled(ctx context.Context, err error) error {
	if exagg.IsCancelled(err) {
		zerolog.Ctx(ctx).Warn().Msg("cancelled, no output written")
		return nil
	}
	return err
}

// export saves the run to the configured store, if any.
func export(ctx context.Context, input string, run store.Run) error {
	if cfg.Store.Path == "" {
		return nil
	}
	s, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer s.Close()
	run.ID = runID
	run.Workbook = input
	_, err = s.Save(ctx, run)
	return err
}
