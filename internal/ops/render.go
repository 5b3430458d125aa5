package ops

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/hpungsan/libreplot/internal/chart"
	"github.com/hpungsan/libreplot/internal/config"
	"github.com/hpungsan/libreplot/internal/errors"
	"github.com/hpungsan/libreplot/internal/timeline"
)

// RenderInput contains parameters for the Render operation.
type RenderInput struct {
	Path      string   // required, export file
	OutputDir string   // optional, default: cfg.OutputDir
	Days      []string // optional YYYY-MM-DD filter
}

// RenderFailure describes one day whose chart could not be written.
type RenderFailure struct {
	Day   string `json:"day"`
	Error string `json:"error"`
}

// RenderOutput contains the result of the Render operation.
type RenderOutput struct {
	Written []string        `json:"written"`
	Failed  []RenderFailure `json:"failed,omitempty"`
	Lines   int             `json:"lines"`
	Skipped int             `json:"skipped_lines"`
}

// Render writes one chart per day of the export at input.Path.
func Render(ctx context.Context, cfg *config.Config, log *zap.Logger, input RenderInput) (*RenderOutput, error) {
	ds, err := Load(cfg, log, input.Path)
	if err != nil {
		return nil, err
	}

	out, err := RenderDays(ctx, cfg, log, ds.Days, input.OutputDir, input.Days)
	if err != nil {
		return nil, err
	}
	out.Lines = ds.Lines
	out.Skipped = ds.Failed
	return out, nil
}

// RenderDays writes a chart for each group into outDir, named <date>.png.
// A failing day is logged and reported in the output; the remaining days are
// still rendered. If only is non-empty, days not listed are skipped.
func RenderDays(ctx context.Context, cfg *config.Config, log *zap.Logger, days []timeline.DayGroup, outDir string, only []string) (*RenderOutput, error) {
	cfg = orDefault(cfg)
	if log == nil {
		log = zap.NewNop()
	}
	outDir = outputDir(cfg, outDir)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create output directory: %w", err))
	}

	layout := chart.LayoutFromConfig(cfg.Chart)
	icons, iconErr := chart.LoadIcons(cfg.ResourceDir, layout.IconSize)
	if iconErr != nil {
		log.Error("failed to load icons", zap.String("dir", cfg.ResourceDir), zap.Error(iconErr))
	}
	composer := chart.New(layout, icons)

	out := &RenderOutput{Written: []string{}}
	seen := make(map[string]bool, len(days))
	for _, g := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		day := g.Title()
		seen[day] = true
		if len(only) > 0 && !slices.Contains(only, day) {
			continue
		}

		path := filepath.Join(outDir, g.FileName())
		var err error
		if iconErr != nil {
			err = errors.NewChartRender(day, iconErr)
		} else {
			err = writeAtomic(path, func(w io.Writer) error { return composer.Encode(w, g) })
			if err != nil && !errors.Is(err, errors.ErrChartRender) {
				err = errors.NewChartRender(day, err)
			}
		}
		if err != nil {
			log.Error("failed to render chart", zap.String("day", day), zap.Error(err))
			out.Failed = append(out.Failed, RenderFailure{Day: day, Error: err.Error()})
			continue
		}

		log.Info("chart written", zap.String("day", day), zap.String("path", path))
		out.Written = append(out.Written, path)
	}

	for _, day := range only {
		if !seen[day] {
			out.Failed = append(out.Failed, RenderFailure{Day: day, Error: "no records for day"})
		}
	}

	return out, nil
}

// WriteChart encodes the chart for day as PNG to w. The day must be one of
// days; otherwise a NOT_FOUND error is returned.
func WriteChart(w io.Writer, cfg *config.Config, days []timeline.DayGroup, day string) error {
	cfg = orDefault(cfg)
	idx := slices.IndexFunc(days, func(g timeline.DayGroup) bool { return g.Title() == day })
	if idx < 0 {
		return errors.NewNotFound(day)
	}

	layout := chart.LayoutFromConfig(cfg.Chart)
	icons, err := chart.LoadIcons(cfg.ResourceDir, layout.IconSize)
	if err != nil {
		return errors.NewChartRender(day, err)
	}
	return chart.New(layout, icons).Encode(w, days[idx])
}
