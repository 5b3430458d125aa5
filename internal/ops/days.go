package ops

import (
	"go.uber.org/zap"

	"github.com/hpungsan/libreplot/internal/config"
	"github.com/hpungsan/libreplot/internal/timeline"
)

// DaysInput contains parameters for the Days operation.
type DaysInput struct {
	Path string // required, export file
}

// DaysOutput contains the result of the Days operation.
type DaysOutput struct {
	Path    string             `json:"path"`
	Lines   int                `json:"lines"`
	Records int                `json:"records"`
	Skipped int                `json:"skipped_lines"`
	Days    []timeline.Summary `json:"days"`
}

// Days summarizes every day of the export.
func Days(cfg *config.Config, log *zap.Logger, input DaysInput) (*DaysOutput, error) {
	cfg = orDefault(cfg)
	ds, err := Load(cfg, log, input.Path)
	if err != nil {
		return nil, err
	}

	return &DaysOutput{
		Path:    ds.Path,
		Lines:   ds.Lines,
		Records: len(ds.Records()),
		Skipped: ds.Failed,
		Days:    Summaries(cfg, ds.Days),
	}, nil
}

// Summaries computes a summary for each day using the configured target range.
func Summaries(cfg *config.Config, days []timeline.DayGroup) []timeline.Summary {
	cfg = orDefault(cfg)
	out := make([]timeline.Summary, 0, len(days))
	for _, g := range days {
		out = append(out, timeline.Summarize(g, cfg.Chart.TargetLow, cfg.Chart.TargetHigh))
	}
	return out
}
