package ops

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/hpungsan/libreplot/internal/config"
	"github.com/hpungsan/libreplot/internal/errors"
	"github.com/hpungsan/libreplot/internal/timeline"
)

// ReportInput contains parameters for the Report operation.
type ReportInput struct {
	Path  string // required, export file
	Out   string // optional, default: <output_dir>/<export name>.html
	Title string // optional, default: the export's file name
}

// ReportOutput contains the result of the Report operation.
type ReportOutput struct {
	Path string `json:"path"`
	Days int    `json:"days"`
}

// Report writes an HTML page with one summary row and chart link per day.
// The charts themselves are produced by Render into the same directory.
func Report(cfg *config.Config, log *zap.Logger, input ReportInput) (*ReportOutput, error) {
	cfg = orDefault(cfg)
	ds, err := Load(cfg, log, input.Path)
	if err != nil {
		return nil, err
	}

	out := input.Out
	if out == "" {
		out = defaultOutputPath(cfg, input.Path, ".html")
	}
	if err := ValidateOutputPath(out, ".html"); err != nil {
		return nil, err
	}

	title := input.Title
	if title == "" {
		title = ds.Path
	}

	page, err := RenderHTML(title, BuildMarkdown(title, Summaries(cfg, ds.Days)))
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(out, func(w io.Writer) error {
		_, err := io.WriteString(w, page)
		return err
	}); err != nil {
		return nil, err
	}

	return &ReportOutput{Path: out, Days: len(ds.Days)}, nil
}

// BuildMarkdown renders the daily summaries as a markdown document.
func BuildMarkdown(title string, summaries []timeline.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	if len(summaries) == 0 {
		b.WriteString("No records.\n")
		return b.String()
	}

	b.WriteString("| Day | Readings | Min | Max | Mean | In range | Low | High | Fast | Slow | Food | Carbs |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "| [%s](%s.png) | %d | %d | %d | %.1f | %.1f%% | %d | %d | %d | %d | %d | %d |\n",
			s.Day, s.Day, s.Readings, s.Min, s.Max, s.Mean, s.InRangePct,
			s.Low, s.High, s.FastInsulin, s.SlowInsulin, s.Food, s.Carbohydrate)
	}

	for _, s := range summaries {
		fmt.Fprintf(&b, "\n## %s\n\n![%s](%s.png)\n", s.Day, s.Day, s.Day)
	}
	return b.String()
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// RenderHTML converts md to a standalone HTML page.
func RenderHTML(title, md string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(md), &body); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to render markdown: %w", err))
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("<style>table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:2px 6px}</style>\n")
	b.WriteString("</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}
