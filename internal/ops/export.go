package ops

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/libreplot/internal/config"
	"github.com/hpungsan/libreplot/internal/errors"
	"github.com/hpungsan/libreplot/internal/record"
	"github.com/hpungsan/libreplot/internal/timeline"
)

// SummarySheet is the first sheet of an exported workbook.
const SummarySheet = "Summary"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // required, export file
	Out  string // optional, default: <output_dir>/<export name>.xlsx
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Days       int    `json:"days"`
	Records    int    `json:"records"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes the normalized export as an .xlsx workbook with a summary
// sheet followed by one sheet per day.
func Export(cfg *config.Config, log *zap.Logger, input ExportInput) (*ExportOutput, error) {
	cfg = orDefault(cfg)
	ds, err := Load(cfg, log, input.Path)
	if err != nil {
		return nil, err
	}

	out := input.Out
	if out == "" {
		out = defaultOutputPath(cfg, input.Path, ".xlsx")
	}
	if err := ValidateOutputPath(out, ".xlsx"); err != nil {
		return nil, err
	}

	err = writeAtomic(out, func(w io.Writer) error {
		return WriteWorkbook(w, Summaries(cfg, ds.Days), ds.Days)
	})
	if err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       out,
		Days:       len(ds.Days),
		Records:    len(ds.Records()),
		ExportedAt: time.Now().Unix(),
	}, nil
}

var summaryHeaders = []string{
	"Day", "Records", "Readings", "Min", "Max", "Mean", "In Range %",
	"Low", "High", "Fast Insulin", "Slow Insulin", "Food", "Carbohydrate", "Events",
}

func recordHeaders() []string {
	headers := []string{"Timestamp", "ID", "Kind"}
	for _, f := range record.Fields {
		headers = append(headers, f.String())
	}
	return headers
}

// WriteWorkbook writes summaries and days to w as an .xlsx workbook.
func WriteWorkbook(w io.Writer, summaries []timeline.Summary, days []timeline.DayGroup) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to rename sheet: %w", err))
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create header style: %w", err))
	}

	if err := writeHeader(f, SummarySheet, summaryHeaders, headerStyle); err != nil {
		return err
	}
	for i, s := range summaries {
		row := []any{
			s.Day, s.Records, s.Readings, s.Min, s.Max, s.Mean, s.InRangePct,
			s.Low, s.High, s.FastInsulin, s.SlowInsulin, s.Food, s.Carbohydrate, s.Events,
		}
		if err := writeRow(f, SummarySheet, i+2, row); err != nil {
			return err
		}
	}

	headers := recordHeaders()
	for _, g := range days {
		sheet := g.Title()
		if _, err := f.NewSheet(sheet); err != nil {
			return errors.NewInternal(fmt.Errorf("failed to create sheet %s: %w", sheet, err))
		}
		if err := writeHeader(f, sheet, headers, headerStyle); err != nil {
			return err
		}
		for i, r := range g.Records {
			row := []any{r.Timestamp.Format("2006-01-02 15:04"), r.ID, r.Kind}
			for _, field := range record.Fields {
				row = append(row, r.Get(field))
			}
			if err := writeRow(f, sheet, i+2, row); err != nil {
				return err
			}
		}
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to write workbook: %w", err))
	}
	return nil
}

// writeHeader writes a styled header row and freezes it.
func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return errors.NewInternal(fmt.Errorf("failed to convert coordinates: %w", err))
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return errors.NewInternal(fmt.Errorf("failed to set header cell %s: %w", cell, err))
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return errors.NewInternal(fmt.Errorf("failed to set header style: %w", err))
		}
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to convert column number: %w", err))
	}
	if err := f.SetColWidth(sheet, "A", last, 14); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to set column width: %w", err))
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to freeze panes: %w", err))
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err))
	}
	return nil
}
