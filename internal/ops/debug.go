package ops

import (
	"encoding/csv"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/hpungsan/libreplot/internal/config"
	"github.com/hpungsan/libreplot/internal/errors"
	"github.com/hpungsan/libreplot/internal/record"
)

// DumpInput contains parameters for the DumpDebug operation.
type DumpInput struct {
	Path string // required, export file
	Out  string // optional, default: <output_dir>/<export name>.debug.tsv
}

// DumpOutput contains the result of the DumpDebug operation.
type DumpOutput struct {
	Path    string `json:"path"`
	Records int    `json:"records"`
}

// DumpDebug writes the normalized records as tab-separated text, one line
// per record with every field, for comparing against the source export.
func DumpDebug(cfg *config.Config, log *zap.Logger, input DumpInput) (*DumpOutput, error) {
	cfg = orDefault(cfg)
	ds, err := Load(cfg, log, input.Path)
	if err != nil {
		return nil, err
	}

	out := input.Out
	if out == "" {
		out = defaultOutputPath(cfg, input.Path, ".debug.tsv")
	}
	if err := ValidateOutputPath(out, ".tsv"); err != nil {
		return nil, err
	}

	records := ds.Records()
	if err := writeAtomic(out, func(w io.Writer) error {
		return WriteDebug(w, records)
	}); err != nil {
		return nil, err
	}
	return &DumpOutput{Path: out, Records: len(records)}, nil
}

// WriteDebug writes records to w as TSV with a header line.
func WriteDebug(w io.Writer, records []record.Record) error {
	tw := csv.NewWriter(w)
	tw.Comma = '\t'

	header := []string{"timestamp", "id", "kind"}
	for _, f := range record.Fields {
		header = append(header, f.String())
	}
	if err := tw.Write(header); err != nil {
		return errors.NewInternal(err)
	}

	row := make([]string, 0, len(header))
	for _, r := range records {
		row = append(row[:0], r.Timestamp.Format(record.TimestampLayout), r.ID, strconv.Itoa(r.Kind))
		for _, f := range record.Fields {
			row = append(row, strconv.Itoa(r.Get(f)))
		}
		if err := tw.Write(row); err != nil {
			return errors.NewInternal(err)
		}
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
