package parse

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/libreplot/internal/errors"
	"github.com/hpungsan/libreplot/internal/record"
)

// Result is the outcome of parsing a whole export.
type Result struct {
	Records  []record.Record // successfully parsed lines, in file order
	Lines    int             // lines seen
	Failed   int             // lines discarded because a mandatory field failed
	Reported int             // failed lines past the preamble (logged)
}

// ParseFile loads the export at path into memory and parses it.
// Returns an INPUT_OPEN error if the file cannot be read.
func (p *Parser) ParseFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInputOpen(path, err)
	}
	return p.ParseString(string(data)), nil
}

// Parse reads r to the end and parses it.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return p.ParseString(string(data)), nil
}

// ParseString parses every line of data. Failed lines are dropped; those
// beyond the preamble are logged at warn level.
func (p *Parser) ParseString(data string) *Result {
	lines := strings.Split(data, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	res := &Result{Records: make([]record.Record, 0, len(lines))}
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		ordinal := i + 1
		res.Lines++

		r, err := p.ParseLine(line, ordinal)
		if err != nil {
			res.Failed++
			if ordinal > p.preamble {
				res.Reported++
				p.log.Warn("error parsing line",
					zap.String("code", string(errors.CodeOf(err))),
					zap.Int("line", ordinal),
					zap.String("raw", line),
				)
			}
			continue
		}
		res.Records = append(res.Records, r)
	}

	p.log.Debug("parsed export",
		zap.Int("lines", res.Lines),
		zap.Int("records", len(res.Records)),
		zap.Int("failed", res.Failed),
	)
	return res
}
