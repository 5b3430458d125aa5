// Package parse turns a glucose monitor export into Records.
//
// Each data line carries fourteen positional fields separated by a single
// separator. The first three (id, timestamp, record kind) are mandatory; the
// rest are optional integers that the source omits inconsistently, so a bad
// optional field only moves the cursor forward by one separator width.
package parse

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/libreplot/internal/errors"
	"github.com/hpungsan/libreplot/internal/record"
)

// Defaults for the export format.
const (
	DefaultSeparator     = "\t"
	DefaultPreambleLines = 2
)

// optionalFields are the columns after the record kind, in order. The last
// one (slow insulin units) is handled separately.
var optionalFields = []record.Field{
	record.GlucoseHistory,
	record.GlucoseScanned,
	record.FastInsulin,
	record.FastInsulinNonNumeric,
	record.FastInsulinUnits,
	record.Food,
	record.FoodNonNumeric,
	record.Carbohydrate,
	record.SlowInsulin,
	record.SlowInsulinNonNumeric,
}

// Parser parses export lines. The zero value is not usable; call New.
type Parser struct {
	sep      string
	preamble int
	log      *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithSeparator overrides the field separator.
func WithSeparator(sep string) Option {
	return func(p *Parser) {
		if sep != "" {
			p.sep = sep
		}
	}
}

// WithPreambleLines sets how many leading lines may fail without being logged.
func WithPreambleLines(n int) Option {
	return func(p *Parser) {
		if n >= 0 {
			p.preamble = n
		}
	}
}

// WithLogger sets the logger used for reporting failed lines.
func WithLogger(log *zap.Logger) Option {
	return func(p *Parser) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates a Parser with tab separators and a two-line preamble.
func New(opts ...Option) *Parser {
	p := &Parser{
		sep:      DefaultSeparator,
		preamble: DefaultPreambleLines,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseLine parses one raw line. ordinal is the 1-based line number, used
// only for error context. A non-nil error is always an *errors.Error with a
// line-parse code and the returned Record must be discarded.
func (p *Parser) ParseLine(line string, ordinal int) (record.Record, error) {
	var r record.Record

	idx := strings.Index(line, p.sep)
	if idx < 0 {
		return record.Record{}, errors.NewNoSeparator(ordinal, line)
	}
	r.ID = line[:idx]

	text, next, ok := p.field(line, idx)
	if !ok || text == "" {
		return record.Record{}, errors.NewBadTimestamp(ordinal, text)
	}
	ts, err := time.Parse(record.TimestampLayout, text)
	if err != nil {
		return record.Record{}, errors.NewBadTimestamp(ordinal, text)
	}
	r.Timestamp = ts
	idx = next

	text, next, ok = p.field(line, idx)
	kind, valid := parseInt(text)
	if !ok || !valid {
		return record.Record{}, errors.NewBadRecordKind(ordinal, text)
	}
	r.Kind = kind
	idx = next

	for _, f := range optionalFields {
		text, next, ok = p.field(line, idx)
		v, valid := parseInt(text)
		if !ok || !valid {
			idx += len(p.sep)
			continue
		}
		*r.Ptr(f) = v
		idx = next
	}

	if text, _, ok = p.field(line, idx); ok {
		if v, valid := parseInt(text); valid {
			r.SlowInsulinUnits = v
		}
	}

	return r, nil
}

// field returns the text between the separator at idx and the next one,
// plus the index of that next separator. ok is false when the field is not
// terminated by a separator.
func (p *Parser) field(line string, idx int) (text string, next int, ok bool) {
	start := idx + len(p.sep)
	if start > len(line) {
		return "", idx, false
	}
	n := strings.Index(line[start:], p.sep)
	if n < 0 {
		return line[start:], idx, false
	}
	return line[start : start+n], start + n, true
}

// parseInt parses a non-negative integer, optionally signed with '+'. A comma after the first character
// marks a decimal fraction, which is truncated.
func parseInt(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	if i := strings.Index(text, ","); i > 0 {
		text = text[:i]
	}
	// A single leading plus sign is accepted; ParseUint rejects it.
	v, err := strconv.ParseUint(strings.TrimPrefix(text, "+"), 10, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}
