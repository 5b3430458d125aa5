package ops

import (
	"database/sql"
	"strings"

	"github.com/hpungsan/libreplot/internal/config"
	"github.com/hpungsan/libreplot/internal/db"
	"github.com/hpungsan/libreplot/internal/errors"
	"github.com/hpungsan/libreplot/internal/timeline"
)

// ImportsInput contains parameters for the Imports operation.
type ImportsInput struct {
	Limit  int // default: 20, max: 100
	Offset int
}

// ImportsOutput contains the result of the Imports operation.
type ImportsOutput struct {
	Items      []db.Import `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

// Imports lists stored imports, newest first.
func Imports(database *sql.DB, input ImportsInput) (*ImportsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	items, total, err := db.ListImports(database, limit, offset)
	if err != nil {
		return nil, err
	}

	return &ImportsOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}

// ImportDays reloads one stored import and splits it into day groups.
func ImportDays(database *sql.DB, cfg *config.Config, id string) ([]timeline.DayGroup, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("import id is required")
	}

	mode, err := timeline.ParseSplitMode(orDefault(cfg).DaySplit)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	records, err := db.RecordsForImport(database, id)
	if err != nil {
		return nil, err
	}
	return timeline.Normalize(records, mode), nil
}

// ImportDetailOutput contains the result of the ImportDetail operation.
type ImportDetailOutput struct {
	Import *db.Import         `json:"import"`
	Days   []timeline.Summary `json:"days"`
}

// ImportDetail returns a stored import with per-day summaries.
func ImportDetail(database *sql.DB, cfg *config.Config, id string) (*ImportDetailOutput, error) {
	days, err := ImportDays(database, cfg, id)
	if err != nil {
		return nil, err
	}
	imp, err := db.GetImport(database, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	return &ImportDetailOutput{Import: imp, Days: Summaries(cfg, days)}, nil
}
