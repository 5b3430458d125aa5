package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/libreplot/internal/config"
	"github.com/hpungsan/libreplot/internal/db"
	"github.com/hpungsan/libreplot/internal/errors"
)

// StoreInput contains parameters for the Store operation.
type StoreInput struct {
	Path  string  // required, export file
	Label *string // optional
}

// StoreOutput contains the result of the Store operation.
type StoreOutput struct {
	ID          string `json:"id"`
	RecordCount int    `json:"record_count"`
	DayCount    int    `json:"day_count"`
}

// Store parses and normalizes an export and saves it as a new import.
// Every call creates a separate import; records are never merged across imports.
func Store(ctx context.Context, database *sql.DB, cfg *config.Config, log *zap.Logger, input StoreInput) (*StoreOutput, error) {
	ds, err := Load(cfg, log, input.Path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	source, err := filepath.Abs(input.Path)
	if err != nil {
		source = input.Path
	}

	records := ds.Records()
	imp := &db.Import{
		ID:          id,
		SourcePath:  source,
		Label:       cleanOptionalString(input.Label),
		ImportedAt:  time.Now().Unix(),
		RecordCount: len(records),
		DayCount:    len(ds.Days),
	}
	if err := db.InsertImport(database, imp, records); err != nil {
		return nil, err
	}

	if log != nil {
		log.Info("import stored", zap.String("id", id), zap.Int("records", len(records)))
	}

	return &StoreOutput{
		ID:          id,
		RecordCount: imp.RecordCount,
		DayCount:    imp.DayCount,
	}, nil
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
