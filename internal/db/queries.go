package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/libreplot/internal/errors"
	"github.com/hpungsan/libreplot/internal/record"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.Error{
	Code:    errors.ErrInvalidRequest,
	Message: "unique constraint violation",
}

// Import is one stored export. Records of different imports are never merged.
type Import struct {
	ID          string  `json:"id"`
	SourcePath  string  `json:"source_path"`
	Label       *string `json:"label,omitempty"`
	ImportedAt  int64   `json:"imported_at"`
	RecordCount int     `json:"record_count"`
	DayCount    int     `json:"day_count"`
}

// InsertImport stores imp and its normalized records in one transaction.
func InsertImport(db *sql.DB, imp *Import, records []record.Record) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.Exec(`
		INSERT INTO imports (id, source_path, label, imported_at, record_count, day_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`, imp.ID, imp.SourcePath, toNullString(imp.Label), imp.ImportedAt, imp.RecordCount, imp.DayCount)
	if err != nil {
		return mapInsertError(err)
	}

	cols := recordColumns()
	query := fmt.Sprintf(
		"INSERT INTO records (import_id, timestamp, source_id, kind, %s) VALUES (?, ?, ?, ?%s)",
		strings.Join(cols, ", "),
		strings.Repeat(", ?", len(cols)),
	)
	stmt, err := tx.Prepare(query)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	args := make([]any, 0, 4+len(cols))
	for _, r := range records {
		args = append(args[:0], imp.ID, r.Timestamp.Unix(), r.ID, r.Kind)
		for _, f := range record.Fields {
			args = append(args, r.Get(f))
		}
		if _, err = stmt.Exec(args...); err != nil {
			return mapInsertError(err)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func mapInsertError(err error) error {
	if isUniqueConstraintError(err) {
		return ErrUniqueConstraint
	}
	return errors.NewInternal(err)
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite reports both UNIQUE and PRIMARY KEY violations this way
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetImport retrieves an import by its ULID.
func GetImport(db *sql.DB, id string) (*Import, error) {
	row := db.QueryRow(`
		SELECT id, source_path, label, imported_at, record_count, day_count
		FROM imports
		WHERE id = ?
	`, id)
	imp, err := scanImport(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return imp, nil
}

// ListImports returns stored imports, newest first, and the total count.
// A limit <= 0 returns all.
func ListImports(db *sql.DB, limit, offset int) ([]Import, int, error) {
	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM imports").Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT id, source_path, label, imported_at, record_count, day_count
		FROM imports
		ORDER BY imported_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	imports := []Import{}
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		imports = append(imports, *imp)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return imports, total, nil
}

// RecordsForImport returns the records of one import in timestamp order.
func RecordsForImport(db *sql.DB, importID string) ([]record.Record, error) {
	if _, err := GetImport(db, importID); err != nil {
		return nil, err
	}

	cols := recordColumns()
	query := fmt.Sprintf(
		"SELECT timestamp, source_id, kind, %s FROM records WHERE import_id = ? ORDER BY timestamp",
		strings.Join(cols, ", "),
	)
	rows, err := db.Query(query, importID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var records []record.Record
	for rows.Next() {
		var (
			r    record.Record
			unix int64
		)
		dest := []any{&unix, &r.ID, &r.Kind}
		for _, f := range record.Fields {
			dest = append(dest, r.Ptr(f))
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.NewInternal(err)
		}
		r.Timestamp = time.Unix(unix, 0).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return records, nil
}

// DeleteImport removes an import and its records.
func DeleteImport(db *sql.DB, id string) error {
	result, err := db.Exec("DELETE FROM imports WHERE id = ?", id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanImport scans a single row into an Import.
func scanImport(row scanner) (*Import, error) {
	var (
		imp   Import
		label sql.NullString
	)
	err := row.Scan(&imp.ID, &imp.SourcePath, &label, &imp.ImportedAt, &imp.RecordCount, &imp.DayCount)
	if err != nil {
		return nil, err
	}
	imp.Label = fromNullString(label)
	return &imp, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
