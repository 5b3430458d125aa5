package ops

import (
	"database/sql"
	"strings"

	"github.com/hpungsan/libreplot/internal/db"
	"github.com/hpungsan/libreplot/internal/errors"
)

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Delete removes a stored import and its records.
func Delete(database *sql.DB, id string) (*DeleteOutput, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("import id is required")
	}
	if err := db.DeleteImport(database, id); err != nil {
		return nil, err
	}
	return &DeleteOutput{Deleted: true, ID: id}, nil
}
