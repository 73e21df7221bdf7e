package sqlite

import (
	"errors"
	"strings"

	"github.com/aalemi-dev/rwe/database"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// decodeError returns the extended result code and message of a driver error.
func decodeError(err error) (int, string) {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code(), sqliteErr.Error()
	}
	return 0, err.Error()
}

// classify maps a driver error to a portable code by its extended result code. Foreign
// key failures do not say which side failed; a DELETE can only break a parent row.
func classify(err error, query string) database.PortableCode {
	if err == nil {
		return database.NoError
	}

	code, text := decodeError(err)
	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
		strings.Contains(text, "UNIQUE constraint failed"):
		return database.DuplicateKeyEntry
	case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
		strings.Contains(text, "FOREIGN KEY constraint failed"):
		if database.Verb(query) == "DELETE" {
			return database.ParentForeignKeyViolation
		}
		return database.ChildForeignKeyViolation
	default:
		return database.UnknownError
	}
}
