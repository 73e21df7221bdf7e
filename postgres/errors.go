package postgres

import (
	"errors"
	"regexp"
	"strings"

	"github.com/aalemi-dev/rwe/database"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the manager interprets.
const (
	sqlStateUniqueViolation      = "23505" // unique_violation
	sqlStateForeignKeyViolation  = "23503" // foreign_key_violation
	sqlStateSerializationFailure = "40001" // serialization_failure
	sqlStateDeadlockDetected     = "40P01" // deadlock_detected
	sqlStateAdminShutdown        = "57P01" // admin_shutdown
	sqlStateTooManyConnections   = "53300" // too_many_connections
	sqlStateConnectionException  = "08"    // class 08, connection exceptions
)

var (
	childForeignKeyPattern  = regexp.MustCompile(`(?i)insert\sor\supdate(.*)violates\sforeign\skey\sconstraint`)
	parentForeignKeyPattern = regexp.MustCompile(`(?i)update\sor\sdelete(.*)violates\sforeign\skey\sconstraint`)
)

// errorText returns the server message of a *pgconn.PgError, or the error text.
func errorText(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	return err.Error()
}

// classify maps a native error to a portable code. The English server messages are
// matched first; SQLSTATE covers servers running in another locale.
func classify(err error, query string) database.PortableCode {
	if err == nil {
		return database.NoError
	}

	text := errorText(err)
	switch {
	case strings.Contains(text, "duplicate key"):
		return database.DuplicateKeyEntry
	case childForeignKeyPattern.MatchString(text):
		return database.ChildForeignKeyViolation
	case parentForeignKeyPattern.MatchString(text):
		return database.ParentForeignKeyViolation
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return database.UnknownError
	}
	switch pgErr.Code {
	case sqlStateUniqueViolation:
		return database.DuplicateKeyEntry
	case sqlStateForeignKeyViolation:
		if database.Verb(query) == "DELETE" {
			return database.ParentForeignKeyViolation
		}
		return database.ChildForeignKeyViolation
	default:
		return database.UnknownError
	}
}

// IsRetryable reports whether err is a serialization failure, a deadlock or a
// connection problem, after which the same statement may succeed.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected,
			sqlStateAdminShutdown, sqlStateTooManyConnections:
			return true
		}
		return strings.HasPrefix(pgErr.Code, sqlStateConnectionException)
	}
	return pgconn.SafeToRetry(err)
}

// escapeString doubles single quotes. Backslashes are literal under
// standard_conforming_strings.
func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
