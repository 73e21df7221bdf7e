package database

import (
	"context"
	"database/sql"

	"github.com/aalemi-dev/rwe/dsn"
)

// Manager is the contract every database engine implements.
//
// Failures that callers may want to inspect are returned as errors and also recorded
// as the manager's last error, readable through the LastError accessors until the next
// statement runs.
type Manager interface {
	// Engine returns the engine tag the manager was registered under.
	Engine() string

	// Descriptor returns the connection descriptor.
	Descriptor() dsn.Descriptor

	// SetDescriptor replaces the descriptor used by the next Connect.
	SetDescriptor(d dsn.Descriptor)

	// Persistent reports whether the connection is shared and survives Disconnect.
	Persistent() bool

	// SetPersistent changes the persistence flag used by the next Connect.
	SetPersistent(persistent bool)

	// Connect establishes the connection, replacing a live non-persistent one.
	Connect(ctx context.Context) error

	// Disconnect closes a non-persistent connection. Persistent connections stay open.
	Disconnect() error

	// IsConnected reports whether a connection handle is held.
	IsConnected() bool

	// SelectDatabase switches the active database.
	SelectDatabase(ctx context.Context, name string) error

	// Prepare returns a statement for query, connecting first when needed.
	Prepare(ctx context.Context, query string) (*Statement, error)

	// EscapeString escapes s for embedding inside a single-quoted SQL literal.
	EscapeString(s string) string

	// LastError returns the human-readable text of the last native error.
	LastError() string

	// LastErrorCode returns the native numeric code of the last error, or 0.
	LastErrorCode() int

	// LastErrorFullString combines code and text of the last error.
	LastErrorFullString() string

	// LastErrorPortableCode classifies the last error.
	LastErrorPortableCode() PortableCode

	// LimitClause renders the engine's pagination clause.
	LimitClause(limit, offset int) string

	// LastInsertedRowID returns the last id generated for table.column.
	LastInsertedRowID(ctx context.Context, table, column string) (any, error)

	// FormatTimestampToColumn returns SQL text converting a Unix timestamp to a date/time value.
	FormatTimestampToColumn(ts int64) string

	// SetSessionTransactionIsolationLevel sets the isolation level of the session, or the
	// server default when global is true.
	SetSessionTransactionIsolationLevel(ctx context.Context, level IsolationLevel, global bool) error

	// BeginTransaction sends BEGIN.
	BeginTransaction(ctx context.Context) error

	// Commit sends COMMIT.
	Commit(ctx context.Context) error

	// Rollback sends ROLLBACK.
	Rollback(ctx context.Context) error

	// QueryPlaceholderString returns ":start, :start+1, ..., :end".
	QueryPlaceholderString(start, end int) string

	// SetColumnsPlaceholderString returns "c1 = :start, c2 = :start+1, ...".
	SetColumnsPlaceholderString(columns []string, start int) string

	// RealColumnName returns the output column name of a select-list expression.
	RealColumnName(expr string) string

	// Stats returns the cumulative statement counters.
	Stats() Stats

	// SQLDB returns the native handle, or nil when not connected.
	SQLDB() *sql.DB
}

// Dialect holds what differs between engines in the shared Base.
type Dialect interface {
	// Open returns a ready connection for desc. When pool is non-nil it is an already
	// opened handle supplied through WithOpener and must be used instead of dialing.
	Open(ctx context.Context, desc dsn.Descriptor, pool *sql.DB) (*sql.DB, error)

	// Escape escapes s for a single-quoted literal.
	Escape(s string) string

	// DecodeError splits a native error into its numeric code and message.
	DecodeError(err error) (code int, text string)

	// Classify maps a native error raised by query to a portable code.
	Classify(err error, query string) PortableCode
}

// RetryDialect is implemented by dialects that can tell transient failures (deadlocks,
// serialization failures, lost connections) from permanent ones.
type RetryDialect interface {
	Dialect

	// Retryable reports whether the statement that raised err may succeed when run again.
	Retryable(err error) bool
}
