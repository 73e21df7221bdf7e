package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aalemi-dev/rwe/database"
	"github.com/aalemi-dev/rwe/dsn"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Engine is the tag the manager is registered under.
const Engine = "SQLite"

// driverName is the database/sql name of the modernc driver.
const driverName = "sqlite"

// memory is the path of a private in-memory database.
const memory = ":memory:"

var _ database.Manager = (*SQLite)(nil)

// SQLite is the database.Manager for SQLite files.
type SQLite struct {
	*database.Base
}

// NewSQLite creates an unconnected manager for desc.
func NewSQLite(desc dsn.Descriptor, persistent bool, opts ...database.Option) *SQLite {
	return &SQLite{Base: database.NewBase(Engine, desc, persistent, dialect{}, opts...)}
}

// dataSource returns the driver DSN for desc.
func dataSource(desc dsn.Descriptor) string {
	path := desc.Database
	if path == "" {
		path = memory
	}
	pragmas := []string{"_pragma=foreign_keys(1)"}
	if timeout := desc.Option("busy_timeout", ""); timeout != "" {
		pragmas = append(pragmas, "_pragma=busy_timeout("+timeout+")")
	}
	return path + "?" + strings.Join(pragmas, "&")
}

// SelectDatabase reopens the manager on another file.
func (s *SQLite) SelectDatabase(ctx context.Context, name string) error {
	return s.Reconnect(ctx, s.Descriptor().WithDatabase(name))
}

func (s *SQLite) LimitClause(limit, offset int) string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
}

// LastInsertedRowID returns the rowid of the last insert on the connection. SQLite
// tracks it per connection, so table and column are not consulted.
func (s *SQLite) LastInsertedRowID(ctx context.Context, _, _ string) (any, error) {
	return s.QueryValue(ctx, "SELECT last_insert_rowid() AS lastid")
}

func (s *SQLite) FormatTimestampToColumn(ts int64) string {
	return fmt.Sprintf("datetime(%d, 'unixepoch')", ts)
}

// SetSessionTransactionIsolationLevel toggles read_uncommitted, the only isolation knob
// SQLite has. ReadUncommitted enables it and Serializable disables it; other levels are
// ignored. SQLite has no server-wide default, so global is not consulted.
func (s *SQLite) SetSessionTransactionIsolationLevel(ctx context.Context, level database.IsolationLevel, _ bool) error {
	switch level {
	case database.ReadUncommitted:
		return s.Exec(ctx, "PRAGMA read_uncommitted = 1")
	case database.Serializable:
		return s.Exec(ctx, "PRAGMA read_uncommitted = 0")
	default:
		return nil
	}
}

type dialect struct{}

func (dialect) Open(_ context.Context, desc dsn.Descriptor, pool *sql.DB) (*sql.DB, error) {
	if pool != nil {
		return pool, nil
	}
	db, err := sql.Open(driverName, dataSource(desc))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database %q: %w", desc.Database, err)
	}
	return db, nil
}

func (dialect) Escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (dialect) DecodeError(err error) (int, string) {
	return decodeError(err)
}

func (dialect) Classify(err error, query string) database.PortableCode {
	return classify(err, query)
}
