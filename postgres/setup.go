package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/aalemi-dev/rwe/database"
	"github.com/aalemi-dev/rwe/dsn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Engine is the tag the manager is registered under.
const Engine = "PostgreSQL"

var _ database.Manager = (*Postgres)(nil)

// Postgres is the database.Manager for PostgreSQL.
//
// Concurrency: statements are serialized by the embedded Base. The GORM view is kept in an
// atomic pointer and swapped whenever the manager opens a new connection.
type Postgres struct {
	*database.Base

	client atomic.Pointer[gorm.DB]
}

// NewPostgres creates an unconnected manager for desc.
func NewPostgres(desc dsn.Descriptor, persistent bool, opts ...database.Option) *Postgres {
	p := &Postgres{}
	p.Base = database.NewBase(Engine, desc, persistent, dialect{p: p}, opts...)
	return p
}

// connectToPostgres opens the connection described by desc through GORM. A non-nil pool
// is wrapped instead of dialing.
func connectToPostgres(desc dsn.Descriptor, pool *sql.DB) (*gorm.DB, error) {
	cfg := postgres.Config{Conn: pool}
	if pool == nil {
		cfg.DSN = connectionFromDescriptor(desc).ConnString()
	}

	db, err := gorm.Open(postgres.New(cfg), &gorm.Config{
		// The manager classifies native errors itself.
		TranslateError:       false,
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	return db, nil
}

// DB returns the GORM view of the current connection, or nil when not connected.
func (p *Postgres) DB() *gorm.DB {
	conn := p.SQLDB()
	if conn == nil {
		return nil
	}
	if db := p.client.Load(); db != nil {
		if current, err := db.DB(); err == nil && current == conn {
			return db
		}
	}

	db, err := connectToPostgres(p.Descriptor(), conn)
	if err != nil {
		return nil
	}
	p.client.Store(db)
	return db
}

// SelectDatabase reconnects to another database on the same server.
func (p *Postgres) SelectDatabase(ctx context.Context, name string) error {
	return p.Reconnect(ctx, p.Descriptor().WithDatabase(name))
}

func (p *Postgres) LimitClause(limit, offset int) string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
}

// LastInsertedRowID returns currval of the "<table>_<column>_seq" sequence.
func (p *Postgres) LastInsertedRowID(ctx context.Context, table, column string) (any, error) {
	return p.QueryValue(ctx, fmt.Sprintf("SELECT currval('%s_%s_seq') AS lastid", table, column))
}

func (p *Postgres) FormatTimestampToColumn(ts int64) string {
	return fmt.Sprintf("(SELECT 'epoch'::timestamp WITH TIME ZONE + %d * '1 second'::interval)", ts)
}

// SetSessionTransactionIsolationLevel selects READ COMMITTED or SERIALIZABLE for the
// session, or as the server default when global is true. Other levels are ignored.
func (p *Postgres) SetSessionTransactionIsolationLevel(ctx context.Context, level database.IsolationLevel, global bool) error {
	if level != database.ReadCommitted && level != database.Serializable {
		return nil
	}
	if global {
		return p.Exec(ctx, fmt.Sprintf("SET default_transaction_isolation = '%s'", level))
	}
	return p.Exec(ctx, "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL "+level.String())
}

// dialect implements database.Dialect for PostgreSQL.
type dialect struct {
	p *Postgres
}

func (d dialect) Open(_ context.Context, desc dsn.Descriptor, pool *sql.DB) (*sql.DB, error) {
	db, err := connectToPostgres(desc, pool)
	if err != nil {
		return nil, err
	}
	conn, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get PostgreSQL database instance: %w", err)
	}
	d.p.client.Store(db)
	return conn, nil
}

func (dialect) Escape(s string) string {
	return escapeString(s)
}

func (dialect) DecodeError(err error) (int, string) {
	return 0, errorText(err)
}

func (dialect) Classify(err error, query string) database.PortableCode {
	return classify(err, query)
}

func (dialect) Retryable(err error) bool {
	return IsRetryable(err)
}
