package mariadb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aalemi-dev/rwe/database"
	"github.com/aalemi-dev/rwe/dsn"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Engine is the tag the manager is registered under.
const Engine = "MySQL"

var _ database.Manager = (*MariaDB)(nil)

// MariaDB is the database.Manager for MySQL and MariaDB servers.
//
// Concurrency: statements are serialized by the embedded Base. The GORM view is kept in an
// atomic pointer and swapped whenever the manager opens a new connection.
type MariaDB struct {
	*database.Base

	client atomic.Pointer[gorm.DB]

	shutdownSignal chan struct{}
	closeOnce      sync.Once
}

// NewMariaDB creates an unconnected manager for desc.
func NewMariaDB(desc dsn.Descriptor, persistent bool, opts ...database.Option) *MariaDB {
	m := &MariaDB{shutdownSignal: make(chan struct{})}
	m.Base = database.NewBase(Engine, desc, persistent, dialect{m: m}, opts...)
	return m
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		// The manager classifies native errors itself.
		TranslateError:       false,
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	}
}

// connectToMariaDB opens the connection described by desc through GORM. A non-nil pool
// is wrapped instead of dialing.
func connectToMariaDB(desc dsn.Descriptor, pool *sql.DB) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if pool != nil {
		dialector = mysql.New(mysql.Config{Conn: pool, SkipInitializeWithVersion: true})
	} else {
		conn, err := connectionFromDescriptor(desc).FormatDSN()
		if err != nil {
			return nil, err
		}
		dialector = mysql.Open(conn)
	}

	db, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MariaDB/MySQL database: %w", err)
	}
	return db, nil
}

// DB returns the GORM view of the current connection, or nil when not connected.
func (m *MariaDB) DB() *gorm.DB {
	conn := m.SQLDB()
	if conn == nil {
		return nil
	}
	if db := m.client.Load(); db != nil {
		if current, err := db.DB(); err == nil && current == conn {
			return db
		}
	}

	// The connection came from the persistent registry.
	db, err := connectToMariaDB(m.Descriptor(), conn)
	if err != nil {
		return nil
	}
	m.client.Store(db)
	return db
}

// SelectDatabase switches the database with USE on the live connection.
func (m *MariaDB) SelectDatabase(ctx context.Context, name string) error {
	if err := m.Exec(ctx, "USE "+quoteIdentifier(name)); err != nil {
		return err
	}
	m.SetDescriptor(m.Descriptor().WithDatabase(name))
	return nil
}

// LimitClause renders the MySQL pagination clause, offset first.
func (m *MariaDB) LimitClause(limit, offset int) string {
	return fmt.Sprintf("LIMIT %d, %d", offset, limit)
}

// LastInsertedRowID returns the value LAST_INSERT_ID reports for column of table.
func (m *MariaDB) LastInsertedRowID(ctx context.Context, table, column string) (any, error) {
	return m.QueryValue(ctx, fmt.Sprintf(
		"SELECT LAST_INSERT_ID(%s) as lastid FROM %s ORDER BY lastid DESC LIMIT 0,1", column, table))
}

func (m *MariaDB) FormatTimestampToColumn(ts int64) string {
	return fmt.Sprintf("FROM_UNIXTIME(%d)", ts)
}

// SetSessionTransactionIsolationLevel sets the isolation level of the session, or the
// server default when global is true. Unknown levels are ignored.
func (m *MariaDB) SetSessionTransactionIsolationLevel(ctx context.Context, level database.IsolationLevel, global bool) error {
	if !level.Valid() {
		return nil
	}
	scope := "SESSION"
	if global {
		scope = "GLOBAL"
	}
	return m.Exec(ctx, fmt.Sprintf("SET %s TRANSACTION ISOLATION LEVEL %s", scope, level))
}

// MonitorConnection pings the server every interval while connected and reconnects when
// the ping fails with a transient error (see IsRetryable). Other failures are logged and
// the connection is left alone. It returns when ctx is done or the manager is shut down.
func (m *MariaDB) MonitorConnection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.shutdownSignal:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAndRecover(ctx)
		}
	}
}

// checkAndRecover runs one health check and reconnects after a transient failure. It
// reports whether a reconnect was attempted.
func (m *MariaDB) checkAndRecover(ctx context.Context) bool {
	err := m.healthCheck(ctx)
	if err == nil {
		return false
	}
	if !IsRetryable(err) {
		m.logWarn(ctx, "MariaDB health check failed, not retryable", err)
		return false
	}
	m.logWarn(ctx, "MariaDB health check failed, reconnecting", err)
	if err := m.Reconnect(ctx, m.Descriptor()); err != nil {
		m.logWarn(ctx, "MariaDB reconnection failed", err)
	}
	return true
}

// healthCheck pings the live connection. An unconnected manager is healthy: it connects
// lazily on the next statement.
func (m *MariaDB) healthCheck(ctx context.Context) error {
	conn := m.SQLDB()
	if conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed during health check: %w", err)
	}
	return nil
}

// GracefulShutdown stops MonitorConnection and disconnects.
func (m *MariaDB) GracefulShutdown() error {
	m.closeOnce.Do(func() {
		close(m.shutdownSignal)
	})
	return m.Disconnect()
}

func (m *MariaDB) logWarn(ctx context.Context, msg string, err error) {
	if l := m.Logger(); l != nil {
		l.WarnWithContext(ctx, msg, err, map[string]interface{}{"dsn": m.Descriptor().String()})
	}
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// dialect implements database.Dialect for MySQL.
type dialect struct {
	m *MariaDB
}

func (d dialect) Open(_ context.Context, desc dsn.Descriptor, pool *sql.DB) (*sql.DB, error) {
	db, err := connectToMariaDB(desc, pool)
	if err != nil {
		return nil, err
	}
	conn, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get MariaDB/MySQL database instance: %w", err)
	}
	d.m.client.Store(db)
	return conn, nil
}

func (dialect) Escape(s string) string {
	return escapeString(s)
}

func (dialect) DecodeError(err error) (int, string) {
	return decodeError(err)
}

func (dialect) Classify(err error, _ string) database.PortableCode {
	return classify(err)
}

func (dialect) Retryable(err error) bool {
	return IsRetryable(err)
}
