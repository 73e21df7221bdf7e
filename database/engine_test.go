package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aalemi-dev/rwe/dsn"
	"github.com/aalemi-dev/rwe/observability"
	"github.com/stretchr/testify/require"
)

// exampleEngine is a minimal engine used to exercise Base against sqlmock.
const exampleEngine = "Example"

func init() {
	Register(exampleEngine, newExampleManager)
}

type exampleError struct {
	Number  int
	Message string
}

func (e *exampleError) Error() string {
	return fmt.Sprintf("Error %d: %s", e.Number, e.Message)
}

type exampleDialect struct{}

func (exampleDialect) Open(_ context.Context, _ dsn.Descriptor, pool *sql.DB) (*sql.DB, error) {
	if pool != nil {
		return pool, nil
	}
	db, _, err := sqlmock.New()
	return db, err
}

func (exampleDialect) Escape(s string) string {
	return AddSlashes(s)
}

func (exampleDialect) DecodeError(err error) (int, string) {
	var ee *exampleError
	if errors.As(err, &ee) {
		return ee.Number, ee.Message
	}
	return 0, err.Error()
}

func (exampleDialect) Classify(err error, _ string) PortableCode {
	var ee *exampleError
	if !errors.As(err, &ee) {
		return UnknownError
	}
	switch ee.Number {
	case 1062:
		return DuplicateKeyEntry
	case 1216:
		return ChildForeignKeyViolation
	case 1217:
		return ParentForeignKeyViolation
	default:
		return UnknownError
	}
}

func (exampleDialect) Retryable(err error) bool {
	var ee *exampleError
	return errors.As(err, &ee) && ee.Number == 1213
}

type exampleManager struct {
	*Base
}

func newExampleManager(desc dsn.Descriptor, persistent bool, opts ...Option) Manager {
	m := &exampleManager{}
	m.Base = NewBase(exampleEngine, desc, persistent, exampleDialect{}, opts...)
	return m
}

func (m *exampleManager) SelectDatabase(ctx context.Context, name string) error {
	return m.Reconnect(ctx, m.Descriptor().WithDatabase(name))
}

func (m *exampleManager) LimitClause(limit, offset int) string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
}

func (m *exampleManager) LastInsertedRowID(ctx context.Context, table, column string) (any, error) {
	return m.QueryValue(ctx, fmt.Sprintf("SELECT max(%s) AS lastid FROM %s", column, table))
}

func (m *exampleManager) FormatTimestampToColumn(ts int64) string {
	return fmt.Sprintf("to_timestamp(%d)", ts)
}

func (m *exampleManager) SetSessionTransactionIsolationLevel(ctx context.Context, level IsolationLevel, global bool) error {
	scope := "SESSION"
	if global {
		scope = "GLOBAL"
	}
	return m.Exec(ctx, "SET "+scope+" TRANSACTION ISOLATION LEVEL "+level.String())
}

// newMock returns a sqlmock handle matching queries literally.
func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	return db, mock
}

// newExample returns an Example manager whose connection is db.
func newExample(t *testing.T, db *sql.DB, opts ...Option) Manager {
	t.Helper()
	opts = append(opts, WithOpener(func(context.Context, dsn.Descriptor) (*sql.DB, error) {
		return db, nil
	}))
	m, err := Open(dsn.Descriptor{Engine: exampleEngine, Host: "db1", Database: "app"}, false, opts...)
	require.NoError(t, err)
	return m
}

// TestObserver records observed operations.
type TestObserver struct {
	mu         sync.Mutex
	operations []observability.OperationContext
}

func (t *TestObserver) ObserveOperation(ctx observability.OperationContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operations = append(t.operations, ctx)
}

func (t *TestObserver) Operations() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.operations))
	for i, op := range t.operations {
		out[i] = op.Operation
	}
	return out
}

func (t *TestObserver) Last() observability.OperationContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.operations[len(t.operations)-1]
}
