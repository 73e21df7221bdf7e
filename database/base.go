package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aalemi-dev/rwe/dsn"
	"github.com/aalemi-dev/rwe/observability"
)

// Base implements the engine-neutral part of Manager. Engines embed *Base and supply a
// Dialect; the methods that need engine-specific SQL (LimitClause, LastInsertedRowID,
// FormatTimestampToColumn, SetSessionTransactionIsolationLevel, SelectDatabase) are
// left to the embedding type.
//
// A mutex serializes connect, prepare and execute so one manager may be shared between
// goroutines.
type Base struct {
	mu sync.Mutex

	engine     string
	dialect    Dialect
	desc       dsn.Descriptor
	persistent bool
	conn       *sql.DB

	numPrepared  int64
	numExecuted  int64
	totalSQLTime time.Duration

	lastErr   error
	lastQuery string

	details  ConnectionDetails
	opener   Opener
	logger   Logger
	observer observability.Observer
	pending  []observability.OperationContext
}

// NewBase creates an unconnected Base.
func NewBase(engine string, desc dsn.Descriptor, persistent bool, dialect Dialect, opts ...Option) *Base {
	o := buildOptions(opts)
	return &Base{
		engine:     engine,
		dialect:    dialect,
		desc:       desc,
		persistent: persistent,
		details:    o.details,
		opener:     o.opener,
		logger:     o.logger,
		observer:   o.observer,
	}
}

func (b *Base) Engine() string {
	return b.engine
}

func (b *Base) Descriptor() dsn.Descriptor {
	b.mu.Lock()
	defer b.unlock()
	return b.desc
}

func (b *Base) SetDescriptor(d dsn.Descriptor) {
	b.mu.Lock()
	defer b.unlock()
	b.desc = d
}

func (b *Base) Persistent() bool {
	b.mu.Lock()
	defer b.unlock()
	return b.persistent
}

func (b *Base) SetPersistent(persistent bool) {
	b.mu.Lock()
	defer b.unlock()
	b.persistent = persistent
}

// Connect establishes the connection. A live non-persistent connection is closed first.
func (b *Base) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.unlock()
	return b.connectLocked(ctx)
}

func (b *Base) connectLocked(ctx context.Context) error {
	if b.conn != nil {
		if b.persistent {
			return nil
		}
		_ = b.conn.Close()
		b.conn = nil
	}

	key := b.engine + "|" + b.desc.Key()
	if b.persistent {
		if shared := acquirePersistent(key); shared != nil {
			b.conn = shared
			b.lastErr = nil
			return nil
		}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.details.ConnectTimeout)
		defer cancel()
	}

	start := time.Now()
	conn, err := b.open(ctx)
	b.observeOperation("connect", time.Since(start), err, 0, nil)
	if err != nil {
		b.lastErr = err
		b.logError(ctx, "Failed to connect to database", err, map[string]interface{}{
			"engine": b.engine,
			"dsn":    b.desc.String(),
		})
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	conn.SetMaxOpenConns(b.details.MaxOpenConns)
	conn.SetMaxIdleConns(b.details.MaxIdleConns)
	conn.SetConnMaxLifetime(b.details.ConnMaxLifetime)

	if b.persistent {
		conn = storePersistent(key, conn)
	}
	b.conn = conn
	b.lastErr = nil
	b.logInfo(ctx, "Connected to database", map[string]interface{}{
		"engine":     b.engine,
		"dsn":        b.desc.String(),
		"persistent": b.persistent,
	})
	return nil
}

func (b *Base) open(ctx context.Context) (*sql.DB, error) {
	var pool *sql.DB
	if b.opener != nil {
		var err error
		if pool, err = b.opener(ctx, b.desc); err != nil {
			return nil, err
		}
	}

	conn, err := b.dialect.Open(ctx, b.desc, pool)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// Disconnect closes a non-persistent connection.
func (b *Base) Disconnect() error {
	b.mu.Lock()
	defer b.unlock()
	return b.disconnectLocked()
}

func (b *Base) disconnectLocked() error {
	if b.conn == nil || b.persistent {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	if err != nil {
		b.lastErr = err
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// Reconnect disconnects, swaps the descriptor and connects again. Engines without an
// in-place database switch use it for SelectDatabase.
func (b *Base) Reconnect(ctx context.Context, desc dsn.Descriptor) error {
	b.mu.Lock()
	defer b.unlock()

	start := time.Now()
	if b.persistent {
		// The shared handle stays with its original descriptor.
		b.conn = nil
	}
	if err := b.disconnectLocked(); err != nil {
		return err
	}
	b.desc = desc
	err := b.connectLocked(ctx)
	b.observeOperation("select_database", time.Since(start), err, 0, nil)
	return err
}

func (b *Base) IsConnected() bool {
	b.mu.Lock()
	defer b.unlock()
	return b.conn != nil
}

// SQLDB returns the native handle, or nil when not connected.
func (b *Base) SQLDB() *sql.DB {
	b.mu.Lock()
	defer b.unlock()
	return b.conn
}

// Prepare counts the statement, connects when needed and returns it unexecuted.
func (b *Base) Prepare(ctx context.Context, query string) (*Statement, error) {
	b.mu.Lock()
	defer b.unlock()

	b.numPrepared++
	if b.conn == nil {
		if err := b.connectLocked(ctx); err != nil {
			return nil, err
		}
	}
	b.observeOperation("prepare", 0, nil, 0, map[string]interface{}{"query": query})
	return &Statement{base: b, query: query}, nil
}

func (b *Base) EscapeString(s string) string {
	return b.dialect.Escape(s)
}

func (b *Base) LastError() string {
	b.mu.Lock()
	defer b.unlock()
	if b.lastErr == nil {
		return ""
	}
	_, text := b.dialect.DecodeError(b.lastErr)
	return text
}

func (b *Base) LastErrorCode() int {
	b.mu.Lock()
	defer b.unlock()
	if b.lastErr == nil {
		return 0
	}
	code, _ := b.dialect.DecodeError(b.lastErr)
	return code
}

// LastErrorFullString returns "code: text" when the engine reports numeric codes, the
// bare text otherwise, and "" when there is no error.
func (b *Base) LastErrorFullString() string {
	b.mu.Lock()
	defer b.unlock()
	if b.lastErr == nil {
		return ""
	}
	code, text := b.dialect.DecodeError(b.lastErr)
	if code != 0 {
		return fmt.Sprintf("%d: %s", code, text)
	}
	return text
}

func (b *Base) LastErrorPortableCode() PortableCode {
	b.mu.Lock()
	defer b.unlock()
	if b.lastErr == nil {
		return NoError
	}
	return b.dialect.Classify(b.lastErr, b.lastQuery)
}

// LastErr returns the raw last error.
func (b *Base) LastErr() error {
	b.mu.Lock()
	defer b.unlock()
	return b.lastErr
}

func (b *Base) BeginTransaction(ctx context.Context) error {
	return b.Exec(ctx, "BEGIN")
}

func (b *Base) Commit(ctx context.Context) error {
	return b.Exec(ctx, "COMMIT")
}

func (b *Base) Rollback(ctx context.Context) error {
	return b.Exec(ctx, "ROLLBACK")
}

// Exec sends a control statement on the live connection. It is not counted in Stats.
func (b *Base) Exec(ctx context.Context, query string) error {
	b.mu.Lock()
	defer b.unlock()

	if b.conn == nil {
		if err := b.connectLocked(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	_, err := b.conn.ExecContext(ctx, query)
	b.lastQuery = query
	b.observeOperation("exec", time.Since(start), err, 0, map[string]interface{}{"query": query})
	if err != nil {
		b.lastErr = err
		return &QueryError{Query: query, Code: b.dialect.Classify(err, query), Err: err}
	}
	b.lastErr = nil
	return nil
}

// QueryValue prepares and executes query and returns the first column of its first row,
// or nil when there is no row.
func (b *Base) QueryValue(ctx context.Context, query string) (any, error) {
	stmt, err := b.Prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	if _, err := stmt.Execute(ctx); err != nil {
		return nil, err
	}
	row, ok := stmt.FetchRow()
	if !ok || len(row) == 0 {
		return nil, nil
	}
	return row[0], nil
}

func (b *Base) Stats() Stats {
	b.mu.Lock()
	defer b.unlock()
	return Stats{
		NumPrepared:  b.numPrepared,
		NumExecuted:  b.numExecuted,
		TotalSQLTime: b.totalSQLTime,
	}
}

func (b *Base) QueryPlaceholderString(start, end int) string {
	return QueryPlaceholderString(start, end)
}

func (b *Base) SetColumnsPlaceholderString(columns []string, start int) string {
	return SetColumnsPlaceholderString(columns, start)
}

func (b *Base) RealColumnName(expr string) string {
	return RealColumnName(expr)
}

// execute runs query, the bound form of template, and buffers its result. Whether a
// result set is read is decided on template, so bound values cannot change it.
func (b *Base) execute(ctx context.Context, template, query string) (*result, error) {
	b.mu.Lock()
	defer b.unlock()

	b.lastQuery = query
	if b.conn == nil {
		b.lastErr = ErrNotConnected
		return nil, &QueryError{Query: query, Code: UnknownError, Err: ErrNotConnected}
	}

	start := time.Now()
	res, err := run(ctx, b.conn, returnsRows(template), query)
	elapsed := time.Since(start)

	var size int64
	if res != nil {
		size = res.size()
	}
	b.observeOperation("execute", elapsed, err, size, map[string]interface{}{"query": query})

	if err != nil {
		b.lastErr = err
		qe := &QueryError{Query: query, Code: b.dialect.Classify(err, query), Err: err}
		if rd, ok := b.dialect.(RetryDialect); ok {
			qe.Retryable = rd.Retryable(err)
		}
		fields := map[string]interface{}{"engine": b.engine, "query": query}
		switch {
		case qe.Retryable:
			b.logWarn(ctx, "Query failed, retryable", err, fields)
		case qe.Code == UnknownError:
			b.logError(ctx, "Query failed", err, fields)
		}
		return nil, qe
	}

	b.lastErr = nil
	b.numExecuted++
	b.totalSQLTime += elapsed
	return res, nil
}

func run(ctx context.Context, conn *sql.DB, read bool, query string) (*result, error) {
	if !read {
		r, err := conn.ExecContext(ctx, query)
		if err != nil {
			return nil, err
		}
		affected, err := r.RowsAffected()
		if err != nil {
			affected = 0
		}
		return &result{affected: affected}, nil
	}

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &result{columns: columns, read: true}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if raw, ok := v.([]byte); ok {
				values[i] = string(raw)
			}
		}
		res.rows = append(res.rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

var readVerbs = map[string]struct{}{
	"SELECT": {}, "SHOW": {}, "WITH": {}, "EXPLAIN": {}, "DESCRIBE": {}, "DESC": {},
	"VALUES": {}, "PRAGMA": {}, "TABLE": {},
}

// returnsRows decides whether query produces a result set: by its leading keyword, or
// by a RETURNING clause outside quoted text and comments. It is given the statement
// text before values are bound.
func returnsRows(query string) bool {
	if _, ok := readVerbs[Verb(query)]; ok {
		return true
	}
	return hasKeyword(query, "RETURNING")
}

// Verb returns the upper-cased leading keyword of query. Leading comments and opening
// parentheses are skipped.
func Verb(query string) string {
	q := skipLeading(query)
	end := strings.IndexFunc(q, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end >= 0 {
		q = q[:end]
	}
	return strings.ToUpper(q)
}

func skipLeading(q string) string {
	for {
		q = strings.TrimLeft(q, " \t\r\n(")
		switch {
		case strings.HasPrefix(q, "--"), strings.HasPrefix(q, "#"):
			nl := strings.IndexByte(q, '\n')
			if nl < 0 {
				return ""
			}
			q = q[nl+1:]
		case strings.HasPrefix(q, "/*"):
			end := strings.Index(q[2:], "*/")
			if end < 0 {
				return ""
			}
			q = q[end+4:]
		default:
			return q
		}
	}
}

// hasKeyword reports whether keyword appears in query as a whole word outside quoted
// literals, quoted identifiers and comments.
func hasKeyword(query, keyword string) bool {
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(query, i)
		case c == '#' || strings.HasPrefix(query[i:], "--"):
			nl := strings.IndexByte(query[i:], '\n')
			if nl < 0 {
				return false
			}
			i += nl + 1
		case strings.HasPrefix(query[i:], "/*"):
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				return false
			}
			i += end + 4
		case isWordByte(c):
			j := i
			for j < len(query) && isWordByte(query[j]) {
				j++
			}
			if strings.EqualFold(query[i:j], keyword) {
				return true
			}
			i = j
		default:
			i++
		}
	}
	return false
}

// skipQuoted returns the index just past the quoted section starting at i. A doubled
// quote stays inside the section, as does a backslash-escaped one in string literals.
func skipQuoted(q string, i int) int {
	quote := q[i]
	for j := i + 1; j < len(q); j++ {
		switch q[j] {
		case '\\':
			if quote != '`' {
				j++
			}
		case quote:
			if j+1 < len(q) && q[j+1] == quote {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(q)
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 0x80 ||
		'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

// Logger returns the logger attached with WithLogger, or nil.
func (b *Base) Logger() Logger {
	return b.logger
}

func (b *Base) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if b.logger != nil {
		b.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (b *Base) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if b.logger != nil {
		b.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func (b *Base) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if b.logger != nil {
		b.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
