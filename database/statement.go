package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Statement is one SQL text with positional placeholders (:1, :2, ...).
//
// Values are bound at Execute time: every :N token is replaced with the escaped,
// single-quoted literal of the N-th value and the resulting text is sent to the server.
// A Statement may be executed again with new values; each execution replaces the
// buffered result. Statements are not safe for concurrent use.
type Statement struct {
	base  *Base
	query string

	bound    string
	res      *result
	cursor   int
	executed bool
}

type result struct {
	columns  []string
	rows     [][]any
	affected int64
	read     bool
}

func (r *result) size() int64 {
	if r.read {
		return int64(len(r.rows))
	}
	return r.affected
}

// Query returns the SQL text with its placeholders.
func (s *Statement) Query() string {
	return s.query
}

// LastBoundQuery returns the SQL text sent by the latest Execute.
func (s *Statement) LastBoundQuery() string {
	return s.bound
}

// Bind returns the SQL text with args substituted, without executing it.
func (s *Statement) Bind(args ...any) string {
	literals := make([]string, len(args))
	for i, arg := range args {
		literals[i] = s.literal(arg)
	}
	return substitute(s.query, literals)
}

// Execute binds args and runs the statement. On success it returns s so calls can be
// chained; on failure it returns a *QueryError and the manager's last error is set.
func (s *Statement) Execute(ctx context.Context, args ...any) (*Statement, error) {
	s.bound = s.Bind(args...)
	s.res = nil
	s.cursor = 0
	s.executed = false

	res, err := s.base.execute(ctx, s.query, s.bound)
	if err != nil {
		return nil, err
	}
	s.res = res
	s.executed = true
	return s, nil
}

// FetchRow returns the next row in column order, or false when the result is exhausted
// or the statement has not been executed.
func (s *Statement) FetchRow() ([]any, bool) {
	if !s.executed || s.res == nil || s.cursor >= len(s.res.rows) {
		return nil, false
	}
	row := s.res.rows[s.cursor]
	s.cursor++
	out := make([]any, len(row))
	copy(out, row)
	return out, true
}

// FetchAssociative returns the next row keyed by column name.
func (s *Statement) FetchAssociative() (map[string]any, bool) {
	row, ok := s.FetchRow()
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(row))
	for i, col := range s.res.columns {
		out[col] = row[i]
	}
	return out, true
}

// FetchAllAssociative drains the remaining rows. Rows already fetched are not included,
// so calling it after manual fetches yields a partial or empty slice.
func (s *Statement) FetchAllAssociative() []map[string]any {
	rows := []map[string]any{}
	for row, ok := s.FetchAssociative(); ok; row, ok = s.FetchAssociative() {
		rows = append(rows, row)
	}
	return rows
}

// Columns returns the result column names of an executed read statement.
func (s *Statement) Columns() []string {
	if s.res == nil {
		return nil
	}
	return append([]string(nil), s.res.columns...)
}

// RowCount returns the number of rows of an executed read statement.
func (s *Statement) RowCount() int {
	if s.res == nil || !s.res.read {
		return 0
	}
	return len(s.res.rows)
}

// AffectedRowCount returns the number of rows changed by an executed write statement.
func (s *Statement) AffectedRowCount() int64 {
	if s.res == nil || s.res.read {
		return 0
	}
	return s.res.affected
}

func (s *Statement) literal(v any) string {
	var str string
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		str = val
	case []byte:
		str = string(val)
	case bool:
		str = "0"
		if val {
			str = "1"
		}
	case time.Time:
		str = val.Format(time.DateTime)
	case fmt.Stringer:
		str = val.String()
	default:
		str = fmt.Sprint(val)
	}
	return "'" + s.base.EscapeString(str) + "'"
}

// substitute replaces :N tokens with literals[N-1] in one left-to-right pass. A token
// is read up to its last digit before it is resolved, so :10 is never taken for :1,
// and substituted text is never scanned again. Tokens without a value stay literal.
func substitute(query string, literals []string) string {
	if len(literals) == 0 {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != ':' || i+1 >= len(query) || !isDigit(query[i+1]) {
			b.WriteByte(c)
			continue
		}

		j := i + 1
		for j < len(query) && isDigit(query[j]) {
			j++
		}
		n, err := strconv.Atoi(query[i+1 : j])
		if err == nil && n >= 1 && n <= len(literals) {
			b.WriteString(literals[n-1])
		} else {
			b.WriteString(query[i:j])
		}
		i = j - 1
	}
	return b.String()
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
