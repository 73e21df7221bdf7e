// Package dbdata runs generic SELECT, INSERT, UPDATE and DELETE statements against
// the host's database manager.
package dbdata

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aalemi-dev/rwe/database"
	"github.com/aalemi-dev/rwe/rwe"
)

const Name = "dbdata"

// Ops.
const (
	OpSelect = "select"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

func init() {
	rwe.RegisterModule(Name, New)
}

var schema = rwe.Schema{
	"tableName":      {Kind: rwe.KindStringList},
	rwe.OpSettingKey: {Default: OpSelect, Kind: rwe.KindString},
	"addToQuery":     {Kind: rwe.KindString},
	"selectColumns":  {Kind: rwe.KindStringList},
	"values":         {Kind: rwe.KindMap},
	"idColumn":       {Kind: rwe.KindString},
	"paging": {Nested: rwe.Schema{
		"limit":  {Default: 0, Kind: rwe.KindInt},
		"offset": {Default: 0, Kind: rwe.KindInt},
	}},
}

// Module is the dbdata module.
//
// select publishes rows and numRows and returns true. insert, update and delete
// return true on success, or the database.PortableCode of a duplicate key or
// foreign key failure. Every other failure is fatal.
type Module struct {
	*rwe.OpModuleBase
}

func New(h *rwe.Host) rwe.Module {
	return &Module{
		OpModuleBase: rwe.NewOpModuleBase(h, Name, schema, OpSelect, OpInsert, OpUpdate, OpDelete),
	}
}

func (m *Module) Execute(ctx context.Context, settings rwe.Settings) any {
	m.PreExecute(settings)
	op, table := m.checkSettings()

	mgr := m.Database()
	if !mgr.IsConnected() {
		if err := mgr.Connect(ctx); err != nil {
			m.Fail("executeModule: failed to establish database connection:",
				"<b>REASON</b>: "+mgr.LastErrorFullString())
		}
	}

	switch op {
	case OpSelect:
		return m.opSelect(ctx, mgr, table)
	case OpInsert:
		return m.opInsert(ctx, mgr, table)
	case OpUpdate:
		return m.opUpdate(ctx, mgr, table)
	case OpDelete:
		return m.opDelete(ctx, mgr, table)
	}
	return false
}

func (m *Module) checkSettings() (op, table string) {
	op = m.Op()
	if op == "" {
		op = OpSelect
	}
	if !m.IsValidOp(op) {
		m.Fail(fmt.Sprintf("_checkSettings: invalid op (%s), valid ops are: %s", op, m.ValidOpsString()))
	}
	if !m.HasDatabase() {
		m.Fail("_checkSettings: no database manager present")
	}
	table = m.SettingStr("tableName", "")
	if table == "" {
		m.Fail("_checkSettings: invalid tableName")
	}
	return op, table
}

func (m *Module) opSelect(ctx context.Context, mgr database.Manager, table string) any {
	query := clauses(
		"SELECT", m.SettingStr("selectColumns", "*"),
		"FROM", table,
		m.SettingStr("addToQuery", ""),
		m.pagingClause(mgr),
	)

	stmt, err := m.run(ctx, mgr, query)
	if err != nil {
		m.failQuery("_op_select", query, mgr)
	}

	m.Publish("rows", stmt.FetchAllAssociative())
	m.Publish("numRows", stmt.RowCount())
	return true
}

func (m *Module) opInsert(ctx context.Context, mgr database.Manager, table string) any {
	columns, args := m.values("_op_insert")
	query := clauses(
		"INSERT INTO", table,
		"("+strings.Join(columns, ", ")+")",
		"VALUES", "("+mgr.QueryPlaceholderString(1, len(columns))+")",
		m.SettingStr("addToQuery", ""),
	)

	if _, err := m.run(ctx, mgr, query, args...); err != nil {
		return m.writeFailure("_op_insert", query, mgr, err)
	}

	if idColumn := m.SettingStr("idColumn", ""); idColumn != "" {
		id, err := mgr.LastInsertedRowID(ctx, m.firstTable(table), idColumn)
		if err != nil {
			m.Fail("_op_insert: failed to read the generated id",
				"<b>REASON</b>: "+mgr.LastErrorFullString())
		}
		m.Publish("lastInsertId", id)
	}
	return true
}

func (m *Module) opUpdate(ctx context.Context, mgr database.Manager, table string) any {
	columns, args := m.values("_op_update")
	query := clauses(
		"UPDATE", table,
		"SET", mgr.SetColumnsPlaceholderString(columns, 1),
		m.SettingStr("addToQuery", ""),
	)

	if _, err := m.run(ctx, mgr, query, args...); err != nil {
		return m.writeFailure("_op_update", query, mgr, err)
	}
	return true
}

func (m *Module) opDelete(ctx context.Context, mgr database.Manager, table string) any {
	query := clauses("DELETE FROM", table, m.SettingStr("addToQuery", ""))

	if _, err := m.run(ctx, mgr, query); err != nil {
		return m.writeFailure("_op_delete", query, mgr, err)
	}
	return true
}

func (m *Module) run(ctx context.Context, mgr database.Manager, query string, args ...any) (*database.Statement, error) {
	stmt, err := mgr.Prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	return stmt.Execute(ctx, args...)
}

// writeFailure returns the portable code of a known integrity error and fails on
// anything else.
func (m *Module) writeFailure(op, query string, mgr database.Manager, err error) any {
	if code := database.CodeOf(err); code != database.UnknownError {
		return code
	}
	m.failQuery(op, query, mgr)
	return false
}

func (m *Module) failQuery(op, query string, mgr database.Manager) {
	m.Fail(op+": failed to execute query",
		"<b>QUERY</b>: "+query,
		"<b>REASON</b>: "+mgr.LastErrorFullString())
}

// values returns the columns of the values setting in order and their values.
func (m *Module) values(op string) ([]string, []any) {
	vals, _ := m.Setting("values").(rwe.Settings)
	if len(vals) == 0 {
		m.Fail(op + ": no columns/values given")
	}

	columns := make([]string, 0, len(vals))
	for col := range vals {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	args := make([]any, len(columns))
	for i, col := range columns {
		args[i] = vals[col]
	}
	return columns, args
}

func (m *Module) pagingClause(mgr database.Manager) string {
	paging, _ := m.Setting("paging").(rwe.Settings)
	limit, _ := paging["limit"].(int)
	offset, _ := paging["offset"].(int)
	if limit <= 0 {
		return ""
	}
	return mgr.LimitClause(limit, offset)
}

func (m *Module) firstTable(joined string) string {
	if tables, ok := m.Setting("tableName").([]string); ok && len(tables) > 0 {
		return tables[0]
	}
	return joined
}

// clauses joins the non-empty parts of a statement with single spaces.
func clauses(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
