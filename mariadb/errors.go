package mariadb

import (
	"errors"
	"strings"

	"github.com/aalemi-dev/rwe/database"
	"github.com/go-sql-driver/mysql"
)

// MySQL error numbers the manager interprets.
const (
	erDupEntry            = 1062 // ER_DUP_ENTRY
	erDupEntryWithKeyName = 1586 // ER_DUP_ENTRY_WITH_KEY_NAME
	erNoReferencedRow     = 1216 // ER_NO_REFERENCED_ROW
	erRowIsReferenced     = 1217 // ER_ROW_IS_REFERENCED
	erRowIsReferenced2    = 1451 // ER_ROW_IS_REFERENCED_2
	erNoReferencedRow2    = 1452 // ER_NO_REFERENCED_ROW_2
	crConnectionError     = 2002 // CR_CONNECTION_ERROR
	crConnHostError       = 2003 // CR_CONN_HOST_ERROR
	crServerGoneError     = 2006 // CR_SERVER_GONE_ERROR
	crServerLost          = 2013 // CR_SERVER_LOST
	erLockWaitTimeout     = 1205 // ER_LOCK_WAIT_TIMEOUT
	erLockDeadlock        = 1213 // ER_LOCK_DEADLOCK
	erTooManyConnections  = 1040 // ER_CON_COUNT_ERROR
)

// classify maps a native error to a portable code by its error number.
func classify(err error) database.PortableCode {
	if err == nil {
		return database.NoError
	}

	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return database.UnknownError
	}

	switch mysqlErr.Number {
	case erDupEntry, erDupEntryWithKeyName:
		return database.DuplicateKeyEntry
	case erNoReferencedRow, erNoReferencedRow2:
		return database.ChildForeignKeyViolation
	case erRowIsReferenced, erRowIsReferenced2:
		return database.ParentForeignKeyViolation
	default:
		return database.UnknownError
	}
}

// decodeError returns the error number and message of a *mysql.MySQLError, and 0 with
// the error text for anything else.
func decodeError(err error) (int, string) {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return int(mysqlErr.Number), mysqlErr.Message
	}
	return 0, err.Error()
}

// IsRetryable reports whether err is a deadlock, a lock wait timeout or a lost
// connection, after which the same statement may succeed.
func IsRetryable(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case erLockDeadlock, erLockWaitTimeout, erTooManyConnections,
			crConnectionError, crConnHostError, crServerGoneError, crServerLost:
			return true
		}
		return false
	}
	if errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "connection refused"),
		strings.Contains(errMsg, "connection reset"),
		strings.Contains(errMsg, "broken pipe"),
		strings.Contains(errMsg, "server has gone away"):
		return true
	default:
		return false
	}
}

// escapeString escapes s the way mysql_real_escape_string does.
func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '"':
			b.WriteString(`\"`)
		case '\x1a':
			b.WriteString(`\Z`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
