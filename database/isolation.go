package database

// IsolationLevel is a transaction isolation level. The numeric values are stable.
type IsolationLevel int

const (
	ReadUncommitted IsolationLevel = 1
	ReadCommitted   IsolationLevel = 2
	RepeatableRead  IsolationLevel = 3
	Serializable    IsolationLevel = 4
)

// String returns the SQL spelling of the level.
func (l IsolationLevel) String() string {
	switch l {
	case ReadUncommitted:
		return "READ UNCOMMITTED"
	case ReadCommitted:
		return "READ COMMITTED"
	case RepeatableRead:
		return "REPEATABLE READ"
	case Serializable:
		return "SERIALIZABLE"
	default:
		return ""
	}
}

// Valid reports whether l is one of the four defined levels.
func (l IsolationLevel) Valid() bool {
	return l >= ReadUncommitted && l <= Serializable
}
