package database

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	aliasPattern     = regexp.MustCompile(`(?i).*\s+AS\s+(.+)`)
	qualifierPattern = regexp.MustCompile(`.+\.(.*)`)
)

// QueryPlaceholderString returns ":start, :start+1, ..., :end", or "" when end < start.
func QueryPlaceholderString(start, end int) string {
	if end < start {
		return ""
	}
	parts := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		parts = append(parts, ":"+strconv.Itoa(i))
	}
	return strings.Join(parts, ", ")
}

// SetColumnsPlaceholderString returns "c1 = :start, c2 = :start+1, ..." for an UPDATE.
func SetColumnsPlaceholderString(columns []string, start int) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = col + " = :" + strconv.Itoa(start+i)
	}
	return strings.Join(parts, ", ")
}

// RealColumnName returns the alias after AS when present, else the part after the last
// qualifier dot, else expr unchanged.
func RealColumnName(expr string) string {
	if m := aliasPattern.FindStringSubmatch(expr); m != nil {
		return m[1]
	}
	if m := qualifierPattern.FindStringSubmatch(expr); m != nil {
		return m[1]
	}
	return expr
}

// AddSlashes is the generic escape for engines without their own: it puts a backslash
// before single quotes, double quotes, backslashes and NUL bytes.
func AddSlashes(s string) string {
	if !strings.ContainsAny(s, "'\"\\\x00") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\'', '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
