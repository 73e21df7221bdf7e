package postgres

import (
	"strings"

	"github.com/aalemi-dev/rwe/dsn"
)

// Connection holds the parameters required to connect to a PostgreSQL database.
type Connection struct {
	// Host is the server hostname, or the socket directory for the unix protocol.
	Host string

	Port     string
	User     string
	Password string `json:"-"` //nolint:gosec
	DbName   string

	// Options are command-line options sent to the server at connection start.
	Options string

	// SSLMode specifies the SSL mode for the connection (e.g., "disable", "require", "verify-ca", "verify-full")
	SSLMode string

	// ConnectTimeout is the connect timeout in seconds.
	ConnectTimeout string
}

// connectionFromDescriptor reads the connection parameters of d.
func connectionFromDescriptor(d dsn.Descriptor) Connection {
	c := Connection{
		Host:           d.Host,
		Port:           d.Port,
		User:           d.Username,
		Password:       d.Password,
		DbName:         d.Database,
		Options:        d.Option("options", ""),
		SSLMode:        d.Option("sslmode", ""),
		ConnectTimeout: d.Option("connect_timeout", ""),
	}
	if d.Protocol == dsn.ProtocolUnix {
		c.Host = d.Socket
	}
	return c
}

// ConnString renders c as a keyword/value connection string. Empty parameters are
// omitted; database, user, password and options are quoted.
func (c Connection) ConnString() string {
	var parts []string
	add := func(key, value string, quoted bool) {
		if value == "" {
			return
		}
		if quoted {
			value = quoteValue(value)
		}
		parts = append(parts, key+"="+value)
	}

	add("host", c.Host, false)
	add("port", c.Port, false)
	add("dbname", c.DbName, true)
	add("user", c.User, true)
	add("password", c.Password, true)
	add("options", c.Options, true)
	add("sslmode", c.SSLMode, false)
	add("connect_timeout", c.ConnectTimeout, false)
	return strings.Join(parts, " ")
}

func quoteValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
