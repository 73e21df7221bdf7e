package mariadb

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aalemi-dev/rwe/dsn"
	"github.com/go-sql-driver/mysql"
)

// Connection holds the driver parameters derived from a descriptor.
type Connection struct {
	// Network is "tcp" or "unix".
	Network string

	// Address is host:port for tcp and the socket path for unix.
	Address string

	User     string
	Password string
	DbName   string

	// Charset specifies the character set to use for the connection.
	// Default: "utf8mb4"
	Charset string

	// ParseTime enables parsing of DATE and DATETIME values to time.Time.
	ParseTime bool

	// Loc specifies the location for parsing timestamps.
	// Default: "Local"
	Loc string

	// TLS specifies the TLS configuration name.
	TLS string

	// Timeout, ReadTimeout and WriteTimeout are Go duration strings such as "10s".
	Timeout      string
	ReadTimeout  string
	WriteTimeout string
}

// connectionFromDescriptor reads the connection parameters of d. A tcp descriptor
// without a host connects to localhost.
func connectionFromDescriptor(d dsn.Descriptor) Connection {
	c := Connection{
		Network:      "tcp",
		User:         d.Username,
		Password:     d.Password,
		DbName:       d.Database,
		Charset:      d.Option("charset", "utf8mb4"),
		Loc:          d.Option("loc", "Local"),
		TLS:          d.Option("tls", ""),
		Timeout:      d.Option("timeout", ""),
		ReadTimeout:  d.Option("readTimeout", ""),
		WriteTimeout: d.Option("writeTimeout", ""),
	}
	c.ParseTime, _ = strconv.ParseBool(d.Option("parseTime", "false"))

	if d.Protocol == dsn.ProtocolUnix {
		c.Network = "unix"
		c.Address = d.Socket
		return c
	}

	host := d.Host
	if host == "" {
		host = "localhost"
	}
	c.Address = host
	if d.Port != "" {
		c.Address += ":" + d.Port
	}
	return c
}

// FormatDSN renders c in the go-sql-driver/mysql DSN format.
func (c Connection) FormatDSN() (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = c.Network
	cfg.Addr = c.Address
	cfg.DBName = c.DbName
	cfg.ParseTime = c.ParseTime
	cfg.TLSConfig = c.TLS
	cfg.Params = map[string]string{"charset": c.Charset}

	loc, err := time.LoadLocation(c.Loc)
	if err != nil {
		return "", fmt.Errorf("invalid loc option %q: %w", c.Loc, err)
	}
	cfg.Loc = loc

	for _, t := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"timeout", c.Timeout, &cfg.Timeout},
		{"readTimeout", c.ReadTimeout, &cfg.ReadTimeout},
		{"writeTimeout", c.WriteTimeout, &cfg.WriteTimeout},
	} {
		if t.value == "" {
			continue
		}
		d, err := time.ParseDuration(t.value)
		if err != nil {
			return "", fmt.Errorf("invalid %s option %q: %w", t.name, t.value, err)
		}
		*t.dst = d
	}

	return cfg.FormatDSN(), nil
}
