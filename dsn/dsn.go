package dsn

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Protocols understood by the parser.
const (
	ProtocolTCP  = "tcp"
	ProtocolUnix = "unix"
)

var (
	engineDialectPattern = regexp.MustCompile(`^(.+?)\((.*?)\)$`)
	protocolPattern      = regexp.MustCompile(`^([^(]+)\((.*?)\)/?(.*?)$`)
)

// reservedKeys name descriptor fields. Query-string options with these keys never
// override the field, whether or not the field ended up populated.
var reservedKeys = map[string]struct{}{
	"engine": {}, "phptype": {}, "dialect": {}, "dbsyntax": {},
	"protocol": {}, "host": {}, "hostspec": {}, "port": {}, "socket": {},
	"database": {}, "username": {}, "password": {},
}

// Descriptor is the normalized form of a connection string.
//
// Exactly one of Host[:Port] or Socket is populated, depending on Protocol.
type Descriptor struct {
	Engine   string `mapstructure:"engine"`
	Dialect  string `mapstructure:"dialect"`
	Protocol string `mapstructure:"protocol"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Socket   string `mapstructure:"socket"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// Options holds the extra key/value pairs of the query-string suffix.
	Options map[string]string `mapstructure:"-"`
}

// Parse parses a connection string. It never fails; unrecognised parts stay empty.
func Parse(s string) Descriptor {
	var d Descriptor

	head, rest, found := strings.Cut(s, "://")
	if m := engineDialectPattern.FindStringSubmatch(head); m != nil {
		d.Engine = m[1]
		d.Dialect = m[2]
	} else {
		d.Engine = head
	}
	if d.Dialect == "" {
		d.Dialect = d.Engine
	}

	if !found || rest == "" {
		return d
	}

	// Credentials end at the last '@' so passwords may contain one.
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		user, pass, hasPass := strings.Cut(rest[:at], ":")
		d.Username = decode(user)
		if hasPass {
			d.Password = decode(pass)
		}
		rest = rest[at+1:]
	}

	var opts string
	if m := protocolPattern.FindStringSubmatch(rest); m != nil {
		d.Protocol = m[1]
		opts = m[2]
		rest = m[3]
	} else {
		if proto, after, ok := strings.Cut(rest, "+"); ok {
			d.Protocol = proto
			rest = after
		}
		if before, after, ok := strings.Cut(rest, "/"); ok {
			opts = before
			rest = after
		} else {
			opts = rest
			rest = ""
		}
	}

	if d.Protocol == "" {
		d.Protocol = ProtocolTCP
	}

	opts = decode(opts)
	switch d.Protocol {
	case ProtocolTCP:
		if host, port, ok := strings.Cut(opts, ":"); ok {
			d.Host = host
			// "a:b:c" keeps only the second field as port.
			port, _, _ = strings.Cut(port, ":")
			d.Port = port
		} else {
			d.Host = opts
		}
	case ProtocolUnix:
		d.Socket = opts
	}

	if rest == "" {
		return d
	}

	database, query, hasQuery := strings.Cut(rest, "?")
	d.Database = decode(database)
	if hasQuery {
		d.applyQuery(query)
	}
	return d
}

func (d *Descriptor) applyQuery(query string) {
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if _, reserved := reservedKeys[key]; reserved {
			continue
		}
		if _, seen := d.Options[key]; seen {
			continue
		}
		if d.Options == nil {
			d.Options = make(map[string]string)
		}
		d.Options[key] = decode(value)
	}
}

// Option returns the named query-string option, or def when it is absent.
func (d Descriptor) Option(key, def string) string {
	if v, ok := d.Options[key]; ok {
		return v
	}
	return def
}

// WithDatabase returns a copy of d pointing at another database.
func (d Descriptor) WithDatabase(name string) Descriptor {
	c := d
	c.Options = make(map[string]string, len(d.Options))
	for k, v := range d.Options {
		c.Options[k] = v
	}
	c.Database = name
	return c
}

// Key identifies the endpoint and credentials of d. Two descriptors with the same key
// can share a persistent connection.
func (d Descriptor) Key() string {
	return d.Format()
}

// Format renders d as a connection string that Parse maps back to d.
func (d Descriptor) Format() string {
	return d.render(d.Password)
}

// String renders d with the password masked.
func (d Descriptor) String() string {
	pass := d.Password
	if pass != "" {
		pass = "xxxxx"
	}
	return d.render(pass)
}

func (d Descriptor) render(password string) string {
	var b strings.Builder

	b.WriteString(d.Engine)
	if d.Dialect != "" && d.Dialect != d.Engine {
		fmt.Fprintf(&b, "(%s)", d.Dialect)
	}
	b.WriteString("://")

	if d.Username != "" || password != "" {
		b.WriteString(encode(d.Username))
		if password != "" {
			b.WriteString(":")
			b.WriteString(encode(password))
		}
		b.WriteString("@")
	}

	protocol := d.Protocol
	if protocol == "" {
		protocol = ProtocolTCP
	}
	switch protocol {
	case ProtocolUnix:
		fmt.Fprintf(&b, "unix(%s)", encode(d.Socket, '/'))
	default:
		hostspec := d.Host
		if d.Port != "" {
			hostspec += ":" + d.Port
		}
		fmt.Fprintf(&b, "%s(%s)", protocol, hostspec)
	}

	if d.Database != "" || len(d.Options) > 0 {
		b.WriteString("/")
		b.WriteString(encode(d.Database))
	}

	if len(d.Options) > 0 {
		keys := make([]string, 0, len(d.Options))
		for k := range d.Options {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i == 0 {
				b.WriteString("?")
			} else {
				b.WriteString("&")
			}
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(encode(d.Options[k]))
		}
	}

	return b.String()
}

// decode percent-decodes s. Malformed escapes are kept as they are and '+' is not a space.
func decode(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	if out, err := url.PathUnescape(s); err == nil {
		return out
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// encode percent-encodes everything except unreserved characters and those in keep.
func encode(s string, keep ...byte) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || strings.IndexByte(string(keep), c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
