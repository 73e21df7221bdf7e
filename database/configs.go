package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/aalemi-dev/rwe/dsn"
	"github.com/aalemi-dev/rwe/observability"
)

// Config describes a manager for dependency injection.
type Config struct {
	// DSN is the connection string, see package dsn.
	DSN string `koanf:"dsn"`

	// Persistent shares the connection between managers with the same DSN and keeps it
	// open across Disconnect.
	Persistent bool `koanf:"persistent"`

	// ConnectionDetails tunes the native handle.
	ConnectionDetails ConnectionDetails `koanf:"connection"`
}

// ConnectionDetails tunes the native connection handle.
//
// A manager holds one physical connection: BEGIN, SET SESSION and last-insert-id
// calls only behave as expected when every statement reaches the same session, so
// MaxOpenConns above 1 is only safe for read-only workloads.
type ConnectionDetails struct {
	// MaxOpenConns limits open connections. Default: 1.
	MaxOpenConns int `koanf:"max_open_conns"`

	// MaxIdleConns limits idle connections. Default: 1.
	MaxIdleConns int `koanf:"max_idle_conns"`

	// ConnMaxLifetime recycles connections older than this. Zero keeps them forever,
	// which is the default because recycling drops session state.
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`

	// ConnectTimeout bounds Connect when the caller's context has no deadline.
	// Default: 10s.
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

func (c ConnectionDetails) withDefaults() ConnectionDetails {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 1
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 1
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return c
}

// Opener supplies an already opened handle for a descriptor. It replaces dialing and
// is used with sqlmock in tests or with custom transports.
type Opener func(ctx context.Context, desc dsn.Descriptor) (*sql.DB, error)

// Logger is an interface that matches logger.Logger's context-aware methods.
type Logger interface {
	// InfoWithContext logs an informational message with trace context.
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// WarnWithContext logs a warning message with trace context.
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// ErrorWithContext logs an error message with trace context.
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// Option configures a manager at construction.
type Option func(*options)

type options struct {
	logger   Logger
	observer observability.Observer
	details  ConnectionDetails
	opener   Opener
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	o.details = o.details.withDefaults()
	return o
}

// WithLogger attaches a logger for connection lifecycle events.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver attaches an observer notified of every connect, prepare and execute.
// Notifications happen after the manager's lock is released, so the observer may call
// Stats, Descriptor or other manager methods.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithConnectionDetails overrides the connection tuning.
func WithConnectionDetails(d ConnectionDetails) Option {
	return func(o *options) { o.details = d }
}

// WithOpener replaces dialing with fn.
func WithOpener(fn Opener) Option {
	return func(o *options) { o.opener = fn }
}

// Stats holds the cumulative statement counters of a manager.
type Stats struct {
	NumPrepared  int64
	NumExecuted  int64
	TotalSQLTime time.Duration
}
