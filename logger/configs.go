package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Log levels accepted in Config.Level.
const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Output encodings accepted in Config.Encoding.
const (
	EncodingJSON    = "json"
	EncodingConsole = "console"
)

// Config controls the logger built by NewLoggerClient.
type Config struct {
	// Level is the minimum level written: debug, info, warning or error. Default: info.
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warning error"`

	// EnableTracing adds trace_id and span_id to entries logged with a context that
	// carries a recording span.
	EnableTracing bool `koanf:"enable_tracing"`

	// ServiceName fills the "service" field of every entry.
	ServiceName string `koanf:"service_name"`

	// CallerSkip is the number of wrapper frames between the caller and zap. Default: 1.
	CallerSkip int `koanf:"caller_skip"`

	// Encoding is json or console. Default: json.
	Encoding string `koanf:"encoding" validate:"omitempty,oneof=json console"`

	// OutputPaths are zap sink URLs. Default: stderr.
	OutputPaths []string `koanf:"output_paths"`
}

// ParseLevel maps a configured level name to a zap level. The empty string means info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case Debug:
		return zapcore.DebugLevel, nil
	case Info, "":
		return zapcore.InfoLevel, nil
	case Warning, "warn":
		return zapcore.WarnLevel, nil
	case Error:
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
}
