package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerClient wraps a zap logger with the map-of-fields API used across rwe.
//
// LoggerClient implements the Logger interface.
type LoggerClient struct {
	// Zap is the underlying logger, exposed for zap-specific use such as fxevent.ZapLogger.
	Zap *zap.Logger

	tracingEnabled bool
}

// NewLoggerClient builds a logger from cfg.
//
// Entries are JSON (unless cfg.Encoding is console) with an ISO8601 "timestamp",
// capital level names, the caller, and "pid" and "service" fields. An unknown level
// is an error.
//
//	log, err := logger.NewLoggerClient(logger.Config{Level: logger.Info, ServiceName: "rwe"})
//	if err != nil {
//	    return err
//	}
//	log.Info("host started", nil)
func NewLoggerClient(cfg Config) (*LoggerClient, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.EncodeCaller = zapcore.FullCallerEncoder
	encoderCfg.EncodeDuration = zapcore.MillisDurationEncoder

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = EncodingJSON
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		EncoderConfig:    encoderCfg,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
		InitialFields: map[string]interface{}{
			"pid":     os.Getpid(),
			"service": cfg.ServiceName,
		},
	}

	callerSkip := cfg.CallerSkip
	if callerSkip <= 0 {
		callerSkip = 1
	}

	zl, err := config.Build(zap.AddCaller(), zap.AddCallerSkip(callerSkip+1))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return &LoggerClient{
		Zap:            zl,
		tracingEnabled: cfg.EnableTracing,
	}, nil
}

// NewWithCore wraps an existing zap core, for example zaptest/observer in tests.
func NewWithCore(core zapcore.Core, enableTracing bool) *LoggerClient {
	return &LoggerClient{
		Zap:            zap.New(core),
		tracingEnabled: enableTracing,
	}
}

// Named returns a child logger whose entries carry name as the logger name.
func (l *LoggerClient) Named(name string) *LoggerClient {
	return &LoggerClient{Zap: l.Zap.Named(name), tracingEnabled: l.tracingEnabled}
}

// With returns a child logger that adds fields to every entry.
func (l *LoggerClient) With(fields map[string]interface{}) *LoggerClient {
	return &LoggerClient{
		Zap:            l.Zap.With(l.convertToZapFields(nil, fields)...),
		tracingEnabled: l.tracingEnabled,
	}
}

// Sync flushes buffered entries.
func (l *LoggerClient) Sync() error {
	return l.Zap.Sync()
}
