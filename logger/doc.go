// Package logger is the zap-backed structured logger of rwe.
//
// NewLoggerClient returns a *LoggerClient implementing Logger. Every method takes a
// message, an optional error and optional field maps:
//
//	log, err := logger.NewLoggerClient(logger.Config{
//	    Level:         logger.Debug,
//	    EnableTracing: true,
//	    ServiceName:   "rwe",
//	})
//	log.InfoWithContext(ctx, "module executed", nil, map[string]interface{}{
//	    "module":       "dbdata",
//	    "execution_id": id,
//	})
//
// With EnableTracing, the *WithContext methods add the OpenTelemetry trace_id and
// span_id of the recording span carried by ctx.
//
// Libraries in this module never import the concrete client. The host, the database
// managers and the engines declare a small Logger interface with the methods they
// use, and log nothing when none is configured.
package logger
