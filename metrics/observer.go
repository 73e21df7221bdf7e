package metrics

import (
	"errors"
	"strconv"

	"github.com/aalemi-dev/rwe/database"
	"github.com/aalemi-dev/rwe/observability"
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// OperationObserver turns observability events into Prometheus series:
//
//	rwe_operations_total{component, operation, status}
//	rwe_operation_duration_seconds{component, operation}
//	rwe_operation_rows_total{component, operation}
//	rwe_operation_errors_total{component, operation, code}
//	rwe_last_operation_timestamp_seconds{component}
//
// code is the portable database code of the error, or "abort" for module aborts.
type OperationObserver struct {
	operations Counter
	duration   Histogram
	rows       Counter
	errors     Counter
	lastSeen   Gauge
}

// NewOperationObserver registers the operation series in mc.
func NewOperationObserver(mc MetricsCollector, buckets []float64) *OperationObserver {
	return &OperationObserver{
		operations: mc.CreateCounter("operations_total",
			"Completed operations by component, operation and status.",
			[]string{"component", "operation", "status"}),
		duration: mc.CreateHistogram("operation_duration_seconds",
			"Operation wall time in seconds.",
			[]string{"component", "operation"}, buckets),
		rows: mc.CreateCounter("operation_rows_total",
			"Rows returned or affected by operations.",
			[]string{"component", "operation"}),
		errors: mc.CreateCounter("operation_errors_total",
			"Failed operations by portable error code.",
			[]string{"component", "operation", "code"}),
		lastSeen: mc.CreateGauge("last_operation_timestamp_seconds",
			"Unix time of the last completed operation per component.",
			[]string{"component"}),
	}
}

// ObserveOperation implements observability.Observer.
func (o *OperationObserver) ObserveOperation(ctx observability.OperationContext) {
	status := StatusOK
	if ctx.Error != nil {
		status = StatusError
		o.errors.WithLabelValues(ctx.Component, ctx.Operation, errorCode(ctx.Error)).Inc()
	}

	o.operations.WithLabelValues(ctx.Component, ctx.Operation, status).Inc()
	o.duration.WithLabelValues(ctx.Component, ctx.Operation).Observe(ctx.Duration.Seconds())
	if ctx.Size > 0 {
		o.rows.WithLabelValues(ctx.Component, ctx.Operation).Add(float64(ctx.Size))
	}
	o.lastSeen.WithLabelValues(ctx.Component).SetToCurrentTime()
}

// aborter is implemented by the host's abort error.
type aborter interface {
	ExitStatus() int
}

func errorCode(err error) string {
	var ab aborter
	if errors.As(err, &ab) {
		return "abort"
	}
	return strconv.Itoa(int(database.CodeOf(err)))
}
