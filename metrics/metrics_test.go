package metrics_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalemi-dev/rwe/database"
	"github.com/aalemi-dev/rwe/metrics"
	"github.com/aalemi-dev/rwe/observability"
)

func newTestMetrics(t *testing.T) *metrics.Metrics {
	t.Helper()
	return metrics.NewMetrics(metrics.Config{
		ServiceName:              t.Name(),
		DisableRuntimeCollectors: true,
	})
}

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.NewMetrics(metrics.Config{ServiceName: "rwe"})
	require.NotNil(t, m.Registry)
	assert.Nil(t, m.Server)

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	served := metrics.NewMetrics(metrics.Config{Address: ":0", DisableRuntimeCollectors: true})
	require.NotNil(t, served.Server)
	assert.Equal(t, ":0", served.Server.Addr)
}

func TestCollectorPrefixesNamespace(t *testing.T) {
	t.Parallel()

	m := metrics.NewMetrics(metrics.Config{Namespace: "custom", ServiceName: "svc", DisableRuntimeCollectors: true})
	m.CreateCounter("things_total", "help", []string{"kind"}).WithLabelValues("a").Add(2)
	m.CreateGauge("level", "help", nil).Set(4)
	m.CreateHistogram("latency_seconds", "help", nil, []float64{1}).Observe(0.5)

	assert.Equal(t, 3, testutil.CollectAndCount(m.Registry))
	expected := `
# HELP custom_things_total help
# TYPE custom_things_total counter
custom_things_total{kind="a",service="svc"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "custom_things_total"))
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	m.CreateCounter("dup_total", "help", nil)
	assert.Panics(t, func() { m.CreateCounter("dup_total", "help", nil) })
}

type abortLike struct{}

func (abortLike) Error() string   { return "aborted" }
func (abortLike) ExitStatus() int { return 1 }

func TestOperationObserver(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	var obs observability.Observer = metrics.NewOperationObserver(m, nil)

	obs.ObserveOperation(observability.OperationContext{
		Component: "mysql", Operation: "execute", Resource: "shop",
		Duration: 5 * time.Millisecond, Size: 3,
	})
	obs.ObserveOperation(observability.OperationContext{
		Component: "mysql", Operation: "execute", Resource: "shop",
		Duration: time.Millisecond,
		Error:    &database.QueryError{Code: database.DuplicateKeyEntry, Err: errors.New("1062")},
	})
	obs.ObserveOperation(observability.OperationContext{
		Component: "rwe", Operation: "execute_module", Resource: "dummy",
		Error: fmt.Errorf("wrapped: %w", abortLike{}),
	})

	expected := `
# HELP rwe_operations_total Completed operations by component, operation and status.
# TYPE rwe_operations_total counter
rwe_operations_total{component="mysql",operation="execute",service="TestOperationObserver",status="error"} 1
rwe_operations_total{component="mysql",operation="execute",service="TestOperationObserver",status="ok"} 1
rwe_operations_total{component="rwe",operation="execute_module",service="TestOperationObserver",status="error"} 1
# HELP rwe_operation_rows_total Rows returned or affected by operations.
# TYPE rwe_operation_rows_total counter
rwe_operation_rows_total{component="mysql",operation="execute",service="TestOperationObserver"} 3
# HELP rwe_operation_errors_total Failed operations by portable error code.
# TYPE rwe_operation_errors_total counter
rwe_operation_errors_total{code="1000",component="mysql",operation="execute",service="TestOperationObserver"} 1
rwe_operation_errors_total{code="abort",component="rwe",operation="execute_module",service="TestOperationObserver"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected),
		"rwe_operations_total", "rwe_operation_rows_total", "rwe_operation_errors_total"))

	assert.Equal(t, 2, testutil.CollectAndCount(m.Registry, "rwe_operation_duration_seconds"))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Registry, "rwe_last_operation_timestamp_seconds"))
}

func TestOperationObserverUnknownError(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	obs := metrics.NewOperationObserver(m, []float64{0.1, 1})
	obs.ObserveOperation(observability.OperationContext{
		Component: "postgresql", Operation: "connect", Error: database.ErrConnectionFailed,
	})

	expected := `
# HELP rwe_operation_errors_total Failed operations by portable error code.
# TYPE rwe_operation_errors_total counter
rwe_operation_errors_total{code="9999",component="postgresql",operation="connect",service="TestOperationObserverUnknownError"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "rwe_operation_errors_total"))
}
