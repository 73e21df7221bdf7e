package metrics_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/aalemi-dev/rwe/metrics"
	"github.com/aalemi-dev/rwe/observability"
)

func TestFXModuleProvidesObserver(t *testing.T) {
	t.Parallel()

	var (
		m         *metrics.Metrics
		collector metrics.MetricsCollector
		obs       observability.Observer
	)
	app := fxtest.New(t,
		metrics.FXModule,
		fx.Supply(metrics.Config{ServiceName: "fx", DisableRuntimeCollectors: true}),
		fx.Populate(&m, &collector, &obs),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, m)
	assert.Same(t, m, collector)
	obs.ObserveOperation(observability.OperationContext{Component: "sqlite", Operation: "connect"})

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestLifecycleServesMetrics(t *testing.T) {
	t.Parallel()

	// Reserve a free port, then hand it to the server.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	m := metrics.NewMetrics(metrics.Config{Address: addr, ServiceName: "served"})
	app := fxtest.New(t,
		fx.Supply(m),
		fx.Invoke(metrics.RegisterMetricsLifecycle),
	)
	app.RequireStart()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://"+addr+"/metrics", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `service="served"`)

	app.RequireStop()
}

func TestLifecycleWithoutAddressIsNoop(t *testing.T) {
	t.Parallel()

	m := metrics.NewMetrics(metrics.Config{DisableRuntimeCollectors: true})
	app := fxtest.New(t,
		fx.Supply(m),
		fx.Invoke(metrics.RegisterMetricsLifecycle),
	)
	app.RequireStart()
	app.RequireStop()
}
