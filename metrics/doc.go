// Package metrics exposes rwe operations to Prometheus.
//
// NewMetrics builds a registry with the Go runtime, process and build info
// collectors, all labelled with the service name. MetricsCollector creates
// additional series under the rwe namespace, and OperationObserver implements
// observability.Observer so database managers and the module host report into it:
//
//	m := metrics.NewMetrics(metrics.Config{ServiceName: "rwe"})
//	obs := metrics.NewOperationObserver(m, nil)
//	mgr, err := database.Get(dsnString, false, database.WithObserver(obs))
//
// With Config.Address set, FXModule serves the registry at /metrics for the lifetime
// of the application. The CLI leaves it empty unless --metrics-addr is given.
package metrics
