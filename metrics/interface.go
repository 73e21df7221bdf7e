package metrics

// MetricsCollector creates series in the rwe registry. Names are prefixed with the
// configured namespace and registration panics on a duplicate name, as with
// prometheus.MustRegister.
type MetricsCollector interface {
	CreateCounter(name, help string, labels []string) Counter
	CreateHistogram(name, help string, labels []string, buckets []float64) Histogram
	CreateGauge(name, help string, labels []string) Gauge
}
