package metrics

// DefaultNamespace prefixes every metric created through the collector.
const DefaultNamespace = "rwe"

// Config controls the Prometheus registry and its HTTP endpoint.
type Config struct {
	// Address is where /metrics is served, for example ":9091". Empty keeps the
	// registry in memory without serving it, which is the default for one-shot CLI runs.
	Address string `koanf:"address" validate:"omitempty,hostname_port"`

	// ServiceName is added as the "service" label of every series.
	ServiceName string `koanf:"service_name"`

	// Namespace prefixes metric names. Default: rwe.
	Namespace string `koanf:"namespace"`

	// DisableRuntimeCollectors leaves out the Go runtime, process and build info
	// collectors.
	DisableRuntimeCollectors bool `koanf:"disable_runtime_collectors"`

	// DurationBuckets overrides the operation duration histogram buckets, in seconds.
	DurationBuckets []float64 `koanf:"duration_buckets"`
}

func (c Config) namespace() string {
	if c.Namespace == "" {
		return DefaultNamespace
	}
	return c.Namespace
}
