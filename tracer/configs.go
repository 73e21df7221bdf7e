package tracer

// Config controls the tracer provider.
type Config struct {
	// ServiceName fills the service.name resource attribute.
	ServiceName string `koanf:"service_name"`

	// AppEnv fills deployment.environment.
	AppEnv string `koanf:"app_env"`

	// EnableExport sends spans to an OTLP/HTTP collector. Without it spans are
	// recorded (so logs carry trace ids) but never leave the process.
	EnableExport bool `koanf:"enable_export"`

	// Endpoint is the collector host:port. Empty falls back to the standard
	// OTEL_EXPORTER_OTLP_ENDPOINT variables.
	Endpoint string `koanf:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `koanf:"insecure"`

	// SampleRatio is the fraction of new traces sampled, between 0 and 1.
	// Zero samples everything.
	SampleRatio float64 `koanf:"sample_ratio" validate:"gte=0,lte=1"`
}
