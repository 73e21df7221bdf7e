package tracer

import (
	"go.uber.org/fx"
)

// FXModule provides *TracerClient and Tracer from a tracer.Config. Extra provider
// options are collected from the "tracer.options" group. Pending spans are flushed
// when the application stops.
var FXModule = fx.Module("tracer",
	fx.Provide(
		NewTracerWithDI,
		func(t *TracerClient) Tracer { return t },
	),
)

// TracerParams are the dependencies of NewTracerWithDI.
type TracerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    Config
	Options   []Option `group:"tracer.options"`
}

// NewTracerWithDI builds the client and registers its shutdown hook.
func NewTracerWithDI(p TracerParams) (*TracerClient, error) {
	client, err := NewClient(p.Config, p.Options...)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{OnStop: client.Shutdown})
	return client, nil
}
