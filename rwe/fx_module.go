package rwe

import (
	"go.uber.org/fx"

	"github.com/aalemi-dev/rwe/database"
	"github.com/aalemi-dev/rwe/observability"
	"github.com/aalemi-dev/rwe/tracer"
)

// FXModule provides a *Host wired with whatever manager, template engine, logger,
// observer and tracer the application provides. Extra options can be contributed
// to the "rwe.options" value group:
//
//	fx.Provide(fx.Annotate(
//	    func() rwe.Option { return rwe.WithExitFunc(func(int) {}) },
//	    fx.ResultTags(`group:"rwe.options"`),
//	))
var FXModule = fx.Module("rwe",
	fx.Provide(NewHostWithDI),
)

// HostParams groups the dependencies of NewHostWithDI.
type HostParams struct {
	fx.In

	Config         Config                 `optional:"true"`
	Manager        database.Manager       `optional:"true"`
	TemplateEngine TemplateEngine         `optional:"true"`
	Logger         Logger                 `optional:"true"`
	Observer       observability.Observer `optional:"true"`
	Tracer         tracer.Tracer          `optional:"true"`
	Options        []Option               `group:"rwe.options"`
}

// NewHostWithDI builds a host from params. Config options apply first, then the
// injected dependencies, then the grouped options.
func NewHostWithDI(params HostParams) *Host {
	opts := params.Config.Options()
	if params.Manager != nil {
		opts = append(opts, WithDatabase(params.Manager))
	}
	if params.TemplateEngine != nil {
		opts = append(opts, WithTemplateEngine(params.TemplateEngine))
	}
	if params.Logger != nil {
		opts = append(opts, WithLogger(params.Logger))
	}
	if params.Observer != nil {
		opts = append(opts, WithObserver(params.Observer))
	}
	if params.Tracer != nil {
		opts = append(opts, WithTracer(params.Tracer))
	}
	opts = append(opts, params.Options...)
	return New(opts...)
}
