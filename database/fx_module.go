package database

import (
	"context"

	"github.com/aalemi-dev/rwe/observability"
	"go.uber.org/fx"
)

// FXModule provides a Manager built from Config and closes it on application stop.
// The engine package must be linked in (blank import) so its factory is registered.
//
//	app := fx.New(
//	    logger.FXModule,
//	    database.FXModule,
//	    fx.Provide(func() database.Config {
//	        return database.Config{DSN: "PostgreSQL://app@db1/shop"}
//	    }),
//	)
var FXModule = fx.Module("database",
	fx.Provide(NewManagerWithDI),
	fx.Invoke(RegisterManagerLifecycle),
)

// ManagerParams groups the dependencies of NewManagerWithDI.
type ManagerParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewManagerWithDI resolves the manager for params.Config.DSN. It does not connect.
func NewManagerWithDI(params ManagerParams) (Manager, error) {
	opts := []Option{WithConnectionDetails(params.Config.ConnectionDetails)}
	if params.Logger != nil {
		opts = append(opts, WithLogger(params.Logger))
	}
	if params.Observer != nil {
		opts = append(opts, WithObserver(params.Observer))
	}
	return Get(params.Config.DSN, params.Config.Persistent, opts...)
}

// RegisterManagerLifecycle disconnects the manager and closes persistent connections
// when the application stops.
func RegisterManagerLifecycle(lc fx.Lifecycle, m Manager) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := m.Disconnect(); err != nil {
				return err
			}
			if m.Persistent() {
				return ClosePersistent()
			}
			return nil
		},
	})
}
