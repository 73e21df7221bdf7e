package postgres

import (
	"context"
	"fmt"

	"github.com/aalemi-dev/rwe/database"
	"github.com/aalemi-dev/rwe/dsn"
	"github.com/aalemi-dev/rwe/observability"
	"go.uber.org/fx"
)

// FXModule is an fx module that provides the PostgreSQL manager.
//
// This module provides:
//   - *Postgres (concrete type) - for DB() and lifecycle management
//   - database.Manager (interface) - for engine-neutral consumers
var FXModule = fx.Module("postgres",
	fx.Provide(
		NewPostgresWithDI,
		ProvideManager,
	),
	fx.Invoke(RegisterPostgresLifecycle),
)

// ProvideManager exposes the concrete *Postgres as database.Manager.
func ProvideManager(pg *Postgres) database.Manager {
	return pg
}

// PostgresParams groups the dependencies needed to create the manager via dependency
// injection.
type PostgresParams struct {
	fx.In

	Config   database.Config
	Logger   database.Logger        `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Opener   database.Opener        `optional:"true"`
}

// NewPostgresWithDI creates the manager for params.Config.DSN, which must name the
// PostgreSQL engine. It does not connect.
func NewPostgresWithDI(params PostgresParams) (*Postgres, error) {
	desc := dsn.Parse(params.Config.DSN)
	if desc.Engine != Engine {
		return nil, fmt.Errorf("%w: postgres module needs a %s DSN, got engine %q",
			database.ErrConfiguration, Engine, desc.Engine)
	}

	opts := []database.Option{database.WithConnectionDetails(params.Config.ConnectionDetails)}
	if params.Logger != nil {
		opts = append(opts, database.WithLogger(params.Logger))
	}
	if params.Observer != nil {
		opts = append(opts, database.WithObserver(params.Observer))
	}
	if params.Opener != nil {
		opts = append(opts, database.WithOpener(params.Opener))
	}
	return NewPostgres(desc, params.Config.Persistent, opts...), nil
}

// RegisterPostgresLifecycle disconnects the manager when the application stops.
func RegisterPostgresLifecycle(lc fx.Lifecycle, pg *Postgres) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if err := pg.Disconnect(); err != nil {
				return err
			}
			if pg.Persistent() {
				return database.ClosePersistent()
			}
			return nil
		},
	})
}
