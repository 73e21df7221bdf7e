package sqlite

import (
	"github.com/aalemi-dev/rwe/database"
	"github.com/aalemi-dev/rwe/dsn"
)

func init() {
	database.Register(Engine, func(desc dsn.Descriptor, persistent bool, opts ...database.Option) database.Manager {
		return NewSQLite(desc, persistent, opts...)
	})
}
