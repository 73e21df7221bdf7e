// Package dummy is the smallest possible module: it checks two required settings
// and returns -1. It serves as a template for new modules.
package dummy

import (
	"context"

	"github.com/aalemi-dev/rwe/rwe"
)

// Name is the module name passed to Host.ExecuteModule.
const Name = "dummy"

func init() {
	rwe.RegisterModule(Name, New)
}

var schema = rwe.Schema{
	"dummysetting0": {},
	"dummysetting1": {},
}

type Module struct {
	*rwe.ModuleBase
}

func New(h *rwe.Host) rwe.Module {
	return &Module{ModuleBase: rwe.NewModuleBase(h, Name, schema)}
}

func (m *Module) Execute(_ context.Context, settings rwe.Settings) any {
	m.PreExecute(settings)
	if len(m.MissingSettings("dummysetting0", "dummysetting1")) > 0 {
		m.Fail("_checkSettings: missing one or more of required settings:",
			"dummysetting0, dummysetting1")
	}
	return -1
}
