package rwe

import (
	"context"
)

// TemplateEngine receives the variables modules publish and renders failure pages.
type TemplateEngine interface {
	Assign(name string, value any)
	Display(template string) error
}

// VariableGetter is implemented by template engines that can read a variable back.
// Host.ModuleVar requires it.
type VariableGetter interface {
	Get(name string) any
}

// Module is one executable unit. Execute receives the caller's settings and its
// return value is handed back unchanged by Host.ExecuteModule. Reset restores the
// just-constructed state and runs before every reuse of a cached instance.
type Module interface {
	Execute(ctx context.Context, settings Settings) any
	Reset()
}

// Factory constructs a module bound to a host.
type Factory func(h *Host) Module

// Logger is the subset of logger.Logger used by the host.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
