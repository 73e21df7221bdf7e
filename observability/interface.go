package observability

import "time"

// Observer receives one event per completed operation: database connects, prepares,
// statement executions, database switches and module executions.
//
// Observers are called synchronously on the caller's goroutine and must not block.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// OperationContext describes a completed operation.
type OperationContext struct {
	// Component is the emitter: the lower-cased engine tag ("mysql", "postgresql",
	// "sqlite") for database events, "rwe" for module executions.
	Component string

	// Operation is what was done: "connect", "prepare", "execute", "select_database",
	// "execute_module".
	Operation string

	// Resource is the database name, or the module name for module executions.
	Resource string

	// SubResource narrows Resource: the statement verb for executions, the op of an
	// op-based module.
	SubResource string

	// Duration is the wall time of the operation.
	Duration time.Duration

	// Error is the failure, or nil.
	Error error

	// Size is the number of rows returned or affected, when known.
	Size int64

	// Metadata carries extra fields such as the execution id.
	Metadata map[string]interface{}
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx OperationContext)

// ObserveOperation calls f.
func (f ObserverFunc) ObserveOperation(ctx OperationContext) {
	f(ctx)
}

// Multi returns an Observer that forwards every event to each non-nil observer in order.
func Multi(observers ...Observer) Observer {
	var out multiObserver
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) ObserveOperation(ctx OperationContext) {
	for _, o := range m {
		o.ObserveOperation(ctx)
	}
}
