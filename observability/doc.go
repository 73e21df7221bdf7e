// Package observability defines the hook through which rwe reports completed
// operations.
//
// The database managers and the module host accept an optional Observer and call it
// after every connect, prepare, execute, database switch and module execution.
// Nothing is reported when no observer is configured. The metrics package ships a
// Prometheus implementation; tests usually record events with an ObserverFunc:
//
//	var ops []string
//	obs := observability.ObserverFunc(func(c observability.OperationContext) {
//	    ops = append(ops, c.Operation)
//	})
//	m, _ := database.Get(dsnString, false, database.WithObserver(obs))
//
// Multi combines several observers, for example metrics and a logging observer.
package observability
