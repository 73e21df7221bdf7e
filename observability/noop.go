package observability

// NoOpObserver discards every event.
type NoOpObserver struct{}

// ObserveOperation does nothing.
func (n *NoOpObserver) ObserveOperation(OperationContext) {}

// NewNoOpObserver returns a NoOpObserver as an Observer.
func NewNoOpObserver() Observer {
	return &NoOpObserver{}
}
