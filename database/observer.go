package database

import (
	"strings"
	"time"

	"github.com/aalemi-dev/rwe/observability"
)

// observeOperation queues an event for the observer, if any. The component is the
// lower-cased engine tag and the resource the database name. It is called with b.mu
// held; queued events are delivered by unlock once the lock is released, so an
// observer may call back into the manager.
func (b *Base) observeOperation(operation string, duration time.Duration, err error, size int64, metadata map[string]interface{}) {
	if b == nil || b.observer == nil {
		return
	}

	b.pending = append(b.pending, observability.OperationContext{
		Component: strings.ToLower(b.engine),
		Operation: operation,
		Resource:  b.desc.Database,
		Duration:  duration,
		Error:     err,
		Size:      size,
		Metadata:  metadata,
	})
}

// unlock releases b.mu and then delivers the queued events.
func (b *Base) unlock() {
	events := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, ev := range events {
		b.observer.ObserveOperation(ev)
	}
}
