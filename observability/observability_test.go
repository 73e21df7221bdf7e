package observability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalemi-dev/rwe/observability"
)

func TestNoOpObserver(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() {
		observability.NewNoOpObserver().ObserveOperation(observability.OperationContext{
			Component: "rwe",
			Operation: "execute_module",
		})
	})
}

func TestObserverFunc(t *testing.T) {
	t.Parallel()

	var got []observability.OperationContext
	obs := observability.ObserverFunc(func(c observability.OperationContext) {
		got = append(got, c)
	})

	obs.ObserveOperation(observability.OperationContext{
		Component: "mysql",
		Operation: "execute",
		Resource:  "shop",
		Duration:  3 * time.Millisecond,
		Size:      2,
	})

	require.Len(t, got, 1)
	assert.Equal(t, "mysql", got[0].Component)
	assert.Equal(t, int64(2), got[0].Size)
}

func TestMulti(t *testing.T) {
	t.Parallel()

	var order []string
	first := observability.ObserverFunc(func(c observability.OperationContext) { order = append(order, "first:"+c.Operation) })
	second := observability.ObserverFunc(func(c observability.OperationContext) { order = append(order, "second:"+c.Operation) })

	observability.Multi(first, nil, second).ObserveOperation(observability.OperationContext{Operation: "connect"})
	assert.Equal(t, []string{"first:connect", "second:connect"}, order)
}

func TestMultiSingleObserverIsReturnedAsIs(t *testing.T) {
	t.Parallel()

	noop := observability.NewNoOpObserver()
	assert.Same(t, noop, observability.Multi(nil, noop))
	assert.NotPanics(t, func() {
		observability.Multi().ObserveOperation(observability.OperationContext{})
	})
}
