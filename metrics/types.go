package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Counter is a monotonically increasing series, such as completed operations.
type Counter interface {
	// WithLabelValues selects the child series. Calling it on a child returns the child.
	WithLabelValues(lvs ...string) Counter
	Inc()
	Add(val float64)
}

// Gauge holds the latest value of a series.
type Gauge interface {
	WithLabelValues(lvs ...string) Gauge
	Set(val float64)
	SetToCurrentTime()
}

// Histogram samples durations into buckets.
type Histogram interface {
	WithLabelValues(lvs ...string) Histogram
	Observe(val float64)
}

// labelled adapts the prometheus vector types. An unlabelled vector is its own
// only child, so Inc, Set and Observe without labels hit that child.
type labelled[M any] interface {
	WithLabelValues(lvs ...string) M
}

type counter struct {
	vec    labelled[prometheus.Counter]
	series prometheus.Counter
}

func (c *counter) WithLabelValues(lvs ...string) Counter {
	if c.series != nil {
		return c
	}
	return &counter{series: c.vec.WithLabelValues(lvs...)}
}

func (c *counter) child() prometheus.Counter {
	if c.series != nil {
		return c.series
	}
	return c.vec.WithLabelValues()
}

func (c *counter) Inc() { c.child().Inc() }

func (c *counter) Add(val float64) { c.child().Add(val) }

type gauge struct {
	vec    labelled[prometheus.Gauge]
	series prometheus.Gauge
}

func (g *gauge) WithLabelValues(lvs ...string) Gauge {
	if g.series != nil {
		return g
	}
	return &gauge{series: g.vec.WithLabelValues(lvs...)}
}

func (g *gauge) child() prometheus.Gauge {
	if g.series != nil {
		return g.series
	}
	return g.vec.WithLabelValues()
}

func (g *gauge) Set(val float64) { g.child().Set(val) }

func (g *gauge) SetToCurrentTime() { g.child().SetToCurrentTime() }

type histogram struct {
	vec    labelled[prometheus.Observer]
	series prometheus.Observer
}

func (h *histogram) WithLabelValues(lvs ...string) Histogram {
	if h.series != nil {
		return h
	}
	return &histogram{series: h.vec.WithLabelValues(lvs...)}
}

func (h *histogram) Observe(val float64) {
	if h.series != nil {
		h.series.Observe(val)
		return
	}
	h.vec.WithLabelValues().Observe(val)
}
