// Package metrics records extraction statistics with Prometheus collectors.
package metrics

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "graphir"

// Failure reasons used as the "reason" label.
const (
	ReasonUnmatched   = "unmatched"
	ReasonUnsupported = "unsupported_type"
	ReasonMismatch    = "shape_mismatch"
	ReasonTooLarge    = "too_large"
	ReasonMissingAttr = "missing_attr"
	ReasonNotConsumed = "not_consumed"
	ReasonDangling    = "dangling_reference"
	ReasonOther       = "other"
)

// Collector holds the extraction metrics. A nil *Collector records nothing.
type Collector struct {
	nodes    *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration prometheus.Histogram
}

// New creates a Collector and registers it with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_extracted_total",
			Help:      "Number of graph nodes successfully extracted, by source op.",
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_failures_total",
			Help:      "Number of graph nodes that failed extraction or wiring, by source op and reason.",
		}, []string{"op", "reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Wall time of complete graph builds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	for _, col := range []prometheus.Collector{c.nodes, c.failures, c.duration} {
		if err := reg.Register(col); err != nil {
			return nil, errors.Wrap(err, "failed to register metrics")
		}
	}
	return c, nil
}

// NodeExtracted counts a successfully extracted node.
func (c *Collector) NodeExtracted(op string) {
	if c == nil {
		return
	}
	c.nodes.WithLabelValues(op).Inc()
}

// NodeFailed counts a failed node.
func (c *Collector) NodeFailed(op, reason string) {
	if c == nil {
		return
	}
	c.failures.WithLabelValues(op, reason).Inc()
}

// ObserveBuild records the duration of one build.
func (c *Collector) ObserveBuild(d time.Duration) {
	if c == nil {
		return
	}
	c.duration.Observe(d.Seconds())
}

// WriteText writes every metric gathered from g in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return errors.Wrapf(err, "failed to encode metric %s", mf.GetName())
		}
	}
	return nil
}
