// Package metrics exports session events as Prometheus metrics.
//
// Collector implements engine.Observer. Pass it with engine.WithObserver and
// serve its registry with promhttp:
//
//	c := metrics.New()
//	s := engine.New(engine.WithObserver(c))
//	http.Handle("/metrics", promhttp.HandlerFor(c.Registry(), promhttp.HandlerOpts{}))
//
// Each Collector owns its registry, so several sessions in one process (or
// one test binary) never collide on registration.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/connectlab/internal/engine"
	"github.com/roach88/connectlab/internal/ir"
	"github.com/roach88/connectlab/internal/signal"
)

const namespace = "connectlab"

// Collector counts session events.
type Collector struct {
	registry *prometheus.Registry

	entities    *prometheus.GaugeVec
	removed     *prometheus.CounterVec
	cascaded    prometheus.Counter
	commits     prometheus.Counter
	rejects     *prometheus.CounterVec
	passes      prometheus.Histogram
	cyclic      prometheus.Counter
	unsettled   prometheus.Counter
	changeSizes prometheus.Histogram
}

var _ engine.Observer = (*Collector)(nil)

// New creates a collector registered on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		// entities tracks live nodes and annotations.
		// Labels: kind (gate, input, output, annotation)
		entities: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "entities",
			Help:      "Live nodes and annotations by kind",
		}, []string{"kind"}),

		// removed counts direct removals.
		// Labels: kind
		removed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "removed_total",
			Help:      "Entities removed directly, by kind",
		}, []string{"kind"}),

		cascaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "cascaded_total",
			Help:      "Slots and connections removed along with their node",
		}),

		commits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "commits_total",
			Help:      "Connections bound between two slots",
		}),

		// rejects counts connections discarded before binding.
		// Labels: reason (no_target, same_direction, stale, timeout, abandoned, removed)
		rejects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "rejects_total",
			Help:      "Connections discarded before binding, by reason",
		}, []string{"reason"}),

		passes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "propagation_passes",
			Help:      "Evaluation passes per propagation",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
		}),

		cyclic: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "cyclic_propagations_total",
			Help:      "Propagations over a graph containing a cycle",
		}),

		unsettled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "budget_exceeded_total",
			Help:      "Propagations that ran out of passes before settling",
		}),

		changeSizes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "changed_nodes",
			Help:      "Nodes whose value changed per propagation",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
}

// Registry returns the registry holding every metric of this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// EntityCreated implements engine.Observer.
func (c *Collector) EntityCreated(kind ir.Kind) {
	if tracked(kind) {
		c.entities.WithLabelValues(kind.String()).Inc()
	}
}

// EntityRemoved implements engine.Observer.
func (c *Collector) EntityRemoved(kind ir.Kind, cascaded int) {
	if tracked(kind) {
		c.entities.WithLabelValues(kind.String()).Dec()
	}
	c.removed.WithLabelValues(kind.String()).Inc()
	if cascaded > 0 {
		c.cascaded.Add(float64(cascaded))
	}
}

// ConnectionCommitted implements engine.Observer.
func (c *Collector) ConnectionCommitted() {
	c.commits.Inc()
}

// ConnectionRejected implements engine.Observer.
func (c *Collector) ConnectionRejected(reason string) {
	c.rejects.WithLabelValues(reason).Inc()
}

// Propagated implements engine.Observer.
func (c *Collector) Propagated(r signal.Report) {
	c.passes.Observe(float64(r.Passes))
	c.changeSizes.Observe(float64(len(r.Changed)))
	if r.Cyclic {
		c.cyclic.Inc()
	}
	if !r.Settled {
		c.unsettled.Inc()
	}
}

// tracked reports whether kind is counted by the entities gauge. Slots and
// connections also leave through cascades, which carry no kind breakdown.
func tracked(kind ir.Kind) bool {
	return kind.IsNode() || kind == ir.KindAnnotation
}
