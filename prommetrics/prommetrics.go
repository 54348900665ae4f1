// Package prommetrics adapts prometheus/client_golang to prefstore.Metrics.
package prommetrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/suyash-sneo/prefstore"
)

// Recorder creates one vector per metric name on first use. The label names
// of a metric are fixed by its first observation; later observations with a
// different label count are dropped and counted in
// prefstore_metrics_rejected_total.
type Recorder struct {
	reg       prometheus.Registerer
	namespace string

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	rejected   prometheus.Counter
}

var _ prefstore.Metrics = (*Recorder)(nil)

// New returns a Recorder registering its collectors on reg. namespace may be
// empty.
func New(reg prometheus.Registerer, namespace string) *Recorder {
	r := &Recorder{
		reg:        reg,
		namespace:  namespace,
		counters:   map[string]*prometheus.CounterVec{},
		gauges:     map[string]*prometheus.GaugeVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "prefstore_metrics_rejected_total",
		Help:      "Observations dropped because their labels did not match the metric.",
	})
	r.rejected = r.register(rejected, "prefstore_metrics_rejected_total").(prometheus.Counter)
	return r
}

// IncCounter adds value to the named counter.
func (r *Recorder) IncCounter(name string, value float64, labels ...prefstore.Label) {
	names, values := split(labels)
	r.mu.Lock()
	vec, ok := r.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: r.namespace,
			Name:      name,
			Help:      help(name),
		}, names)
		vec = r.register(vec, name).(*prometheus.CounterVec)
		r.counters[name] = vec
	}
	r.mu.Unlock()

	c, err := vec.GetMetricWithLabelValues(values...)
	if err != nil {
		r.rejected.Inc()
		return
	}
	c.Add(value)
}

// SetGauge sets the named gauge.
func (r *Recorder) SetGauge(name string, value float64, labels ...prefstore.Label) {
	names, values := split(labels)
	r.mu.Lock()
	vec, ok := r.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: r.namespace,
			Name:      name,
			Help:      help(name),
		}, names)
		vec = r.register(vec, name).(*prometheus.GaugeVec)
		r.gauges[name] = vec
	}
	r.mu.Unlock()

	g, err := vec.GetMetricWithLabelValues(values...)
	if err != nil {
		r.rejected.Inc()
		return
	}
	g.Set(value)
}

// ObserveHistogram records value in the named histogram. Buckets suit
// sub-second storage latencies.
func (r *Recorder) ObserveHistogram(name string, value float64, labels ...prefstore.Label) {
	names, values := split(labels)
	r.mu.Lock()
	vec, ok := r.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: r.namespace,
			Name:      name,
			Help:      help(name),
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, names)
		vec = r.register(vec, name).(*prometheus.HistogramVec)
		r.histograms[name] = vec
	}
	r.mu.Unlock()

	h, err := vec.GetMetricWithLabelValues(values...)
	if err != nil {
		r.rejected.Inc()
		return
	}
	h.Observe(value)
}

// register returns the collector that ends up serving name: c itself, or the
// one already registered by another Recorder on the same registry.
func (r *Recorder) register(c prometheus.Collector, name string) prometheus.Collector {
	if err := r.reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic("prommetrics: register " + name + ": " + err.Error())
	}
	return c
}

// split orders labels by name so call sites need not agree on order.
func split(labels []prefstore.Label) ([]string, []string) {
	sorted := append([]prefstore.Label(nil), labels...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	names := make([]string, len(sorted))
	values := make([]string, len(sorted))
	for i, l := range sorted {
		names[i] = l.Name
		values[i] = l.Value
	}
	return names, values
}

func help(name string) string {
	return strings.ReplaceAll(strings.TrimSuffix(name, "_total"), "_", " ")
}
