package prommetrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/suyash-sneo/prefstore"
	"github.com/suyash-sneo/prefstore/internal/fakestore"
)

func TestCounterLabelsOrderInsensitive(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "")

	r.IncCounter("prefstore_ops_total", 1, prefstore.Label{Name: "store", Value: "device"}, prefstore.Label{Name: "op", Value: "set"})
	r.IncCounter("prefstore_ops_total", 2, prefstore.Label{Name: "op", Value: "set"}, prefstore.Label{Name: "store", Value: "device"})

	got := testutil.ToFloat64(r.counters["prefstore_ops_total"].WithLabelValues("set", "device"))
	if got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
}

func TestMismatchedLabelsAreRejected(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "app")

	r.SetGauge("prefstore_listeners", 2, prefstore.Label{Name: "store", Value: "device"})
	r.SetGauge("prefstore_listeners", 5)

	if got := testutil.ToFloat64(r.gauges["prefstore_listeners"].WithLabelValues("device")); got != 2 {
		t.Fatalf("expected gauge 2, got %v", got)
	}
	if got := testutil.ToFloat64(r.rejected); got != 1 {
		t.Fatalf("expected one rejected observation, got %v", got)
	}
}

func TestRecordersShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg, "")
	b := New(reg, "")

	a.IncCounter("prefstore_listener_failures_total", 1, prefstore.Label{Name: "store", Value: "device"})
	b.IncCounter("prefstore_listener_failures_total", 1, prefstore.Label{Name: "store", Value: "device"})

	if got := testutil.ToFloat64(a.counters["prefstore_listener_failures_total"].WithLabelValues("device")); got != 2 {
		t.Fatalf("expected shared counter 2, got %v", got)
	}
}

func TestStoreEmitsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "")
	s, err := prefstore.New[struct{}]("device", 0, fakestore.New(), prefstore.WithMetrics(r))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	if err := s.Put(ctx, prefstore.Path{"hasSeenOnboarding"}, true); err != nil {
		t.Fatalf("put: %v", err)
	}
	var v bool
	if _, err := s.Load(ctx, prefstore.Path{"hasSeenOnboarding"}, &v); err != nil {
		t.Fatalf("load: %v", err)
	}
	h, _ := s.OnChange(prefstore.Path{"hasSeenOnboarding"}, func() {})
	defer h.Remove()

	ops := r.counters[prefstore.MetricOps]
	if got := testutil.ToFloat64(ops.WithLabelValues("set", "ok", "device")); got != 1 {
		t.Fatalf("expected one set, got %v", got)
	}
	if got := testutil.ToFloat64(ops.WithLabelValues("get", "ok", "device")); got != 1 {
		t.Fatalf("expected one get, got %v", got)
	}
	if got := testutil.ToFloat64(r.gauges[prefstore.MetricRegisteredHandles].WithLabelValues("device")); got != 1 {
		t.Fatalf("expected one listener, got %v", got)
	}
	if n, err := testutil.GatherAndCount(reg, prefstore.MetricOpSeconds); err != nil || n != 2 {
		t.Fatalf("expected two latency series, got %d (%v)", n, err)
	}
}
