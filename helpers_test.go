package prefstore

import (
	"sync"
	"testing"
	"time"

	"github.com/suyash-sneo/prefstore/internal/fakestore"
)

type deviceSchema struct{}

type accountSchema struct{}

type filters struct {
	ShowCompleted  bool    `json:"showCompleted"`
	SelectedRoomID *string `json:"selectedRoomId"`
}

var (
	appLanguage   = NewField[deviceSchema, string]("appLanguage")
	onboarded     = NewField[deviceSchema, bool]("hasSeenOnboarding")
	lastSync      = NewField[deviceSchema, *int64]("lastSyncTimestamp")
	preferences   = NewField[deviceSchema, map[string]any]("preferences")
	lastViewed    = NewField[accountSchema, string]("lastViewedHouseId")
	taskFilters   = NewField[accountSchema, filters]("taskFilters")
	searchHistory = NewField[accountSchema, []string]("searchHistory")
)

func newStores(t *testing.T, opts ...Option) (*Store[deviceSchema], *Store[accountSchema], *fakestore.Store) {
	t.Helper()
	b := fakestore.New()
	dev, err := New[deviceSchema]("device", 0, b, opts...)
	if err != nil {
		t.Fatalf("new device store: %v", err)
	}
	acc, err := New[accountSchema]("account", 1, b, opts...)
	if err != nil {
		t.Fatalf("new account store: %v", err)
	}
	return dev, acc, b
}

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type recordingMetrics struct {
	mu       sync.Mutex
	counters map[string]float64
	gauges   map[string]float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counters: map[string]float64{}, gauges: map[string]float64{}}
}

func (m *recordingMetrics) IncCounter(name string, value float64, _ ...Label) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += value
}

func (m *recordingMetrics) SetGauge(name string, value float64, _ ...Label) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = value
}

func (m *recordingMetrics) ObserveHistogram(string, float64, ...Label) {}

func (m *recordingMetrics) counter(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

func (m *recordingMetrics) gauge(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[name]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}
