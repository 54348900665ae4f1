// Package prefstore is a typed, scoped key-value persistence layer for small
// structured values, with in-process change notification.
//
// A Store[S] owns one backend namespace (its store identifier) and the
// listeners registered on it. Values are addressed by a Path whose last
// segment is the field key; TypedField[S, T] binds a key to its Go type at compile
// time. Records are persisted as {"data": <value>} under
// "<storeID>:<seg1>:...:<field>".
//
// Reads are never cached and are fail-soft: a missing or unreadable record is
// reported as absent. Every successful write or delete synchronously notifies
// the listeners registered on exactly that path, on the caller's goroutine.
package prefstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/suyash-sneo/prefstore/backend"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	cfg     Config
	logger  Logger
	metrics Metrics
	now     func() time.Time
}

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger injects a structured logger.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics injects a metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithNow sets a custom clock (tests).
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Store is the read/write/subscribe engine for one store identifier. S is the
// schema marker type; prefixes is the number of scope segments that precede
// the field key in every path.
type Store[S any] struct {
	id       string
	prefixes int
	backend  backend.Store
	cfg      Config
	logger   Logger
	metrics  Metrics
	now      func() time.Time

	listeners *registry
}

// New constructs a store over b.
func New[S any](id string, prefixes int, b backend.Store, opts ...Option) (*Store[S], error) {
	if err := ValidateStoreID(id); err != nil {
		return nil, err
	}
	if prefixes < 0 {
		return nil, fmt.Errorf("prefstore: prefixes must be >=0")
	}
	if b == nil {
		return nil, ErrNilBackend
	}
	o := options{cfg: DefaultConfig(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = NopLogger()
	}
	if o.metrics == nil {
		o.metrics = NopMetrics()
	}

	s := &Store[S]{
		id:       id,
		prefixes: prefixes,
		backend:  b,
		cfg:      o.cfg,
		logger:   o.logger,
		metrics:  o.metrics,
		now:      o.now,
	}
	s.listeners = newRegistry(func(total int) {
		s.metrics.SetGauge(MetricRegisteredHandles, float64(total), Label{Name: "store", Value: s.id})
	})
	return s, nil
}

// ID returns the store identifier.
func (s *Store[S]) ID() string { return s.id }

// Prefixes returns the number of scope segments preceding the field key.
func (s *Store[S]) Prefixes() int { return s.prefixes }

// Config returns the configuration the store was built with.
func (s *Store[S]) Config() Config { return s.cfg }

// Logger returns the store's logger.
func (s *Store[S]) Logger() Logger { return s.logger }

// Put writes value under p and then notifies p's listeners. A backend
// failure is returned and no listener runs.
func (s *Store[S]) Put(ctx context.Context, p Path, value any) error {
	key, err := s.key(p)
	if err != nil {
		return err
	}
	raw, err := encodeEnvelope(value)
	if err != nil {
		return fmt.Errorf("prefstore: encode %s: %w", key, err)
	}

	start := s.now()
	err = s.backend.Set(ctx, key, raw)
	s.observe("set", start, err)
	if err != nil {
		s.logger.Warn("backend set failed", Field{Key: "key", Value: key}, Field{Key: "err", Value: err})
		return fmt.Errorf("prefstore: set %s: %w", key, err)
	}
	s.logger.Debug("value stored", Field{Key: "key", Value: key}, Field{Key: "bytes", Value: len(raw)})
	s.notify(p)
	return nil
}

// Load reads p into dst and reports whether a usable record exists. Missing
// and malformed records both yield false with a nil error; only backend
// failures are returned. dst is unspecified when Load reports false.
func (s *Store[S]) Load(ctx context.Context, p Path, dst any) (bool, error) {
	key, err := s.key(p)
	if err != nil {
		return false, err
	}

	start := s.now()
	raw, ok, err := s.backend.Get(ctx, key)
	s.observe("get", start, err)
	if err != nil {
		s.logger.Warn("backend get failed", Field{Key: "key", Value: key}, Field{Key: "err", Value: err})
		return false, fmt.Errorf("prefstore: get %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := decodeEnvelope(raw, dst); err != nil {
		s.logger.Debug("discarding malformed record", Field{Key: "key", Value: key}, Field{Key: "err", Value: err})
		s.metrics.IncCounter(MetricMalformedRecords, 1, Label{Name: "store", Value: s.id})
		return false, nil
	}
	return true, nil
}

// Delete removes p and then notifies p's listeners. Deleting an absent
// record succeeds.
func (s *Store[S]) Delete(ctx context.Context, p Path) error {
	key, err := s.key(p)
	if err != nil {
		return err
	}

	start := s.now()
	err = s.backend.Remove(ctx, key)
	s.observe("remove", start, err)
	if err != nil {
		s.logger.Warn("backend remove failed", Field{Key: "key", Value: key}, Field{Key: "err", Value: err})
		return fmt.Errorf("prefstore: remove %s: %w", key, err)
	}
	s.logger.Debug("value removed", Field{Key: "key", Value: key})
	s.notify(p)
	return nil
}

// DeleteMany removes the given field keys under scope concurrently. It is not
// atomic: every key is attempted and each failure is reported as a
// *FieldError inside the combined error (see multierr.Errors).
// Listeners for each removed key run on the goroutine that removed it.
func (s *Store[S]) DeleteMany(ctx context.Context, scope []string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	errs := make([]error, len(keys))
	var g errgroup.Group
	g.SetLimit(s.cfg.RemoveConcurrency)
	for i, k := range keys {
		p := make(Path, 0, len(scope)+1)
		p = append(append(p, scope...), k)
		g.Go(func() error {
			if err := s.Delete(ctx, p); err != nil {
				errs[i] = &FieldError{Key: k, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()
	return multierr.Combine(errs...)
}

// RemoveFields is the typed form of DeleteMany.
func (s *Store[S]) RemoveFields(ctx context.Context, scope []string, fields ...FieldKey[S]) error {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key()
	}
	return s.DeleteMany(ctx, scope, keys...)
}

// Clear deletes every backend record belonging to this store. When it
// succeeds and Config.ClearListenersOnRemoveAll is set, every listener
// registered on this store is dropped as well, including listeners on paths
// that held no data. No listener is notified. Other stores sharing the
// backend are unaffected.
func (s *Store[S]) Clear(ctx context.Context) error {
	start := s.now()
	all, err := s.backend.Keys(ctx)
	if err != nil {
		s.observe("clear", start, err)
		return fmt.Errorf("prefstore: list keys: %w", err)
	}
	mine := make([]string, 0, len(all))
	for _, k := range all {
		if BelongsTo(k, s.id) {
			mine = append(mine, k)
		}
	}
	if len(mine) > 0 {
		err = s.backend.RemoveMany(ctx, mine)
	}
	s.observe("clear", start, err)
	if err != nil {
		s.logger.Warn("backend remove many failed", Field{Key: "store", Value: s.id}, Field{Key: "keys", Value: len(mine)}, Field{Key: "err", Value: err})
		return fmt.Errorf("prefstore: clear %s: %w", s.id, err)
	}

	dropped := 0
	if s.cfg.ClearListenersOnRemoveAll {
		dropped = s.listeners.clear()
	}
	s.logger.Info("store cleared",
		Field{Key: "store", Value: s.id},
		Field{Key: "records", Value: len(mine)},
		Field{Key: "listenersDropped", Value: dropped},
	)
	return nil
}

// OnChange registers fn to run after every successful Put or Delete on
// exactly p. Listeners on one path run in registration order.
func (s *Store[S]) OnChange(p Path, fn func()) (*Handle, error) {
	if fn == nil {
		return nil, errors.New("prefstore: nil listener")
	}
	if _, err := s.key(p); err != nil {
		return nil, err
	}
	h := s.listeners.add(p.String(), fn)
	s.logger.Debug("listener added", Field{Key: "store", Value: s.id}, Field{Key: "path", Value: h.Path()}, Field{Key: "handle", Value: h.ID()})
	return h, nil
}

// ListenerCount reports how many listeners are registered on p.
func (s *Store[S]) ListenerCount(p Path) int {
	return s.listeners.len(p.String())
}

// ListenerPaths returns the joined paths that currently have listeners.
func (s *Store[S]) ListenerPaths() []string {
	return s.listeners.paths()
}

func (s *Store[S]) key(p Path) (string, error) {
	if len(p) != s.prefixes+1 {
		return "", fmt.Errorf("%w: store %s wants %d scope segments plus a field key, got path of %d", ErrScopeArity, s.id, s.prefixes, len(p))
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	return ComposeKey(s.id, p), nil
}

func (s *Store[S]) notify(p Path) {
	hs := s.listeners.snapshot(p.String())
	if len(hs) == 0 {
		return
	}
	fire(hs, func(lp *ListenerPanic) {
		s.logger.Error("listener panicked",
			Field{Key: "store", Value: s.id},
			Field{Key: "path", Value: lp.Path},
			Field{Key: "handle", Value: lp.Handle},
			Field{Key: "panic", Value: lp.Value},
		)
		s.metrics.IncCounter(MetricListenerFailures, 1, Label{Name: "store", Value: s.id})
	})
}

func (s *Store[S]) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.IncCounter(MetricOps, 1,
		Label{Name: "store", Value: s.id},
		Label{Name: "op", Value: op},
		Label{Name: "result", Value: result},
	)
	s.metrics.ObserveHistogram(MetricOpSeconds, s.now().Sub(start).Seconds(),
		Label{Name: "store", Value: s.id},
		Label{Name: "op", Value: op},
	)
}
