package prefstore

import (
	"context"
	"sync"

	"github.com/suyash-sneo/prefstore/hash"
)

// BindOption configures a Binding.
type BindOption[T any] func(*bindOptions[T])

type bindOptions[T any] struct {
	def      T
	onChange []func(T, bool)
}

// WithDefault sets the value reported while the field is absent.
func WithDefault[T any](v T) BindOption[T] {
	return func(o *bindOptions[T]) { o.def = v }
}

// WithOnChange subscribes fn before the first load, so it observes every
// published value.
func WithOnChange[T any](fn func(v T, present bool)) BindOption[T] {
	return func(o *bindOptions[T]) { o.onChange = append(o.onChange, fn) }
}

// source is what a Binding needs from a store for one path.
type source[T any] struct {
	path      Path
	get       func(ctx context.Context) (T, bool, error)
	put       func(ctx context.Context, v T) error
	subscribe func(fn func()) (*Handle, error)
	logger    Logger
	rollback  bool
}

type subscriber[T any] struct {
	id int
	fn func(T, bool)
}

// Binding keeps the current value of one field for a consumer such as a UI
// component. It loads the field once, re-reads it from the backend after
// every change notification, and publishes each new value to subscribers.
//
// Subscribers run serially in publish order and must not call Set or Close.
// A publish whose value and presence match the previous one is not
// delivered again.
type Binding[T any] struct {
	src    source[T]
	def    T
	handle *Handle

	mu        sync.Mutex
	value     T
	present   bool
	digest    uint64
	published bool
	subs      []subscriber[T]
	nextSub   int

	// pubMu orders deliveries; it is held while subscribers run.
	pubMu sync.Mutex

	refresh   chan struct{}
	ready     chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func newBinding[T any](ctx context.Context, src source[T], opts ...BindOption[T]) (*Binding[T], error) {
	var o bindOptions[T]
	for _, opt := range opts {
		opt(&o)
	}
	if src.logger == nil {
		src.logger = NopLogger()
	}

	b := &Binding[T]{
		src:     src,
		def:     o.def,
		value:   o.def,
		refresh: make(chan struct{}, 1),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, fn := range o.onChange {
		b.addSub(fn)
	}

	// Subscribe before the first read so no change between the two is missed.
	h, err := src.subscribe(b.Refresh)
	if err != nil {
		return nil, err
	}
	b.handle = h
	b.ctx, b.cancel = context.WithCancel(ctx)
	go b.run()
	return b, nil
}

// Path returns the bound scope path.
func (b *Binding[T]) Path() Path { return b.src.path }

// Value returns the last published value. When the field is absent it
// returns the default value and false.
func (b *Binding[T]) Value() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value, b.present
}

// Ready is closed once the initial load has been attempted.
func (b *Binding[T]) Ready() <-chan struct{} { return b.ready }

// Done is closed once the binding has released its listener.
func (b *Binding[T]) Done() <-chan struct{} { return b.done }

// Subscribe registers fn for future publishes and, if a value was already
// published, delivers it immediately. The returned func unsubscribes.
func (b *Binding[T]) Subscribe(fn func(v T, present bool)) func() {
	b.pubMu.Lock()
	id := b.addSub(fn)
	b.mu.Lock()
	v, present, published := b.value, b.present, b.published
	b.mu.Unlock()
	if published {
		fn(v, present)
	}
	b.pubMu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Set publishes v to subscribers immediately and then writes it durably.
// When the write fails and rollback is enabled, the binding re-reads the
// stored value and publishes it; otherwise v stays published.
func (b *Binding[T]) Set(ctx context.Context, v T) error {
	b.publish(v, true)
	if err := b.src.put(ctx, v); err != nil {
		if b.src.rollback {
			b.Refresh()
		}
		return err
	}
	return nil
}

// Refresh schedules a re-read. Pending refreshes coalesce.
func (b *Binding[T]) Refresh() {
	select {
	case b.refresh <- struct{}{}:
	default:
	}
}

// Close stops the binding and removes its listener. It must not be called
// from a subscriber callback.
func (b *Binding[T]) Close() {
	b.closeOnce.Do(b.cancel)
	<-b.done
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
}

func (b *Binding[T]) run() {
	defer close(b.done)
	defer b.handle.Remove()

	b.reload()
	close(b.ready)
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-b.refresh:
			b.reload()
		}
	}
}

func (b *Binding[T]) reload() {
	v, ok, err := b.src.get(b.ctx)
	if err != nil {
		if b.ctx.Err() == nil {
			b.src.logger.Warn("binding refresh failed", Field{Key: "path", Value: b.src.path.String()}, Field{Key: "err", Value: err})
		}
		return
	}
	if !ok {
		v = b.def
	}
	b.publish(v, ok)
}

func (b *Binding[T]) publish(v T, present bool) {
	d, err := hash.Presence(v, present)
	hashed := err == nil

	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	if hashed && b.published && b.digest == d {
		b.mu.Unlock()
		return
	}
	b.value, b.present, b.digest, b.published = v, present, d, true
	subs := append([]subscriber[T](nil), b.subs...)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(v, present)
	}
}

func (b *Binding[T]) addSub(fn func(T, bool)) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSub++
	b.subs = append(b.subs, subscriber[T]{id: b.nextSub, fn: fn})
	return b.nextSub
}
