package prefstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Handle is one registered change listener. Removing it unregisters exactly
// that registration, leaving other listeners on the same path in place.
type Handle struct {
	id   uuid.UUID
	path string
	fn   func()
	reg  *registry
	once sync.Once
}

// ID identifies the registration in logs.
func (h *Handle) ID() string { return h.id.String() }

// Path returns the joined scope path the handle listens on.
func (h *Handle) Path() string { return h.path }

// Remove unregisters the listener. It is safe to call more than once and
// after the owning store cleared its listeners.
func (h *Handle) Remove() {
	h.once.Do(func() { h.reg.remove(h) })
}

// registry maps joined scope paths to listeners in registration order. A path
// entry is deleted as soon as its last listener goes away.
type registry struct {
	mu        sync.Mutex
	listeners map[string][]*Handle
	count     int

	// observe receives the listener total after every change, outside the lock.
	observe func(total int)
}

func newRegistry(observe func(total int)) *registry {
	if observe == nil {
		observe = func(int) {}
	}
	return &registry{listeners: map[string][]*Handle{}, observe: observe}
}

func (r *registry) add(path string, fn func()) *Handle {
	h := &Handle{id: uuid.New(), path: path, fn: fn, reg: r}
	r.mu.Lock()
	r.listeners[path] = append(r.listeners[path], h)
	r.count++
	total := r.count
	r.mu.Unlock()
	r.observe(total)
	return h
}

func (r *registry) remove(h *Handle) {
	r.mu.Lock()
	hs := r.listeners[h.path]
	for i, cur := range hs {
		if cur != h {
			continue
		}
		if len(hs) == 1 {
			delete(r.listeners, h.path)
		} else {
			r.listeners[h.path] = append(hs[:i:i], hs[i+1:]...)
		}
		r.count--
		total := r.count
		r.mu.Unlock()
		r.observe(total)
		return
	}
	r.mu.Unlock()
}

// snapshot returns the listeners for path so they can be invoked without
// holding the lock.
func (r *registry) snapshot(path string) []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Handle(nil), r.listeners[path]...)
}

func (r *registry) clear() int {
	r.mu.Lock()
	n := r.count
	r.listeners = map[string][]*Handle{}
	r.count = 0
	r.mu.Unlock()
	r.observe(0)
	return n
}

func (r *registry) len(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[path])
}

func (r *registry) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *registry) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.listeners))
	for p := range r.listeners {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ListenerPanic wraps a value recovered from a panicking listener.
type ListenerPanic struct {
	Handle string
	Path   string
	Value  interface{}
}

func (p *ListenerPanic) Error() string {
	return fmt.Sprintf("listener %s on %s panicked: %v", p.Handle, p.Path, p.Value)
}

// fire invokes every listener in hs in order. A panicking listener is
// recovered and reported through onPanic; the rest still run.
func fire(hs []*Handle, onPanic func(*ListenerPanic)) {
	for _, h := range hs {
		invoke(h, onPanic)
	}
}

func invoke(h *Handle, onPanic func(*ListenerPanic)) {
	defer func() {
		if v := recover(); v != nil {
			onPanic(&ListenerPanic{Handle: h.ID(), Path: h.path, Value: v})
		}
	}()
	h.fn()
}
