package fakestore

import (
	"context"
	"sort"
	"sync"

	"github.com/suyash-sneo/prefstore/backend"
)

// Op names a backend operation for fault injection.
type Op string

const (
	OpGet        Op = "get"
	OpSet        Op = "set"
	OpRemove     Op = "remove"
	OpKeys       Op = "keys"
	OpRemoveMany Op = "removeMany"
)

// FaultFunc decides whether an operation on key fails. key is empty for
// OpKeys and OpRemoveMany.
type FaultFunc func(op Op, key string) error

// Store is an in-memory implementation of backend.Store for tests.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte
	fault  FaultFunc
	calls  map[Op]int
	closed bool
}

var _ backend.Store = (*Store)(nil)

// New returns a fresh in-memory store.
func New() *Store {
	return &Store{
		values: map[string][]byte{},
		calls:  map[Op]int{},
	}
}

// SetFault installs f; nil clears fault injection.
func (s *Store) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// FailKey makes every op on key fail with err.
func (s *Store) FailKey(key string, err error) {
	s.SetFault(func(_ Op, k string) error {
		if k == key {
			return err
		}
		return nil
	})
}

// FailOp makes every call of op fail with err.
func (s *Store) FailOp(op Op, err error) {
	s.SetFault(func(o Op, _ string) error {
		if o == op {
			return err
		}
		return nil
	})
}

// Calls reports how many times op was attempted.
func (s *Store) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Raw sets a value without going through the fault hook, for seeding
// malformed records.
func (s *Store) Raw(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
}

// Close marks the store unusable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpGet, key); err != nil {
		return nil, false, err
	}
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpSet, key); err != nil {
		return err
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpRemove, key); err != nil {
		return err
	}
	delete(s.values, key)
	return nil
}

func (s *Store) Keys(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpKeys, ""); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) RemoveMany(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpRemoveMany, ""); err != nil {
		return err
	}
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func (s *Store) check(op Op, key string) error {
	s.calls[op]++
	if s.closed {
		return backend.ErrClosed
	}
	if s.fault != nil {
		return s.fault(op, key)
	}
	return nil
}
