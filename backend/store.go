// Package backend defines the durable string-keyed store that prefstore
// persists records into. Implementations live in sub-packages.
package backend

import (
	"context"
	"errors"
)

// Store defines the persistence backend behavior.
//
// Every method may block on I/O and may fail. Keys and values are opaque to
// the backend; prefstore owns the key scheme and the record encoding.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists every key held by the backend.
	Keys(ctx context.Context) ([]string, error)
	// RemoveMany deletes all keys in one call. Absent keys are skipped.
	RemoveMany(ctx context.Context, keys []string) error
}

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("backend: store closed")
