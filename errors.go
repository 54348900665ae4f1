package prefstore

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySegment indicates a scope path with an empty segment.
	ErrEmptySegment = errors.New("prefstore: empty scope segment")
	// ErrScopeArity indicates a path whose length does not match the store's scope prefixes.
	ErrScopeArity = errors.New("prefstore: wrong number of scope segments")
	// ErrInvalidStoreID indicates an empty store identifier or one containing the separator.
	ErrInvalidStoreID = errors.New("prefstore: invalid store identifier")
	// ErrMalformedKey is returned by ParseKey for keys not produced by ComposeKey.
	ErrMalformedKey = errors.New("prefstore: malformed backend key")
	// ErrNilBackend is returned when a store is built without a backend.
	ErrNilBackend = errors.New("prefstore: backend required")
)

// FieldError reports the failure of one field in a batch removal.
type FieldError struct {
	Key string
	Err error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("remove %s: %v", e.Key, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
