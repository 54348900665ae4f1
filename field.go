package prefstore

import (
	"context"
)

// FieldKey is any field of schema S, regardless of its value type.
type FieldKey[S any] interface {
	Key() string
	schema() S
}

// TypedField binds a field key of schema S to its value type T.
type TypedField[S, T any] struct {
	key string
}

// NewField defines a field. It panics on an empty key, so fields are meant to
// be declared as package-level variables.
func NewField[S, T any](key string) TypedField[S, T] {
	if key == "" {
		panic("prefstore: empty field key")
	}
	return TypedField[S, T]{key: key}
}

// Key returns the field key, the last segment of every path to this field.
func (f TypedField[S, T]) Key() string { return f.key }

func (f TypedField[S, T]) schema() S {
	var zero S
	return zero
}

// Path returns the scope path for this field under scope.
func (f TypedField[S, T]) Path(scope ...string) Path {
	p := make(Path, 0, len(scope)+1)
	return append(append(p, scope...), f.key)
}

// Get reads the field. ok is false when the record is missing or unreadable.
func (f TypedField[S, T]) Get(ctx context.Context, s *Store[S], scope ...string) (T, bool, error) {
	var v T
	ok, err := s.Load(ctx, f.Path(scope...), &v)
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}

// Set writes the field and notifies its listeners.
func (f TypedField[S, T]) Set(ctx context.Context, s *Store[S], v T, scope ...string) error {
	return s.Put(ctx, f.Path(scope...), v)
}

// Remove deletes the field and notifies its listeners.
func (f TypedField[S, T]) Remove(ctx context.Context, s *Store[S], scope ...string) error {
	return s.Delete(ctx, f.Path(scope...))
}

// OnChange registers fn for changes to the field under scope.
func (f TypedField[S, T]) OnChange(s *Store[S], fn func(), scope ...string) (*Handle, error) {
	return s.OnChange(f.Path(scope...), fn)
}

// Bind mounts a Binding on the field under scope. The binding lives until
// Close is called or ctx is cancelled.
func (f TypedField[S, T]) Bind(ctx context.Context, s *Store[S], scope []string, opts ...BindOption[T]) (*Binding[T], error) {
	p := f.Path(scope...)
	src := source[T]{
		path: p,
		get: func(ctx context.Context) (T, bool, error) {
			return f.Get(ctx, s, scope...)
		},
		put: func(ctx context.Context, v T) error {
			return s.Put(ctx, p, v)
		},
		subscribe: func(fn func()) (*Handle, error) {
			return s.OnChange(p, fn)
		},
		logger:   s.Logger(),
		rollback: s.Config().RollbackOnFailedSet,
	}
	return newBinding(ctx, src, opts...)
}
