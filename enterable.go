package ftpio

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// Scope is a resource with its own scoped acquisition: Enter yields the
// value to work with and Exit releases it. Exit receives the error the
// scope body ended with, if any.
type Scope[V any] interface {
	Enter(ctx context.Context) (V, error)
	Exit(ctx context.Context, err error) error
}

// Opener holds a factory that asynchronously produces a Scope and lets the
// caller either resolve the resource itself or acquire its scope directly.
// Every call runs the factory again; nothing is cached.
//
// Example:
//
//	open := ftpio.NewOpener[*ftpio.ThrottledStream, *ftpio.ThrottledStream](func(ctx context.Context) (*ftpio.ThrottledStream, error) {
//	    conn, err := dialer.DialContext(ctx, "tcp", addr)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return ftpio.NewThrottledStream(conn, opts...)
//	})
//
//	// resolve, manage the resource yourself
//	s, err := open.Resolve(ctx)
//
//	// or scoped: s is closed when fn returns
//	err = open.Use(ctx, func(s *ftpio.ThrottledStream) error { ... })
type Opener[R Scope[V], V any] struct {
	factory func(ctx context.Context) (R, error)
}

// NewOpener wraps factory.
func NewOpener[R Scope[V], V any](factory func(ctx context.Context) (R, error)) Opener[R, V] {
	return Opener[R, V]{factory: factory}
}

// Resolve runs the factory and returns the resource without entering it.
func (o Opener[R, V]) Resolve(ctx context.Context) (R, error) {
	return o.factory(ctx)
}

// Acquire runs the factory and enters the resource's scope. release must
// be called exactly once with the error the caller's work ended with; it
// delegates to the resource's Exit. Further calls to release do nothing.
func (o Opener[R, V]) Acquire(ctx context.Context) (V, func(error) error, error) {
	var zero V
	r, err := o.factory(ctx)
	if err != nil {
		return zero, nil, err
	}
	v, err := r.Enter(ctx)
	if err != nil {
		return zero, nil, err
	}
	var once sync.Once
	release := func(cause error) error {
		var exitErr error
		once.Do(func() {
			exitErr = r.Exit(ctx, cause)
		})
		return exitErr
	}
	return v, release, nil
}

// Use acquires the scope, runs fn with its value and releases the scope
// on every path. Errors from fn and from the release are combined.
func (o Opener[R, V]) Use(ctx context.Context, fn func(V) error) (err error) {
	v, release, err := o.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = release(fmt.Errorf("ftpio: panic in scope: %v", p))
			panic(p)
		}
		err = multierr.Append(err, release(err))
	}()
	return fn(v)
}
