package ftpio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeoutName is the timeout name used by CallDefault.
const DefaultTimeoutName = "timeout"

// TimeoutResolver resolves a named timeout at call time.
// A zero or negative duration means the operation is unbounded.
// ok is false when the receiver has no timeout with that name.
type TimeoutResolver interface {
	ResolveTimeout(name string) (d time.Duration, ok bool)
}

// Call runs op bounded by the timeout r resolves for name.
//
// The timeout is looked up on every call, so reconfiguring it takes effect
// on the next operation. When it expires op's context is cancelled; op must
// return once its context is done. If op then fails, Call returns a
// *TimeoutError. A cancelled parent context is reported as is.
//
// Asking for a name r does not know is a programming error and panics.
func Call[T any](ctx context.Context, r TimeoutResolver, name string, op func(context.Context) (T, error)) (T, error) {
	d, ok := r.ResolveTimeout(name)
	if !ok {
		panic(fmt.Sprintf("ftpio: %T has no timeout named %q", r, name))
	}
	if d <= 0 {
		return op(ctx)
	}

	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	v, err := op(tctx)
	if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		var zero T
		return zero, &TimeoutError{Name: name, Timeout: d, Err: err}
	}
	return v, err
}

// CallDefault is Call with DefaultTimeoutName.
func CallDefault[T any](ctx context.Context, r TimeoutResolver, op func(context.Context) (T, error)) (T, error) {
	return Call(ctx, r, DefaultTimeoutName, op)
}

// Timeouts is a concurrency-safe table of named timeouts. Values can be
// changed while operations are in flight; the change applies to the next call.
type Timeouts struct {
	mu sync.RWMutex
	m  map[string]time.Duration
}

// NewTimeouts creates a table holding the given names.
func NewTimeouts(values map[string]time.Duration) *Timeouts {
	t := &Timeouts{m: make(map[string]time.Duration, len(values))}
	for k, v := range values {
		t.m[k] = v
	}
	return t
}

// Set stores d under name.
func (t *Timeouts) Set(name string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.m == nil {
		t.m = make(map[string]time.Duration)
	}
	t.m[name] = d
}

// Get returns the timeout stored under name, or zero.
func (t *Timeouts) Get(name string) time.Duration {
	d, _ := t.ResolveTimeout(name)
	return d
}

// ResolveTimeout implements TimeoutResolver.
func (t *Timeouts) ResolveTimeout(name string) (time.Duration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.m[name]
	return d, ok
}
