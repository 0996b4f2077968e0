package ftpio

import (
	"context"
	"errors"
	"iter"
	"time"
)

// Producer is the one step a concrete listing must implement: produce the
// next element, or return ErrDone when there are no more.
type Producer[T any] interface {
	Next(ctx context.Context) (T, error)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc[T any] func(ctx context.Context) (T, error)

// Next implements Producer.
func (f ProducerFunc[T]) Next(ctx context.Context) (T, error) { return f(ctx) }

// Lister gives every Producer the same two ways of being consumed: one
// element at a time (Next, All) or all at once (Collect). Each step is
// bounded by the lister's timeout.
//
// Example:
//
//	l := ftpio.NewLister(producer, 10*time.Second)
//
//	// streaming
//	for entry, err := range l.All(ctx) {
//	    ...
//	}
//
//	// or eager
//	entries, err := l.Collect(ctx)
type Lister[T any] struct {
	p        Producer[T]
	timeouts *Timeouts
}

// NewLister wraps p. A zero timeout leaves steps unbounded.
func NewLister[T any](p Producer[T], timeout time.Duration) *Lister[T] {
	return &Lister[T]{
		p:        p,
		timeouts: NewTimeouts(map[string]time.Duration{DefaultTimeoutName: timeout}),
	}
}

// Timeout returns the per-element timeout.
func (l *Lister[T]) Timeout() time.Duration { return l.timeouts.Get(DefaultTimeoutName) }

// SetTimeout changes the per-element timeout for subsequent steps.
func (l *Lister[T]) SetTimeout(d time.Duration) { l.timeouts.Set(DefaultTimeoutName, d) }

// ResolveTimeout implements TimeoutResolver.
func (l *Lister[T]) ResolveTimeout(name string) (time.Duration, bool) {
	return l.timeouts.ResolveTimeout(name)
}

// Next produces one element. It returns ErrDone at the end of the listing
// and a *TimeoutError if the step exceeded the timeout.
func (l *Lister[T]) Next(ctx context.Context) (T, error) {
	v, err := CallDefault(ctx, l, l.p.Next)
	if errors.Is(err, ErrDone) && !IsTimeout(err) {
		var zero T
		return zero, ErrDone
	}
	return v, err
}

// All returns the remaining elements as a range-over-func sequence. It ends
// at ErrDone; any other error is yielded once and ends the sequence.
func (l *Lister[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := l.Next(ctx)
			if err == ErrDone {
				return
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Collect produces every remaining element, in order. It never returns a
// partial list: any failure, including a timeout, fails the whole call.
func (l *Lister[T]) Collect(ctx context.Context) ([]T, error) {
	var items []T
	for v, err := range l.All(ctx) {
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}
