package ftpio

import (
	"context"
	"iter"
)

// Chunk is the element type a StreamIterator can detect as empty.
type Chunk interface {
	~[]byte | ~string
}

// StreamIterator turns a "read next chunk" function into a finite,
// forward-only sequence. The first empty chunk ends the sequence; after
// that the read function is never called again and Next keeps returning
// ErrDone. A StreamIterator cannot be restarted.
type StreamIterator[T Chunk] struct {
	read func(context.Context) (T, error)
	done bool
}

// NewStreamIterator creates an iterator over read.
func NewStreamIterator[T Chunk](read func(context.Context) (T, error)) *StreamIterator[T] {
	return &StreamIterator[T]{read: read}
}

// Next returns the next non-empty chunk, or ErrDone once the source is exhausted.
// Errors from the read function are returned as is and do not end the iterator.
func (it *StreamIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if it.done {
		return zero, ErrDone
	}
	chunk, err := it.read(ctx)
	if err != nil {
		return zero, err
	}
	if len(chunk) == 0 {
		it.done = true
		return zero, ErrDone
	}
	return chunk, nil
}

// All returns the remaining chunks as a range-over-func sequence. The
// sequence stops after the first error, which it yields with a zero chunk.
func (it *StreamIterator[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			chunk, err := it.Next(ctx)
			if err == ErrDone {
				return
			}
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}

// Collect reads the remaining chunks into a slice.
func (it *StreamIterator[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for chunk, err := range it.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, chunk)
	}
	return out, nil
}
