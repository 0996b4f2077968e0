package ftpio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunks returns a read func replaying values and counting its calls.
func chunks[T Chunk](values ...T) (func(context.Context) (T, error), *int) {
	calls := 0
	return func(context.Context) (T, error) {
		i := calls
		calls++
		if i >= len(values) {
			var zero T
			return zero, nil
		}
		return values[i], nil
	}, &calls
}

func TestStreamIterator(t *testing.T) {
	read, calls := chunks("a", "b", "", "c")
	it := NewStreamIterator(read)
	ctx := context.Background()

	got, err := it.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 3, *calls)

	// Exhausted for good: the source is never read again.
	for range 3 {
		_, err := it.Next(ctx)
		assert.ErrorIs(t, err, ErrDone)
	}
	assert.Equal(t, 3, *calls)
}

func TestStreamIterator_Bytes(t *testing.T) {
	read, _ := chunks([]byte("x"), []byte{})
	got, err := NewStreamIterator(read).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("x")}, got)
}

func TestStreamIterator_Empty(t *testing.T) {
	read, _ := chunks[string]()
	got, err := NewStreamIterator(read).Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStreamIterator_Error(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	it := NewStreamIterator(func(context.Context) (string, error) {
		calls++
		if calls == 2 {
			return "", boom
		}
		return "line", nil
	})
	ctx := context.Background()

	var got []string
	var gotErr error
	for chunk, err := range it.All(ctx) {
		if err != nil {
			gotErr = err
			break
		}
		got = append(got, chunk)
	}
	assert.Equal(t, []string{"line"}, got)
	assert.ErrorIs(t, gotErr, boom)

	// An error does not end the iterator.
	chunk, err := it.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "line", chunk)
}

func TestStreamIterator_BreakEarly(t *testing.T) {
	read, calls := chunks("a", "b", "c")
	it := NewStreamIterator(read)
	ctx := context.Background()

	for chunk := range it.All(ctx) {
		assert.Equal(t, "a", chunk)
		break
	}

	rest, err := it.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, rest)
	assert.Equal(t, 4, *calls)
}
