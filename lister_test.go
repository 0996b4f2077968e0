package ftpio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceProducer yields items, sleeping delay[i] before item i.
type sliceProducer struct {
	items []int
	delay map[int]time.Duration
	next  int
}

func (p *sliceProducer) Next(ctx context.Context) (int, error) {
	i := p.next
	if i >= len(p.items) {
		return 0, ErrDone
	}
	if d := p.delay[i]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	p.next++
	return p.items[i], nil
}

func TestLister_Collect(t *testing.T) {
	l := NewLister[int](&sliceProducer{items: []int{1, 2, 3}}, time.Second)

	got, err := l.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	_, err = l.Next(context.Background())
	assert.ErrorIs(t, err, ErrDone)
}

func TestLister_Empty(t *testing.T) {
	l := NewLister[int](&sliceProducer{}, time.Second)
	got, err := l.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLister_Streaming(t *testing.T) {
	l := NewLister[int](&sliceProducer{items: []int{1, 2, 3}}, time.Second)

	var got []int
	for v, err := range l.All(context.Background()) {
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestLister_TimeoutFailsWholeCollect(t *testing.T) {
	p := &sliceProducer{
		items: []int{1, 2, 3},
		delay: map[int]time.Duration{1: time.Second},
	}
	l := NewLister[int](p, 50*time.Millisecond)

	got, err := l.Collect(context.Background())
	assert.Nil(t, got, "no partial list on failure")

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, DefaultTimeoutName, te.Name)
	assert.Equal(t, 50*time.Millisecond, te.Timeout)
	assert.False(t, errors.Is(err, ErrDone))
}

func TestLister_SetTimeout(t *testing.T) {
	p := &sliceProducer{
		items: []int{1},
		delay: map[int]time.Duration{0: 100 * time.Millisecond},
	}
	l := NewLister[int](p, 20*time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, l.Timeout())

	_, err := l.Next(context.Background())
	require.True(t, IsTimeout(err))

	l.SetTimeout(0)
	v, err := l.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestLister_ProducerFunc(t *testing.T) {
	n := 0
	l := NewLister[string](ProducerFunc[string](func(context.Context) (string, error) {
		n++
		if n > 2 {
			return "", ErrDone
		}
		return "item", nil
	}), 0)

	got, err := l.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"item", "item"}, got)
}

func TestLister_ProducerError(t *testing.T) {
	boom := errors.New("boom")
	l := NewLister[int](ProducerFunc[int](func(context.Context) (int, error) {
		return 0, boom
	}), time.Second)

	_, err := l.Collect(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsTimeout(err))
}
