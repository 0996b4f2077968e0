// Package ratelimit provides the leaky-bucket throttle used to limit
// bandwidth on FTP control and data streams.
//
// A Throttle remembers how many bytes were transferred since a floating
// window start and makes callers wait until that many bytes "fit" into the
// configured rate. Several throttles can be stacked on one stream (for
// example a server-wide limit plus a per-session limit); WaitAll waits on
// all of them concurrently so their delays never add up.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
)

// DefaultResetRate is the window after which accumulated history is
// rebased onto the current time.
const DefaultResetRate = 10 * time.Second

// Direction selects the read or write side of a Pair.
type Direction int

const (
	Read Direction = iota
	Write
)

func (d Direction) String() string {
	switch d {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Option configures a Throttle.
type Option func(*Throttle)

// WithResetRate sets the drift-correction window. Non-positive values are ignored.
func WithResetRate(d time.Duration) Option {
	return func(t *Throttle) {
		if d > 0 {
			t.resetRate = d
		}
	}
}

// WithClock sets the clock used for waiting and for reading the current time.
func WithClock(c clock.Clock) Option {
	return func(t *Throttle) {
		if c != nil {
			t.clock = c
		}
	}
}

// Throttle is a single-channel leaky-bucket rate limiter.
//
// A Throttle is safe for concurrent use, so one instance may be shared by
// every stream that must respect the same budget.
type Throttle struct {
	mu          sync.Mutex
	limit       int64 // bytes per second, <= 0 means unlimited
	resetRate   time.Duration
	clock       clock.Clock
	started     bool
	windowStart time.Time
	accumulated int64 // may go negative after drift correction
}

// New creates a throttle limited to limit bytes per second.
// A limit <= 0 creates an unlimited throttle.
func New(limit int64, opts ...Option) *Throttle {
	t := &Throttle{
		limit:     limit,
		resetRate: DefaultResetRate,
		clock:     clock.New(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Limit returns the configured rate in bytes per second.
func (t *Throttle) Limit() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limit
}

// Limited reports whether the throttle enforces a rate.
func (t *Throttle) Limited() bool {
	return t.Limit() > 0
}

// SetLimit changes the rate and forgets all accumulated history.
func (t *Throttle) SetLimit(limit int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limit = limit
	t.started = false
	t.windowStart = time.Time{}
	t.accumulated = 0
}

// ResetRate returns the drift-correction window.
func (t *Throttle) ResetRate() time.Duration {
	return t.resetRate
}

// Clock returns the clock the throttle waits on.
func (t *Throttle) Clock() clock.Clock {
	return t.clock
}

// Accumulated returns the number of bytes currently owed to the window.
func (t *Throttle) Accumulated() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.accumulated
}

// WindowStart returns the start of the accounting window and whether one
// has been established yet.
func (t *Throttle) WindowStart() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.windowStart, t.started
}

// Delay returns how long Wait would currently block.
func (t *Throttle) Delay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limit <= 0 || !t.started {
		return 0
	}
	owed := time.Duration(float64(t.accumulated) / float64(t.limit) * float64(time.Second))
	d := t.windowStart.Add(owed).Sub(t.clock.Now())
	if d < 0 {
		return 0
	}
	return d
}

// Wait blocks until the bytes accounted so far fit into the rate.
// It returns ctx.Err() if ctx is done first.
func (t *Throttle) Wait(ctx context.Context) error {
	d := t.Delay()
	if d <= 0 {
		return ctx.Err()
	}
	timer := t.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Append records n transferred bytes for an operation that started at start.
// It is a no-op for unlimited throttles.
func (t *Throttle) Append(n int, start time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limit <= 0 {
		return
	}
	if !t.started {
		t.started = true
		t.windowStart = start
	}
	if elapsed := start.Sub(t.windowStart); elapsed > t.resetRate {
		// Half-to-even, so long sessions drift the same way everywhere.
		t.accumulated -= int64(math.RoundToEven(elapsed.Seconds() * float64(t.limit)))
		t.windowStart = start
	}
	t.accumulated += int64(n)
}

// Clone returns a throttle with the same limit, reset rate and clock but
// without any history.
func (t *Throttle) Clone() *Throttle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &Throttle{
		limit:     t.limit,
		resetRate: t.resetRate,
		clock:     t.clock,
	}
}

func (t *Throttle) String() string {
	return fmt.Sprintf("Throttle(limit=%d, reset_rate=%s)", t.Limit(), t.resetRate)
}

// Pair bundles the read and write throttles of one bandwidth budget.
type Pair struct {
	Read  *Throttle
	Write *Throttle
}

// NewPair builds a pair from two byte/second limits; <= 0 means unlimited.
func NewPair(readLimit, writeLimit int64, opts ...Option) Pair {
	return Pair{
		Read:  New(readLimit, opts...),
		Write: New(writeLimit, opts...),
	}
}

// Clone clones both sides without memory.
func (p Pair) Clone() Pair {
	return Pair{
		Read:  p.Read.Clone(),
		Write: p.Write.Clone(),
	}
}

// Side returns the throttle governing dir.
func (p Pair) Side(dir Direction) *Throttle {
	if dir == Write {
		return p.Write
	}
	return p.Read
}

// WaitAll waits on every limited throttle concurrently and returns when all
// of them are satisfied, i.e. after the largest delay.
func WaitAll(ctx context.Context, throttles ...*Throttle) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range throttles {
		if t == nil || !t.Limited() {
			continue
		}
		g.Go(func() error {
			return t.Wait(gctx)
		})
	}
	return g.Wait()
}

// AppendAll records n bytes started at start into every throttle.
func AppendAll(n int, start time.Time, throttles ...*Throttle) {
	for _, t := range throttles {
		if t != nil {
			t.Append(n, start)
		}
	}
}
