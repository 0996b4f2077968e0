package ftpio

import (
	"fmt"
	"sort"

	"github.com/gonzalop/ftpio/internal/ratelimit"
)

type (
	// Throttle is a leaky-bucket bandwidth limiter for one direction.
	Throttle = ratelimit.Throttle

	// ThrottlePair is the read and write throttle of one bandwidth budget.
	ThrottlePair = ratelimit.Pair

	// ThrottleOption configures a Throttle.
	ThrottleOption = ratelimit.Option

	// Direction selects the read or the write side of a ThrottlePair.
	Direction = ratelimit.Direction
)

const (
	// DirRead is the read side of a ThrottlePair.
	DirRead = ratelimit.Read

	// DirWrite is the write side of a ThrottlePair.
	DirWrite = ratelimit.Write
)

var (
	// NewThrottle creates a throttle limited to limit bytes/second (<= 0 = unlimited).
	NewThrottle = ratelimit.New

	// NewThrottlePair creates a pair from a read and a write limit in bytes/second.
	NewThrottlePair = ratelimit.NewPair

	// WithResetRate sets a throttle's drift-correction window.
	WithResetRate = ratelimit.WithResetRate

	// WithThrottleClock sets the clock a throttle waits on.
	WithThrottleClock = ratelimit.WithClock
)

// ThrottleSet maps caller-chosen names (e.g. "server", "session") to
// throttle pairs. Every pair is consulted on every read and write.
type ThrottleSet map[string]ThrottlePair

// Clone returns a set of memoryless copies, suitable for a new connection
// that must not share history with the original.
func (s ThrottleSet) Clone() ThrottleSet {
	c := make(ThrottleSet, len(s))
	for name, pair := range s {
		c[name] = pair.Clone()
	}
	return c
}

// Names returns the registered names in sorted order.
func (s ThrottleSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetLimit changes the limit of one side of the named pair. The pair's
// history on that side is discarded; other pairs are not touched.
func (s ThrottleSet) SetLimit(name string, dir Direction, limit int64) error {
	pair, ok := s[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownThrottle, name)
	}
	pair.Side(dir).SetLimit(limit)
	return nil
}

// side returns the dir side of every pair.
func (s ThrottleSet) side(dir Direction) []*Throttle {
	out := make([]*Throttle, 0, len(s))
	for _, pair := range s {
		out = append(out, pair.Side(dir))
	}
	return out
}
