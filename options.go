package ftpio

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// Option is a functional option for configuring a Stream or ThrottledStream.
type Option func(*options) error

type options struct {
	timeout      time.Duration
	readTimeout  *time.Duration
	writeTimeout *time.Duration
	bufferSize   int
	logger       *slog.Logger
	clock        clock.Clock
	throttles    ThrottleSet
	metrics      *Metrics
	progress     ProgressFunc
}

func defaultOptions() *options {
	return &options{
		bufferSize: DefaultBlockSize,
		logger:     slog.New(slog.DiscardHandler),
		clock:      clock.New(),
		throttles:  ThrottleSet{},
	}
}

func (o *options) apply(opts []Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

func (o *options) resolvedReadTimeout() time.Duration {
	if o.readTimeout != nil {
		return *o.readTimeout
	}
	return o.timeout
}

func (o *options) resolvedWriteTimeout() time.Duration {
	if o.writeTimeout != nil {
		return *o.writeTimeout
	}
	return o.timeout
}

// WithTimeout sets both the read and the write timeout.
// WithReadTimeout and WithWriteTimeout take precedence regardless of order.
// Zero disables the timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) error {
		o.timeout = timeout
		return nil
	}
}

// WithReadTimeout sets the timeout applied to Read, ReadLine and ReadExactly.
func WithReadTimeout(timeout time.Duration) Option {
	return func(o *options) error {
		o.readTimeout = &timeout
		return nil
	}
}

// WithWriteTimeout sets the timeout applied to Write.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(o *options) error {
		o.writeTimeout = &timeout
		return nil
	}
}

// WithBufferSize sets the size of the read and write buffers.
func WithBufferSize(size int) Option {
	return func(o *options) error {
		if size <= 0 {
			return fmt.Errorf("invalid buffer size %d", size)
		}
		o.bufferSize = size
		return nil
	}
}

// WithLogger enables debug logging using the provided logger.
// Throttle waits and transport close failures are logged at debug level.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	}))
//	s, _ := ftpio.NewThrottledStream(conn, ftpio.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// WithClock sets the clock used to timestamp transfers for throttle accounting.
// It should be the clock the registered throttles wait on.
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		if c != nil {
			o.clock = c
		}
		return nil
	}
}

// WithThrottle registers a clone of pair under name. The stream owns the
// clone exclusively; history never leaks to or from other streams.
// Ignored by NewStream.
func WithThrottle(name string, pair ThrottlePair) Option {
	return func(o *options) error {
		if err := validPair(name, pair); err != nil {
			return err
		}
		o.throttles[name] = pair.Clone()
		return nil
	}
}

// WithSharedThrottle registers pair by reference under name. Every stream
// given the same pair accounts into the same history, which is how a
// server-wide limit is applied across sessions. Ignored by NewStream.
//
// Example:
//
//	global := ftpio.NewThrottlePair(0, 1<<20) // 1 MiB/s for all sessions
//	s, _ := ftpio.NewThrottledStream(conn,
//	    ftpio.WithSharedThrottle("server", global),
//	    ftpio.WithThrottle("session", ftpio.NewThrottlePair(0, 256<<10)),
//	)
func WithSharedThrottle(name string, pair ThrottlePair) Option {
	return func(o *options) error {
		if err := validPair(name, pair); err != nil {
			return err
		}
		o.throttles[name] = pair
		return nil
	}
}

// WithThrottles shares every pair of set, as WithSharedThrottle does.
// Use set.Clone() to give the stream its own copies instead.
func WithThrottles(set ThrottleSet) Option {
	return func(o *options) error {
		for name, pair := range set {
			if err := validPair(name, pair); err != nil {
				return err
			}
			o.throttles[name] = pair
		}
		return nil
	}
}

// WithMetrics records transfers, throttle waits and timeouts into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithProgress calls fn after each accounted transfer with the total bytes
// moved in that direction so far.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) error {
		o.progress = fn
		return nil
	}
}

func validPair(name string, pair ThrottlePair) error {
	if name == "" {
		return fmt.Errorf("throttle name must not be empty")
	}
	if pair.Read == nil || pair.Write == nil {
		return fmt.Errorf("throttle %q: both sides must be set", name)
	}
	return nil
}
