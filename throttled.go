package ftpio

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/gonzalop/ftpio/internal/ratelimit"
)

// ThrottledStream is a Stream whose Read, ReadLine and Write first wait on
// every registered throttle pair and then account the bytes actually moved
// into all of them. ReadExactly is not throttled.
//
// Example:
//
//	global := ftpio.NewThrottlePair(0, 10<<20)
//	s, err := ftpio.NewThrottledStream(conn,
//	    ftpio.WithTimeout(time.Minute),
//	    ftpio.WithSharedThrottle("server", global),
//	    ftpio.WithThrottle("session", ftpio.NewThrottlePair(512<<10, 512<<10)),
//	)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	for line, err := range s.Lines().All(ctx) {
//	    ...
//	}
type ThrottledStream struct {
	*Stream

	throttles ThrottleSet
	clock     clock.Clock
	metrics   *Metrics
	progress  ProgressFunc

	readTotal  atomic.Int64
	writeTotal atomic.Int64
}

// NewThrottledStream wraps t with the throttles registered through
// WithThrottle, WithSharedThrottle and WithThrottles.
func NewThrottledStream(t Transport, opts ...Option) (*ThrottledStream, error) {
	o := defaultOptions()
	if err := o.apply(opts); err != nil {
		return nil, err
	}
	s, err := newStream(t, o)
	if err != nil {
		return nil, err
	}
	return &ThrottledStream{
		Stream:    s,
		throttles: o.throttles,
		clock:     o.clock,
		metrics:   o.metrics,
		progress:  o.progress,
	}, nil
}

// Throttle returns the pair registered under name.
func (s *ThrottledStream) Throttle(name string) (ThrottlePair, bool) {
	p, ok := s.throttles[name]
	return p, ok
}

// Throttles returns the registered throttle set. The set itself must not be
// modified; use SetLimit to reconfigure a pair.
func (s *ThrottledStream) Throttles() ThrottleSet {
	return s.throttles
}

// SetLimit changes one side of the named pair. It takes effect on the next
// read or write and leaves the other pairs' history untouched.
func (s *ThrottledStream) SetLimit(name string, dir Direction, limit int64) error {
	return s.throttles.SetLimit(name, dir, limit)
}

// waitAll blocks until every limited dir-side throttle allows I/O.
// The waits run concurrently.
func (s *ThrottledStream) waitAll(ctx context.Context, dir Direction) error {
	throttles := s.throttles.side(dir)
	start := s.clock.Now()
	if err := ratelimit.WaitAll(ctx, throttles...); err != nil {
		return err
	}
	if waited := s.clock.Since(start); waited > time.Millisecond {
		s.logger.Debug("ftpio: throttled", "direction", dir, "delay", waited)
	}
	s.metrics.observeWait(dir, s.clock.Since(start))
	return nil
}

// accountAll records n bytes started at start in every pair's dir side.
func (s *ThrottledStream) accountAll(dir Direction, n int, start time.Time) {
	ratelimit.AppendAll(n, start, s.throttles.side(dir)...)
	if n == 0 {
		return
	}
	s.metrics.addBytes(dir, n)

	var total int64
	if dir == DirWrite {
		total = s.writeTotal.Add(int64(n))
	} else {
		total = s.readTotal.Add(int64(n))
	}
	if s.progress != nil {
		s.progress(dir, total)
	}
}

// Read is Stream.Read throttled by every read-side throttle.
func (s *ThrottledStream) Read(ctx context.Context, n int) ([]byte, error) {
	if err := s.waitAll(ctx, DirRead); err != nil {
		return nil, err
	}
	start := s.clock.Now()
	data, err := s.Stream.Read(ctx, n)
	if err != nil {
		s.metrics.timeout(err)
		return nil, err
	}
	s.accountAll(DirRead, len(data), start)
	return data, nil
}

// ReadLine is Stream.ReadLine throttled by every read-side throttle.
func (s *ThrottledStream) ReadLine(ctx context.Context) ([]byte, error) {
	if err := s.waitAll(ctx, DirRead); err != nil {
		return nil, err
	}
	start := s.clock.Now()
	line, err := s.Stream.ReadLine(ctx)
	if err != nil {
		s.metrics.timeout(err)
		return nil, err
	}
	s.accountAll(DirRead, len(line), start)
	return line, nil
}

// Write is Stream.Write throttled by every write-side throttle.
func (s *ThrottledStream) Write(ctx context.Context, data []byte) error {
	if err := s.waitAll(ctx, DirWrite); err != nil {
		return err
	}
	start := s.clock.Now()
	if err := s.Stream.Write(ctx, data); err != nil {
		s.metrics.timeout(err)
		return err
	}
	s.accountAll(DirWrite, len(data), start)
	return nil
}

// Do runs fn with the stream and closes the stream afterwards, whether fn
// succeeded or not. Errors from fn and Close are combined.
func (s *ThrottledStream) Do(fn func(*ThrottledStream) error) (err error) {
	defer func() {
		err = multierr.Append(err, s.Close())
	}()
	return fn(s)
}

// Enter implements Scope. Entering a stream does nothing.
func (s *ThrottledStream) Enter(context.Context) (*ThrottledStream, error) {
	return s, nil
}

// Exit implements Scope. It always closes the stream.
func (s *ThrottledStream) Exit(_ context.Context, _ error) error {
	return s.Close()
}

// Lines iterates the stream line by line until ReadLine returns nothing.
func (s *ThrottledStream) Lines() *StreamIterator[[]byte] {
	return NewStreamIterator(s.ReadLine)
}

// Blocks iterates the stream in reads of at most size bytes until Read
// returns nothing. size <= 0 uses DefaultBlockSize.
func (s *ThrottledStream) Blocks(size int) *StreamIterator[[]byte] {
	if size <= 0 {
		size = DefaultBlockSize
	}
	return NewStreamIterator(func(ctx context.Context) ([]byte, error) {
		return s.Read(ctx, size)
	})
}

// Reader adapts the throttled read side to io.Reader for use with io.Copy.
func (s *ThrottledStream) Reader(ctx context.Context) io.Reader {
	return &streamReader{ctx: ctx, s: s}
}

// Writer adapts the throttled write side to io.Writer for use with io.Copy.
func (s *ThrottledStream) Writer(ctx context.Context) io.Writer {
	return &streamWriter{ctx: ctx, s: s}
}

type streamReader struct {
	ctx context.Context
	s   *ThrottledStream
}

func (r *streamReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	data, err := r.s.Read(r.ctx, len(p))
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, io.EOF
	}
	return copy(p, data), nil
}

type streamWriter struct {
	ctx context.Context
	s   *ThrottledStream
}

func (w *streamWriter) Write(p []byte) (int, error) {
	if err := w.s.Write(w.ctx, p); err != nil {
		return 0, fmt.Errorf("throttled write: %w", err)
	}
	return len(p), nil
}
