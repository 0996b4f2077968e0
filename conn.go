package ftpio

import (
	"context"
	"io"
	"time"
)

// Transport is the bidirectional byte stream a Stream owns.
//
// Transports that also implement SetReadDeadline/SetWriteDeadline (every
// net.Conn does) are interrupted through those deadlines when a timeout
// fires. Other transports can only be unblocked by closing them, so a timed
// out operation on such a transport leaves the stream closed.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// past is a deadline that has always already expired.
var past = time.Unix(1, 0)

// arm runs interrupt once ctx is done. The returned disarm func must be
// called after the guarded operation returns; if interrupt ran, disarm waits
// for it and then calls reset.
func arm(ctx context.Context, interrupt, reset func()) (disarm func()) {
	if ctx.Done() == nil {
		return func() {}
	}
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		interrupt()
	})
	return func() {
		if stop() {
			return
		}
		<-fired
		if reset != nil {
			reset()
		}
	}
}

// armRead makes a blocked Read on the stream's transport return once ctx is done.
func (s *Stream) armRead(ctx context.Context) (disarm func()) {
	if d, ok := s.t.(readDeadliner); ok {
		return arm(ctx,
			func() { _ = d.SetReadDeadline(past) },
			func() { _ = d.SetReadDeadline(time.Time{}) },
		)
	}
	return arm(ctx, func() { _ = s.Close() }, nil)
}

// armWrite is armRead for the write side.
func (s *Stream) armWrite(ctx context.Context) (disarm func()) {
	if d, ok := s.t.(writeDeadliner); ok {
		return arm(ctx,
			func() { _ = d.SetWriteDeadline(past) },
			func() { _ = d.SetWriteDeadline(time.Time{}) },
		)
	}
	return arm(ctx, func() { _ = s.Close() }, nil)
}
