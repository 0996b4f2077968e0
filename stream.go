package ftpio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// EndOfLine terminates FTP command and reply lines.
	EndOfLine = "\r\n"

	// DefaultBlockSize is the chunk size used by Blocks and the read buffer.
	DefaultBlockSize = 8192

	// DefaultPort is the standard FTP control port.
	DefaultPort = 21

	// DefaultUser, DefaultPassword and DefaultAccount are the anonymous login credentials.
	DefaultUser     = "anonymous"
	DefaultPassword = "anon@"
	DefaultAccount  = ""
)

// Timeout names understood by Stream.ResolveTimeout.
const (
	ReadTimeoutName  = "read"
	WriteTimeoutName = "write"
)

// Stream wraps a Transport and bounds every read by the read timeout and
// every write by the write timeout. Timeouts are resolved per call.
//
// A Stream owns its transport. It is meant to be used by one goroutine at a
// time; only Close and the timeout setters may be called concurrently.
type Stream struct {
	t        Transport
	src      *pushback
	r        *bufio.Reader
	timeouts *Timeouts
	logger   *slog.Logger

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

// NewStream wraps t. Throttle, metrics and progress options are ignored;
// use NewThrottledStream for those.
//
// Example:
//
//	conn, _ := net.Dial("tcp", "ftp.example.com:21")
//	s, err := ftpio.NewStream(conn,
//	    ftpio.WithTimeout(30*time.Second),
//	    ftpio.WithWriteTimeout(5*time.Second),
//	)
func NewStream(t Transport, opts ...Option) (*Stream, error) {
	o := defaultOptions()
	if err := o.apply(opts); err != nil {
		return nil, err
	}
	return newStream(t, o)
}

func newStream(t Transport, o *options) (*Stream, error) {
	if t == nil {
		return nil, errors.New("ftpio: nil transport")
	}
	src := &pushback{r: t}
	return &Stream{
		t:   t,
		src: src,
		r:   bufio.NewReaderSize(src, o.bufferSize),
		timeouts: NewTimeouts(map[string]time.Duration{
			ReadTimeoutName:  o.resolvedReadTimeout(),
			WriteTimeoutName: o.resolvedWriteTimeout(),
		}),
		logger: o.logger,
	}, nil
}

// ResolveTimeout implements TimeoutResolver for "read" and "write".
func (s *Stream) ResolveTimeout(name string) (time.Duration, bool) {
	return s.timeouts.ResolveTimeout(name)
}

// ReadTimeout returns the current read timeout.
func (s *Stream) ReadTimeout() time.Duration { return s.timeouts.Get(ReadTimeoutName) }

// WriteTimeout returns the current write timeout.
func (s *Stream) WriteTimeout() time.Duration { return s.timeouts.Get(WriteTimeoutName) }

// SetReadTimeout changes the read timeout for subsequent reads.
func (s *Stream) SetReadTimeout(d time.Duration) { s.timeouts.Set(ReadTimeoutName, d) }

// SetWriteTimeout changes the write timeout for subsequent writes.
func (s *Stream) SetWriteTimeout(d time.Duration) { s.timeouts.Set(WriteTimeoutName, d) }

// ReadLine reads one line including its '\n'. At EOF it returns whatever
// is left, and an empty slice once nothing is left.
func (s *Stream) ReadLine(ctx context.Context) ([]byte, error) {
	return Call(ctx, s, ReadTimeoutName, s.readLine)
}

func (s *Stream) readLine(ctx context.Context) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	defer s.armRead(ctx)()

	line, err := s.r.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.unread(line)
		return nil, s.ioError("read line", err)
	}
	if line == nil {
		line = []byte{}
	}
	return line, nil
}

// Read returns up to n bytes from a single read of the transport, or an
// empty slice at EOF. A negative n reads until EOF.
func (s *Stream) Read(ctx context.Context, n int) ([]byte, error) {
	return Call(ctx, s, ReadTimeoutName, func(ctx context.Context) ([]byte, error) {
		return s.read(ctx, n)
	})
}

func (s *Stream) read(ctx context.Context, n int) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if n == 0 {
		return []byte{}, nil
	}
	defer s.armRead(ctx)()

	if n < 0 {
		data, err := io.ReadAll(s.r)
		if err != nil {
			s.unread(data)
			return nil, s.ioError("read", err)
		}
		return data, nil
	}

	buf := make([]byte, n)
	k, err := s.r.Read(buf)
	if err != nil && err != io.EOF {
		return nil, s.ioError("read", err)
	}
	return buf[:k], nil
}

// ReadExactly reads exactly n bytes. If the transport ends first it
// returns an *IncompleteReadError carrying the bytes that did arrive.
func (s *Stream) ReadExactly(ctx context.Context, n int) ([]byte, error) {
	return Call(ctx, s, ReadTimeoutName, func(ctx context.Context) ([]byte, error) {
		return s.readExactly(ctx, n)
	})
}

func (s *Stream) readExactly(ctx context.Context, n int) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if n < 0 {
		return nil, fmt.Errorf("ftpio: negative read size %d", n)
	}
	defer s.armRead(ctx)()

	buf := make([]byte, n)
	k, err := io.ReadFull(s.r, buf)
	switch {
	case err == nil:
		return buf, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return nil, &IncompleteReadError{Expected: n, Partial: buf[:k]}
	default:
		s.unread(buf[:k])
		return nil, s.ioError("read exactly", err)
	}
}

// Write writes all of data and flushes the transport if it buffers.
func (s *Stream) Write(ctx context.Context, data []byte) error {
	_, err := Call(ctx, s, WriteTimeoutName, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.write(ctx, data)
	})
	return err
}

func (s *Stream) write(ctx context.Context, data []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	defer s.armWrite(ctx)()

	if _, err := s.t.Write(data); err != nil {
		return s.ioError("write", err)
	}
	if f, ok := s.t.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return s.ioError("flush", err)
		}
	}
	return nil
}

// Close releases the transport. Only the first call closes it; later calls return nil.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.t.Close()
		if s.closeErr != nil {
			s.logger.Debug("ftpio: close transport", "error", s.closeErr)
		}
		err = s.closeErr
	})
	return err
}

// Closed reports whether Close has been called.
func (s *Stream) Closed() bool {
	return s.closed.Load()
}

// unread gives bytes taken by a failed read back to the next one. A failed
// read has drained the bufio buffer, so they go in front of the transport.
func (s *Stream) unread(b []byte) {
	if len(b) > 0 {
		s.src.unread(b)
	}
}

func (s *Stream) ioError(op string, err error) error {
	if s.closed.Load() && !errors.Is(err, ErrClosed) {
		return fmt.Errorf("%s: %w (%w)", op, ErrClosed, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// pushback serves unread bytes before reading from r.
type pushback struct {
	r       io.Reader
	pending []byte
}

func (p *pushback) Read(b []byte) (int, error) {
	if len(p.pending) > 0 {
		n := copy(b, p.pending)
		p.pending = p.pending[n:]
		return n, nil
	}
	return p.r.Read(b)
}

func (p *pushback) unread(b []byte) {
	p.pending = append(bytes.Clone(b), p.pending...)
}
