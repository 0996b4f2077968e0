package ftpio

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeStream returns a Stream over one end of a net.Pipe and the other end.
func pipeStream(t *testing.T, opts ...Option) (*Stream, net.Conn) {
	t.Helper()
	local, remote := net.Pipe()
	s, err := NewStream(local, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
		_ = remote.Close()
	})
	return s, remote
}

// serve writes data to c and closes it.
func serve(c net.Conn, data string) {
	go func() {
		_, _ = io.WriteString(c, data)
		_ = c.Close()
	}()
}

// pipeTransport is a Transport without deadlines.
type pipeTransport struct {
	*io.PipeReader
	w *io.PipeWriter
}

func (p *pipeTransport) Write(b []byte) (int, error) { return p.w.Write(b) }

func (p *pipeTransport) Close() error {
	_ = p.w.Close()
	return p.PipeReader.Close()
}

func TestNewStream_Options(t *testing.T) {
	local, _ := net.Pipe()

	s, err := NewStream(local,
		WithReadTimeout(time.Second),
		WithTimeout(5*time.Second),
	)
	require.NoError(t, err)
	assert.Equal(t, time.Second, s.ReadTimeout())
	assert.Equal(t, 5*time.Second, s.WriteTimeout())

	_, err = NewStream(local, WithBufferSize(0))
	assert.Error(t, err)

	_, err = NewStream(nil)
	assert.Error(t, err)
}

func TestStream_ReadLine(t *testing.T) {
	s, remote := pipeStream(t)
	serve(remote, "220 ready\r\n331 user ok\r\npartial")
	ctx := context.Background()

	for _, want := range []string{"220 ready\r\n", "331 user ok\r\n", "partial", ""} {
		line, err := s.ReadLine(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, string(line))
	}

	// Still empty after EOF.
	line, err := s.ReadLine(ctx)
	require.NoError(t, err)
	assert.Empty(t, line)
}

func TestStream_Read(t *testing.T) {
	s, remote := pipeStream(t)
	serve(remote, "abcdef")
	ctx := context.Background()

	data, err := s.Read(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, data)

	data, err = s.Read(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(data))

	data, err = s.Read(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, "cdef", string(data))

	data, err = s.Read(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestStream_ReadExactly(t *testing.T) {
	s, remote := pipeStream(t)
	serve(remote, "0123456789")
	ctx := context.Background()

	data, err := s.ReadExactly(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(data))

	_, err = s.ReadExactly(ctx, 10)
	var ie *IncompleteReadError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 10, ie.Expected)
	assert.Equal(t, "456789", string(ie.Partial))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestStream_ReadTimeout(t *testing.T) {
	s, remote := pipeStream(t, WithReadTimeout(50*time.Millisecond))
	ctx := context.Background()

	start := time.Now()
	_, err := s.ReadLine(ctx)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ReadTimeoutName, te.Name)
	assert.Less(t, time.Since(start), time.Second)

	// The deadline was reset: the stream keeps working.
	assert.False(t, s.Closed())
	go func() { _, _ = io.WriteString(remote, "hello\n") }()
	s.SetReadTimeout(time.Second)
	line, err := s.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(line))
}

func TestStream_ReadTimeoutKeepsPartialData(t *testing.T) {
	tests := []struct {
		name  string
		read  func(s *Stream) ([]byte, error)
		first string
		rest  string
	}{
		{
			name:  "read line",
			read:  func(s *Stream) ([]byte, error) { return s.ReadLine(context.Background()) },
			first: "226 par",
			rest:  "tial\r\n",
		},
		{
			name:  "read exactly",
			read:  func(s *Stream) ([]byte, error) { return s.ReadExactly(context.Background(), 5) },
			first: "abc",
			rest:  "de",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, remote := pipeStream(t, WithReadTimeout(50*time.Millisecond))

			timedOut := make(chan struct{})
			go func() {
				_, _ = io.WriteString(remote, tt.first)
				<-timedOut
				_, _ = io.WriteString(remote, tt.rest)
			}()
			_, err := tt.read(s)
			require.True(t, IsTimeout(err), "err = %v", err)

			s.SetReadTimeout(time.Second)
			close(timedOut)
			data, err := tt.read(s)
			require.NoError(t, err)
			assert.Equal(t, tt.first+tt.rest, string(data))
		})
	}
}

func TestStream_WriteTimeout(t *testing.T) {
	s, _ := pipeStream(t, WithWriteTimeout(50*time.Millisecond))

	// Nobody reads the other end.
	err := s.Write(context.Background(), []byte("STOR file\r\n"))
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, WriteTimeoutName, te.Name)
}

func TestStream_Write(t *testing.T) {
	s, remote := pipeStream(t, WithTimeout(time.Second))

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := remote.Read(buf)
		got <- string(buf[:n])
	}()

	require.NoError(t, s.Write(context.Background(), []byte("NOOP\r\n")))
	assert.Equal(t, "NOOP\r\n", <-got)
}

func TestStream_TimeoutWithoutDeadlinesCloses(t *testing.T) {
	r, w := io.Pipe()
	s, err := NewStream(&pipeTransport{PipeReader: r, w: w}, WithReadTimeout(30*time.Millisecond))
	require.NoError(t, err)

	_, err = s.Read(context.Background(), 10)
	assert.True(t, IsTimeout(err))
	assert.True(t, s.Closed())

	_, err = s.Read(context.Background(), 10)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStream_Close(t *testing.T) {
	s, _ := pipeStream(t)

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.True(t, s.Closed())

	_, err := s.ReadLine(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, err, net.ErrClosed)

	err = s.Write(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStream_ParentContextCancelled(t *testing.T) {
	s, _ := pipeStream(t, WithReadTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := s.ReadLine(ctx)
	require.Error(t, err)
	assert.False(t, IsTimeout(err))
	assert.False(t, errors.Is(err, ErrClosed))
}
