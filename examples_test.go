package ftpio_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/gonzalop/ftpio"
)

// ExampleNewStream reads a reply line from the other end of a connection.
func ExampleNewStream() {
	local, remote := net.Pipe()
	go func() {
		_, _ = io.WriteString(remote, "220 Service ready\r\n")
		_ = remote.Close()
	}()

	s, err := ftpio.NewStream(local, ftpio.WithTimeout(time.Second))
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	line, err := s.ReadLine(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%q\n", line)
	// Output: "220 Service ready\r\n"
}

// ExampleNewThrottledStream stacks a shared server-wide limit and a
// per-session limit.
func ExampleNewThrottledStream() {
	conn, err := net.Dial("tcp", "ftp.example.com:21")
	if err != nil {
		log.Fatal(err)
	}

	global := ftpio.NewThrottlePair(0, 10<<20)
	s, err := ftpio.NewThrottledStream(conn,
		ftpio.WithTimeout(time.Minute),
		ftpio.WithSharedThrottle("global", global),
		ftpio.WithThrottle("session", ftpio.NewThrottlePair(1<<20, 1<<20)),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	// Lower this session's upload rate from now on.
	if err := s.SetLimit("session", ftpio.DirWrite, 256<<10); err != nil {
		log.Fatal(err)
	}
}

// ExampleStreamIterator stops at the first empty chunk.
func ExampleStreamIterator() {
	chunks := []string{"a", "b", "", "c"}
	i := 0
	it := ftpio.NewStreamIterator(func(context.Context) (string, error) {
		c := chunks[i]
		i++
		return c, nil
	})

	for chunk, err := range it.All(context.Background()) {
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(chunk)
	}
	// Output:
	// a
	// b
}

// ExampleLister collects every element of a producer.
func ExampleLister() {
	n := 0
	l := ftpio.NewLister[int](ftpio.ProducerFunc[int](func(context.Context) (int, error) {
		if n == 3 {
			return 0, ftpio.ErrDone
		}
		n++
		return n, nil
	}), time.Second)

	items, err := l.Collect(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(items)
	// Output: [1 2 3]
}

// ExampleCall bounds an arbitrary operation by a named timeout.
func ExampleCall() {
	timeouts := ftpio.NewTimeouts(map[string]time.Duration{"connect": 20 * time.Millisecond})

	_, err := ftpio.Call(context.Background(), timeouts, "connect", func(ctx context.Context) (net.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	fmt.Println(err)
	// Output: ftpio: connect timeout after 20ms
}
