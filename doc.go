// Package ftpio implements the transport layer shared by FTP clients and
// servers: timed streams, leaky-bucket bandwidth throttling and the small
// iteration and scoping helpers built on top of them.
//
// # Overview
//
// This package provides:
//   - Named, per-call timeouts for any operation (Call, Timeouts)
//   - A Stream that bounds every read and write by its timeout
//   - A ThrottledStream that additionally waits on any number of named
//     read/write throttle pairs, concurrently, before each transfer
//   - StreamIterator and Lister for line, block and entry iteration
//   - Opener, to use an asynchronously produced resource either directly
//     or scoped
//
// Directory listing parsers live in the listing subpackage and the scoped
// locale switch in the locale subpackage.
//
// # Basic Usage
//
// Wrap any net.Conn:
//
//	conn, err := net.Dial("tcp", "ftp.example.com:21")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s, err := ftpio.NewStream(conn, ftpio.WithTimeout(30*time.Second))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	greeting, err := s.ReadLine(ctx)
//
// # Timeouts
//
// Every Stream has a "read" and a "write" timeout. They are looked up when
// an operation starts, so changing them with SetReadTimeout or
// SetWriteTimeout affects the next call and never one in flight. A zero
// timeout disables the bound.
//
// An expired timeout returns a *TimeoutError and cancels the blocked
// operation. Transports with deadlines (every net.Conn) are interrupted
// through SetReadDeadline/SetWriteDeadline and stay usable; any other
// transport is closed.
//
//	_, err := s.ReadLine(ctx)
//	if ftpio.IsTimeout(err) {
//	    // the server went quiet
//	}
//
// # Bandwidth Throttling
//
// A Throttle limits one direction to a number of bytes per second. Throttles
// come in pairs (read and write) registered under a name. A ThrottledStream
// consults every registered pair, so a global limit and a per-session limit
// can be stacked and the tighter one wins:
//
//	global := ftpio.NewThrottlePair(0, 10<<20) // shared by all sessions
//
//	s, err := ftpio.NewThrottledStream(conn,
//	    ftpio.WithSharedThrottle("global", global),
//	    ftpio.WithThrottle("session", ftpio.NewThrottlePair(1<<20, 1<<20)),
//	)
//
// WithThrottle gives the stream its own copy of the pair; WithSharedThrottle
// shares the pair with everyone else it was given to.
//
// # Iteration
//
// Lines and Blocks iterate a ThrottledStream until it is exhausted:
//
//	for line, err := range s.Lines().All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(string(line))
//	}
//
// # Logging
//
// The package uses log/slog and is silent by default. Pass WithLogger to see
// throttle delays and transport close failures at debug level.
//
// # Metrics
//
// NewMetrics registers Prometheus collectors for transferred bytes, throttle
// waits and timeouts; pass the result to WithMetrics.
package ftpio
