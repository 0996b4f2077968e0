package ftpio

// ProgressFunc is called after each accounted transfer of a ThrottledStream
// with the direction and the total bytes moved in that direction so far.
//
// Example:
//
//	s, _ := ftpio.NewThrottledStream(conn,
//	    ftpio.WithProgress(func(dir ftpio.Direction, total int64) {
//	        if dir == ftpio.DirWrite {
//	            fmt.Printf("\rsent %d bytes", total)
//	        }
//	    }),
//	)
type ProgressFunc func(dir Direction, bytesTransferred int64)
