package internals

import "sync/atomic"

// CancelToken is a process-wide cooperative cancellation flag. A signal
// handler (wired by the CLI layer, outside this package's scope per the
// design notes) raises it; every long-running loop in this package polls
// it between iterations and unwinds cleanly rather than aborting mid-write.
type CancelToken struct {
	flag atomic.Bool
}

// NewCancelToken returns a fresh, unraised token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel raises the token. Safe to call from a signal handler goroutine.
func (c *CancelToken) Cancel() {
	c.flag.Store(true)
}

// Cancelled reports whether the token has been raised.
func (c *CancelToken) Cancelled() bool {
	if c == nil {
		return false
	}
	return c.flag.Load()
}
