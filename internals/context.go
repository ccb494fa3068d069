package internals

import (
	"log/slog"
)

// Context bundles the per-run state that the teacher's original source
// kept as process-wide singletons (flags, cache handle, cancellation
// token, log handle; design notes §9). A single Context is built by the
// CLI layer and threaded through every component in this package.
type Context struct {
	Flags  Flags
	Cache  *Cache // nil if caching is disabled
	Cancel *CancelToken
	Logger *slog.Logger
	Dest   *DeletionLog // nil until a deletion-log path is configured
}

// NewContext builds a Context with a fresh, unraised cancellation token
// and the process-default slog logger (slog.Default()).
func NewContext(flags Flags) *Context {
	return &Context{
		Flags:  flags,
		Cancel: NewCancelToken(),
		Logger: slog.Default(),
	}
}

// Cancelled reports whether the run's cancellation token has been raised.
func (c *Context) Cancelled() bool {
	return c.Cancel.Cancelled()
}
