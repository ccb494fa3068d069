package internals

import "errors"

// ErrCancelled is returned by any long-running loop once the cancellation
// token has been raised. Callers should treat it as a clean shutdown signal,
// not a failure.
var ErrCancelled = errors.New("operation cancelled")

// ErrDigestUnavailable signals that a digest could not be computed for a
// file (read failure, permission denied, file vanished mid-scan). The
// Grouping Engine drops the offending record rather than aborting the run.
var ErrDigestUnavailable = errors.New("digest unavailable")

// ErrEmptySelection is returned by the Deletion Driver when asked to apply
// a selection that preserves zero files. The interactive prompt never
// produces one: it re-prompts on an empty or invalid selection instead.
var ErrEmptySelection = errors.New("at least one file must be preserved")

// ErrPromptEOF signals that the interactive prompt reader hit EOF (Ctrl-D)
// instead of a line of input. The Deletion Driver treats this as "quit the
// run", preserving every remaining set untouched.
var ErrPromptEOF = errors.New("prompt reader reached EOF")
