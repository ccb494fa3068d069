package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/reductio/my-fdupes/internals"
)

// installSignalHandler raises token on SIGINT/SIGTERM so every loop
// polling it unwinds cleanly instead of leaving a half-written cache
// transaction or deletion log. Cancellation is plumbed through Context
// rather than a process-wide signal.Notify callback elsewhere in the
// package, per the core's no-globals design.
func installSignalHandler(token *internals.CancelToken) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			token.Cancel()
		case <-done:
		}
	}()

	return func() {
		close(done)
		signal.Stop(sigCh)
	}
}
