package internals

import (
	"io"
	"os"
)

// ByteConfirmer reads two files in lockstep and decides byte-for-byte
// equality (spec.md §4.7). It is the last line of defense before a
// deletion, and the thing that makes a reported "duplicate" a proven one.
type ByteConfirmer struct{}

// Confirm reports whether the files at pathA and pathB are byte-for-byte
// identical. Any I/O error is treated as "not confirmed", matching
// spec.md's error-handling design (errors are never promoted to "equal").
func (ByteConfirmer) Confirm(ctx *Context, pathA, pathB string) bool {
	fa, err := os.Open(pathA)
	if err != nil {
		return false
	}
	defer fa.Close()

	fb, err := os.Open(pathB)
	if err != nil {
		return false
	}
	defer fb.Close()

	bufA := make([]byte, ChunkSize)
	bufB := make([]byte, ChunkSize)

	for {
		if ctx.Cancelled() {
			return false
		}

		nA, errA := io.ReadFull(fa, bufA)
		nB, errB := io.ReadFull(fb, bufB)

		if nA != nB {
			return false
		}
		if nA > 0 && !compareBytes(bufA[:nA], bufB[:nB]) {
			return false
		}

		doneA := errA == io.EOF || errA == io.ErrUnexpectedEOF
		doneB := errB == io.EOF || errB == io.ErrUnexpectedEOF

		if doneA != doneB {
			return false // one file ran out before the other
		}
		if doneA && doneB {
			return true
		}
		if errA != nil && !doneA {
			return false
		}
		if errB != nil && !doneB {
			return false
		}
	}
}
