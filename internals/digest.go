package internals

import (
	"io"
	"os"
)

// PrefixDigestSize is the number of leading bytes the partial digest
// covers (spec.md §4.2).
const PrefixDigestSize = 4096

// ChunkSize is the I/O granularity every digest/confirm loop reads in.
// Cancellation is polled between chunks (spec.md §5).
const ChunkSize = 8 * 1024

// HeuristicThreshold is the minimum file size that makes a file eligible
// for sampled ("heuristic") digesting (spec.md §4.2: "size > 3 MB").
const HeuristicThreshold = 3 * 1024 * 1024

// HeuristicBlockSize is the size of each sampled block.
const HeuristicBlockSize = 1 * 1024 * 1024

// HeuristicStride is the offset between the start of successive sampled
// blocks (beyond the first).
const HeuristicStride = 50 * 1024 * 1024

// DigestEngine streams bytes from a file and produces a 128-bit digest in
// one of three modes (spec.md §4.2). It holds no per-file state; callers
// pass the already-known size (captured at the same moment the caller
// decided to digest the file) so sampled offsets are stable even if the
// file is concurrently truncated mid-digest.
type DigestEngine struct {
	Algo HashAlgo
}

// NewDigestEngine returns a DigestEngine using the given algorithm.
func NewDigestEngine(algo HashAlgo) *DigestEngine {
	return &DigestEngine{Algo: algo}
}

// PrefixDigest digests the first min(size, 4096) bytes of path.
func (e *DigestEngine) PrefixDigest(ctx *Context, path string, size int64) ([]byte, error) {
	length := int64(PrefixDigestSize)
	if size < length {
		length = size
	}
	return e.digestRanges(ctx, path, []byteRange{{offset: 0, length: length}})
}

// FullDigest digests every byte of path.
func (e *DigestEngine) FullDigest(ctx *Context, path string, size int64) ([]byte, error) {
	return e.digestRanges(ctx, path, []byteRange{{offset: 0, length: size}})
}

// SampledDigest digests the fixed pattern of blocks spec.md §4.2
// describes: the first 1 MB block, a 1 MB block at every 50 MB offset
// for which a full block fits before EOF, and the final 1 MB block
// ending at EOF. Offsets are derived from size, captured by the caller
// at the moment it chose to digest this file.
func (e *DigestEngine) SampledDigest(ctx *Context, path string, size int64) ([]byte, error) {
	ranges := sampledRanges(size)
	return e.digestRanges(ctx, path, ranges)
}

type byteRange struct {
	offset, length int64
}

func sampledRanges(size int64) []byteRange {
	if size <= HeuristicBlockSize {
		return []byteRange{{offset: 0, length: size}}
	}

	ranges := []byteRange{{offset: 0, length: HeuristicBlockSize}}
	for offset := int64(HeuristicStride); offset+HeuristicBlockSize <= size; offset += HeuristicStride {
		ranges = append(ranges, byteRange{offset: offset, length: HeuristicBlockSize})
	}
	ranges = append(ranges, byteRange{offset: size - HeuristicBlockSize, length: HeuristicBlockSize})
	return ranges
}

// digestRanges opens path once and feeds each requested byte range, in
// order, into a fresh instance of e.Algo, in ChunkSize pieces, polling
// ctx's cancellation token between chunks.
func (e *DigestEngine) digestRanges(ctx *Context, path string, ranges []byteRange) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrDigestUnavailable
	}
	defer f.Close()

	algo := e.Algo.Algorithm()
	buf := make([]byte, ChunkSize)

	for _, r := range ranges {
		if _, err := f.Seek(r.offset, io.SeekStart); err != nil {
			return nil, ErrDigestUnavailable
		}
		remaining := r.length
		for remaining > 0 {
			if ctx.Cancelled() {
				return nil, ErrCancelled
			}
			want := int64(len(buf))
			if remaining < want {
				want = remaining
			}
			n, readErr := io.ReadFull(f, buf[:want])
			if n > 0 {
				if werr := algo.ReadBytes(buf[:n]); werr != nil {
					return nil, ErrDigestUnavailable
				}
			}
			remaining -= int64(n)
			if readErr != nil {
				if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
					break
				}
				return nil, ErrDigestUnavailable
			}
		}
	}

	return algo.Hash(), nil
}
