package internals

import (
	"hash"
	"hash/fnv"
	"io"
	"os"
)

// FNV1a128 implements the Fowler-Noll-Vo non-cryptographic hash function
// invented by Glenn Fowler, Landon Curt Noll, and Kiem-Phong Vo (1991).
// Adapted from the teacher's internals/hash_fnv-1a-128.go.
type FNV1a128 struct {
	h hash.Hash
}

// NewFNV1a128 returns a properly initialized FNV1a128 instance.
func NewFNV1a128() *FNV1a128 {
	return &FNV1a128{h: fnv.New128a()}
}

// OutputSize returns the number of bytes of the digest.
func (c *FNV1a128) OutputSize() int {
	return c.h.Size()
}

// ReadFile updates the hash state with the content of an entire file.
func (c *FNV1a128) ReadFile(filepath string) error {
	fd, err := os.Open(filepath)
	if err != nil {
		return err
	}
	defer fd.Close()

	_, err = io.Copy(c.h, fd)
	return err
}

// ReadBytes updates the hash state with the given bytes.
func (c *FNV1a128) ReadBytes(data []byte) error {
	_, err := c.h.Write(data)
	return err
}

// NewCopy returns a copy of this algorithm with freshly reset state.
func (c *FNV1a128) NewCopy() HashAlgorithm {
	return NewFNV1a128()
}

// Hash returns the digest resulting from the current hash state.
func (c *FNV1a128) Hash() Hash {
	return c.h.Sum(nil)
}

// Name returns the hash algorithm's name.
func (c *FNV1a128) Name() string {
	return "fnv-1a-128"
}
