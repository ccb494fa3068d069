package internals

import (
	"crypto/md5"
	"hash"
	"io"
	"os"
)

// MD5 implements the message-digest algorithm invented by Ronald Rivest
// (1991). Adapted from the teacher's internals/hash_md5.go.
type MD5 struct {
	h hash.Hash
}

// NewMD5 returns a properly initialized MD5 instance.
func NewMD5() *MD5 {
	return &MD5{h: md5.New()}
}

// OutputSize returns the number of bytes of the digest.
func (c *MD5) OutputSize() int {
	return c.h.Size()
}

// ReadFile updates the hash state with the content of an entire file.
func (c *MD5) ReadFile(filepath string) error {
	fd, err := os.Open(filepath)
	if err != nil {
		return err
	}
	defer fd.Close()

	_, err = io.Copy(c.h, fd)
	return err
}

// ReadBytes updates the hash state with the given bytes.
func (c *MD5) ReadBytes(data []byte) error {
	_, err := c.h.Write(data)
	return err
}

// NewCopy returns a copy of this algorithm with freshly reset state.
func (c *MD5) NewCopy() HashAlgorithm {
	return NewMD5()
}

// Hash returns the digest resulting from the current hash state.
func (c *MD5) Hash() Hash {
	return c.h.Sum(nil)
}

// Name returns the hash algorithm's name.
func (c *MD5) Name() string {
	return "md5"
}
