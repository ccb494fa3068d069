package internals

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HashAlgorithm is a custom interface to define operations a hash
// algorithm needs to support to be pluggable in the Digest Engine.
// Adapted from the teacher's HashAlgorithm interface (internals/hash.go);
// narrowed to algorithms that produce a 128-bit digest, since spec.md
// fixes the digest at 16 bytes (see adjacent hash_*.go files).
type HashAlgorithm interface {
	// Hash returns the current digest state.
	Hash() Hash
	// Name returns the algorithm's string representation.
	Name() string
	// NewCopy returns a copy of this algorithm with freshly reset state.
	NewCopy() HashAlgorithm
	// OutputSize returns the digest size in bytes (always 16 here).
	OutputSize() int
	// ReadFile updates the hash state with an entire file's content.
	ReadFile(string) error
	// ReadBytes updates the hash state with the given bytes.
	ReadBytes([]byte) error
}

// HashAlgo indexes into the small set of 128-bit digest algorithms this
// port supports.
type HashAlgo uint8

// HashAlgos contains the complete list of supported hash algorithms.
type HashAlgos struct{}

// Hash represents a hash value produced by a HashAlgorithm.
type Hash []byte

const (
	// HashMD5 → Message-digest algorithm, 128 bits output. spec.md §4.2:
	// "existing data uses MD5"; kept as the default for cache compatibility.
	HashMD5 HashAlgo = iota
	// HashFNV1A128 → Fowler-Noll-Vo 1a hash function, 128 bits output.
	// Non-cryptographic but fast; spec.md's design notes explicitly permit
	// substituting a faster 128-bit digest.
	HashFNV1A128
)

// CountHashAlgos is the number of registered hash algorithms.
const CountHashAlgos = 2

// Algorithm returns a HashAlgorithm instance for this HashAlgo.
func (h HashAlgo) Algorithm() HashAlgorithm {
	switch h {
	case HashFNV1A128:
		return NewFNV1a128()
	default:
		return NewMD5()
	}
}

// Default returns the default hash algorithm.
func (h HashAlgos) Default() HashAlgo {
	return HashMD5
}

// FromString returns a HashAlgo instance matching the algorithm's name.
func (h HashAlgos) FromString(name string) (HashAlgo, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if !contains(h.Names(), name) {
		return h.Default(), fmt.Errorf(`expected hash algorithm name; got unknown name '%q'`, name)
	}
	for i := 0; i < CountHashAlgos; i++ {
		algo := HashAlgo(i)
		if algo.Algorithm().Name() == name {
			return algo, nil
		}
	}
	return h.Default(), fmt.Errorf(`expected hash algorithm name; got unknown name '%q'`, name)
}

// Names returns the list of names of supported hash algorithms.
func (h HashAlgos) Names() []string {
	list := make([]string, CountHashAlgos)
	for i := 0; i < CountHashAlgos; i++ {
		list[i] = HashAlgo(i).Algorithm().Name()
	}
	return list
}

// Digest returns the hexadecimal nibble representation of a hash value.
func (h Hash) Digest() string {
	return hex.EncodeToString(h)
}
