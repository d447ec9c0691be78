// Package checksum implements the ChecksumService: SHA3-512 digests over
// byte buffers and streams, with lossless hex round-tripping.
package checksum

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"
)

// Length is the fixed size in bytes of a SHA3-512 digest.
const Length = 64

// Checksum is a 64-byte SHA3-512 digest, the content-address of a block.
type Checksum [Length]byte

// FormatError reports a malformed hex string passed to FromHex.
type FormatError struct {
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("checksum: invalid hex string %q: want %d hex characters", e.Input, Length*2)
}

// Calculate computes the SHA3-512 digest of data.
func Calculate(data []byte) Checksum {
	return Checksum(sha3.Sum512(data))
}

// CalculateForSequence concatenates chunks logically and digests the result
// in a single pass, without materializing the concatenation.
func CalculateForSequence(chunks [][]byte) Checksum {
	h := sha3.New512()
	for _, c := range chunks {
		h.Write(c)
	}
	var out Checksum
	copy(out[:], h.Sum(nil))
	return out
}

// CalculateForStream consumes r fully and returns the SHA3-512 digest of
// everything read.
func CalculateForStream(r io.Reader) (Checksum, error) {
	h := sha3.New512()
	if _, err := io.Copy(h, r); err != nil {
		return Checksum{}, fmt.Errorf("checksum: read stream: %w", err)
	}
	var out Checksum
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Compare reports whether a and b are the same digest.
func Compare(a, b Checksum) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// Equals is a method form of Compare, mirroring the spec's `equals` accessor.
func (c Checksum) Equals(other Checksum) bool {
	return Compare(c, other)
}

// IsZero reports whether c is the all-zero digest (used as a sentinel for
// "unsigned" / "not yet computed").
func (c Checksum) IsZero() bool {
	var zero Checksum
	return c == zero
}

// Bytes returns the raw 64-byte digest.
func (c Checksum) Bytes() []byte {
	return c[:]
}

// ToHex renders c as 128 lowercase hex characters.
func ToHex(c Checksum) string {
	return hex.EncodeToString(c[:])
}

// String implements fmt.Stringer via ToHex.
func (c Checksum) String() string {
	return ToHex(c)
}

// FromHex parses exactly 128 lowercase-or-uppercase hex characters into a
// Checksum. Any other length or malformed hex returns *FormatError.
func FromHex(s string) (Checksum, error) {
	if len(s) != Length*2 {
		return Checksum{}, &FormatError{Input: s}
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Checksum{}, &FormatError{Input: s}
	}
	var out Checksum
	copy(out[:], raw)
	return out, nil
}

// FromBytes wraps a raw 64-byte slice as a Checksum. It panics if b is not
// exactly Length bytes, matching the invariant that checksums are always
// fixed-size in this codebase; callers at trust boundaries should check
// len(b) before calling.
func FromBytes(b []byte) Checksum {
	if len(b) != Length {
		panic(fmt.Sprintf("checksum: FromBytes: want %d bytes, got %d", Length, len(b)))
	}
	var out Checksum
	copy(out[:], b)
	return out
}
