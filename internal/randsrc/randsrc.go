// Package randsrc is the single cryptographically strong byte source
// shared by block/ and tuple/ (spec §4.3 RandomBlock.new, §4.4 XOR
// recovery's anti-analysis padding): every call that needs fresh random
// bytes takes a `func([]byte) error` so it can be swapped out under test,
// and Read is the one production implementation of that shape.
package randsrc

import "crypto/rand"

// Read fills b with cryptographically strong random bytes, matching the
// `randSource func([]byte) error` parameter shape block.NewRandomBlock and
// tuple.XORDestPrimeWhitenedToOwned expect.
func Read(b []byte) error {
	_, err := rand.Read(b)
	return err
}
