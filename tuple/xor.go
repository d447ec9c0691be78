package tuple

import (
	"brightchain.dev/core/block"
	"brightchain.dev/core/member"
)

// xorBytesInto XORs src into dst in place; both must be the same length.
// Grounded on other_examples' noisefs Block.XOR byte loop (the pack's one
// existing OFF-style XOR), generalized here to an arbitrary count of
// whitener/random operands instead of a fixed pair.
func xorBytesInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

func checkSameSize(size block.Size, blocks ...*block.Block) error {
	for _, b := range blocks {
		if b.Size() != size {
			return newErr(KindBlockSizeMismatch, "operand blockSize does not match source")
		}
	}
	return nil
}

// XORSourceToPrimeWhitened computes prime.data = source.data XOR (whiteners)
// XOR (randoms), byte-wise, and returns the resulting WhitenedBlock (spec
// §4.4). Preconditions: len(whiteners)+len(randoms)+1 == Size, and every
// operand shares source's BlockSize.
func XORSourceToPrimeWhitened(source *block.Block, whiteners, randoms []*block.Block) (*block.Block, error) {
	if source == nil {
		return nil, newErr(KindMissingParameters, "source is nil")
	}
	if len(whiteners)+len(randoms)+1 != Size {
		return nil, newErr(KindInvalidBlockCount, "whiteners + randoms + source must equal TUPLE_SIZE")
	}
	if err := checkSameSize(source.Size(), whiteners...); err != nil {
		return nil, err
	}
	if err := checkSameSize(source.Size(), randoms...); err != nil {
		return nil, err
	}

	out := append([]byte(nil), source.Data()...)
	for _, w := range whiteners {
		xorBytesInto(out, w.Data())
	}
	for _, r := range randoms {
		xorBytesInto(out, r.Data())
	}

	opts := block.WhitenedOpts{
		Size:       source.Size(),
		Data:       out,
		CanRead:    true,
		CanPersist: true,
	}
	if length, ok := source.LengthBeforeEncryption(); ok {
		opts.LengthBeforeEncryption = &length
	}
	return block.NewWhitenedBlock(opts)
}

// MakeTupleFromSourceXor computes the prime-whitened block and wraps it
// with its whiteners and randoms as a Tuple, prime first (spec §4.4).
func MakeTupleFromSourceXor(source *block.Block, whiteners, randoms []*block.Block) (*Tuple, error) {
	prime, err := XORSourceToPrimeWhitened(source, whiteners, randoms)
	if err != nil {
		return nil, err
	}
	members := make([]*block.Block, 0, Size)
	members = append(members, prime)
	members = append(members, whiteners...)
	members = append(members, randoms...)
	return New(members)
}

// XORDestPrimeWhitenedToOwned recovers the plaintext EphemeralBlock from a
// prime-whitened block and its whiteners/randoms (spec §4.4, the inverse of
// XORSourceToPrimeWhitened).
//
// The recovery buffer is first filled with cryptographically random bytes
// of blockSize length, then only its first lengthBeforeEncryption bytes are
// overwritten with prime's corresponding prefix; the rest of the buffer
// keeps its random fill. The whole buffer is then XORed with every
// whitener and random. This means bytes beyond lengthBeforeEncryption in
// the recovered block are NOT the original (all-zero) padding but fresh
// noise — intentional, so that padding structure cannot be mined from a
// recovered block (spec §9 Open Questions; preserve this behavior, it is
// not dead code).
func XORDestPrimeWhitenedToOwned(creator member.Member, prime *block.Block, whiteners, randoms []*block.Block, randSource func([]byte) error) (*block.Block, error) {
	if prime == nil {
		return nil, newErr(KindMissingParameters, "prime is nil")
	}
	length, ok := prime.LengthBeforeEncryption()
	if !ok {
		return nil, newErr(KindMissingParameters, "prime.lengthBeforeEncryption is required for recovery")
	}
	if len(whiteners)+len(randoms)+1 != Size {
		return nil, newErr(KindInvalidBlockCount, "whiteners + randoms + prime must equal TUPLE_SIZE")
	}
	if err := checkSameSize(prime.Size(), whiteners...); err != nil {
		return nil, err
	}
	if err := checkSameSize(prime.Size(), randoms...); err != nil {
		return nil, err
	}

	buf := make([]byte, prime.Size())
	if err := randSource(buf); err != nil {
		return nil, newErr(KindRandomBlockGenerationFailed, err.Error())
	}
	copy(buf[:length], prime.Data()[:length])

	for _, w := range whiteners {
		xorBytesInto(buf, w.Data())
	}
	for _, r := range randoms {
		xorBytesInto(buf, r.Data())
	}

	return block.NewEphemeralBlock(block.EphemeralOpts{
		BlockType:              block.TypeEphemeralOwnedDataBlock,
		DataType:               block.DataTypeRawData,
		Size:                   prime.Size(),
		Data:                   buf,
		Creator:                creator,
		LengthBeforeEncryption: &length,
	})
}
