package tuple

import (
	"brightchain.dev/core/block"
	"brightchain.dev/core/checksum"
)

// Size is the tuple cardinality (spec §3.1 TUPLE_SIZE).
const Size = 3

// RandomBlocksPerTuple is the default count of fresh random blocks drawn
// per tuple by the streaming pipeline (spec §3.1 TUPLE.RANDOM_BLOCKS_PER_TUPLE).
const RandomBlocksPerTuple = 2

// MinRandomBlocks and MaxRandomBlocks bound GetRandomBlockCount's scaling.
const (
	MinRandomBlocks = 1
	MaxRandomBlocks = Size - 1
)

// Tuple is InMemoryBlockTuple from spec §3.1: an ordered sequence of
// exactly Size blocks of identical BlockSize, prime first.
type Tuple struct {
	blocks []*block.Block
}

// New validates and wraps blocks as a Tuple (I3: exactly Size members, all
// sharing one BlockSize).
func New(blocks []*block.Block) (*Tuple, error) {
	if len(blocks) != Size {
		return nil, newErr(KindInvalidTupleSize, "tuple must contain exactly 3 blocks")
	}
	size := blocks[0].Size()
	for _, b := range blocks[1:] {
		if b.Size() != size {
			return nil, newErr(KindBlockSizeMismatch, "all tuple members must share one blockSize")
		}
	}
	return &Tuple{blocks: append([]*block.Block(nil), blocks...)}, nil
}

// Blocks returns the tuple's members in order, prime first.
func (t *Tuple) Blocks() []*block.Block { return t.blocks }

// Prime returns the tuple's first member, the prime-whitened block.
func (t *Tuple) Prime() *block.Block { return t.blocks[0] }

// BlockIDs returns the ordered checksums of the tuple's members.
func (t *Tuple) BlockIDs() []checksum.Checksum {
	ids := make([]checksum.Checksum, len(t.blocks))
	for i, b := range t.blocks {
		ids[i] = b.IDChecksum()
	}
	return ids
}

// BlockIDsBuffer concatenates the raw checksum bytes of the tuple's
// members in order (spec §3.1 InMemoryBlockTuple.blockIdsBuffer).
func (t *Tuple) BlockIDsBuffer() []byte {
	out := make([]byte, 0, len(t.blocks)*checksum.Length)
	for _, b := range t.blocks {
		out = append(out, b.IDChecksum().Bytes()...)
	}
	return out
}

// GetRandomBlockCount scales linearly in dataLength (roughly 1 block per
// KiB), clamped to [MinRandomBlocks, MaxRandomBlocks] (spec §4.4).
func GetRandomBlockCount(dataLength int) int {
	n := dataLength / 1024
	if n < MinRandomBlocks {
		n = MinRandomBlocks
	}
	if n > MaxRandomBlocks {
		n = MaxRandomBlocks
	}
	return n
}
