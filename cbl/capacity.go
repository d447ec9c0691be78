package cbl

import "brightchain.dev/core/block"

// EncryptionOverhead models the per-block byte cost an encryption scheme
// adds on top of a CBL's own header/address-list bytes (spec §4.5.3
// "given block size, encryption type, ..."). BrightChain's own ECIES
// construction (member.DefaultEcies) prepends a 32-byte X25519 ephemeral
// public key and a 24-byte XChaCha20-Poly1305 nonce ahead of the sealed
// body, and sealing appends a 16-byte Poly1305 tag, which the encrypted
// block stores as its own auth-tag field.
type EncryptionOverhead uint32

const (
	OverheadNone  EncryptionOverhead = 0
	OverheadECIES EncryptionOverhead = 32 + 24 + 16
	// OverheadHandle is zero: a Handle block references an external block
	// rather than storing one, so it carries none of a CBL's own encryption
	// overhead (spec §9 Open Questions, resolved in DESIGN.md).
	OverheadHandle EncryptionOverhead = 0
)

const baseHeaderFixedSize = 16 + 8 + 4 + 4 + 1 + 1 // up to and including isExtendedHeader

func extendedHeaderSize(fileName, mimeType string) int {
	if fileName == "" && mimeType == "" {
		return 0
	}
	return 2 + len(fileName) + 1 + len(mimeType)
}

// Capacity returns the largest addressCount, rounded down to a multiple of
// tuple.Size, such that:
//
//	baseHeaderSize + extendedHeaderSize + 64*addressCount <= blockSize - overhead
//
// Returns 0 when even tuple.Size addresses would not fit (spec §4.5.3).
func Capacity(blockSize block.Size, overhead EncryptionOverhead, fileName, mimeType string) int {
	const tupleSize = 3
	const addrSize = 64

	fixed := baseHeaderFixedSize + extendedHeaderSize(fileName, mimeType) + signatureSize
	budget := int64(blockSize) - int64(overhead) - int64(fixed)
	if budget < addrSize*tupleSize {
		return 0
	}
	count := budget / addrSize
	count -= count % tupleSize
	if count < tupleSize {
		return 0
	}
	return int(count)
}
