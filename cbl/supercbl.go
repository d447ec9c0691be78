package cbl

import (
	"context"
	"time"

	"github.com/google/uuid"

	"brightchain.dev/core/checksum"
	"brightchain.dev/core/member"
)

const (
	SuperCBLMagic   = 0xBC
	SuperCBLType    = 0x03
	SuperCBLVersion = 0x01
)

// SuperHeader is the parsed form of a Super-CBL header, without its
// trailing sub-CBL checksum list (spec §4.5.4).
type SuperHeader struct {
	CreatorID            uuid.UUID
	DateCreated          time.Time
	SubCblCount          uint32
	TotalBlockCount      uint32
	Depth                uint8
	OriginalDataLength   uint32
	OriginalDataChecksum checksum.Checksum
	Signature            [signatureSize]byte

	unsignedBytes []byte
}

// IsSuperCBL reports whether data begins with the Super-CBL magic prefix
// and type byte (spec §4.5.4: "detected by the magic-prefix + type byte
// pair").
func IsSuperCBL(data []byte) bool {
	return len(data) >= 3 && data[0] == SuperCBLMagic && data[1] == SuperCBLType
}

// BuildSuperOpts configures BuildSuper.
type BuildSuperOpts struct {
	Creator              member.Member
	Ecies                member.EciesService
	IDs                  member.IdProvider
	DateCreated          time.Time
	SubCblChecksums      []checksum.Checksum
	TotalBlockCount      uint32
	Depth                uint8
	OriginalDataLength   uint32
	OriginalDataChecksum checksum.Checksum
	BlockSize            uint32
}

// BuildSuper serializes and signs a Super-CBL header. Like Build, the
// caller appends the sub-CBL checksum list bytes itself.
func BuildSuper(o BuildSuperOpts) ([]byte, error) {
	ids := o.IDs
	if ids == nil {
		ids = member.UUIDProvider{}
	}

	w := &beWriter{}
	w.writeU8(SuperCBLMagic)
	w.writeU8(SuperCBLType)
	w.writeU8(SuperCBLVersion)
	creatorBytes := ids.ToBytes(o.Creator.ID())
	w.writeBytes(creatorBytes[:])
	w.writeU64Split(uint64(o.DateCreated.UnixMilli()))
	w.writeU32(uint32(len(o.SubCblChecksums)))
	w.writeU32(o.TotalBlockCount)
	w.writeU8(o.Depth)
	w.writeU32(o.OriginalDataLength)
	w.writeBytes(o.OriginalDataChecksum.Bytes())

	unsigned := w.bytes()
	digest := signingPreimage(unsigned, o.BlockSize, o.SubCblChecksums)

	var sig [signatureSize]byte
	if priv, ok := o.Creator.PrivateKey(); ok {
		raw, err := o.Ecies.SignMessage(priv, digest)
		if err != nil {
			return nil, newSuperErr(KindInvalidFormat, err.Error())
		}
		copy(sig[:], raw)
	}

	out := make([]byte, 0, len(unsigned)+signatureSize)
	out = append(out, unsigned...)
	out = append(out, sig[:]...)
	return out, nil
}

// ParseSuper decodes a Super-CBL header (without its trailing address
// list).
func ParseSuper(data []byte) (*SuperHeader, error) {
	if !IsSuperCBL(data) {
		return nil, newSuperErr(KindInvalidCBLType, "missing Super-CBL magic/type prefix")
	}
	r := newBeReader(data)

	magic, _ := r.readU8()
	typ, _ := r.readU8()
	version, err := r.readU8()
	if err != nil {
		return nil, newSuperErr(KindInvalidFormat, "truncated prefix")
	}
	if magic != SuperCBLMagic || typ != SuperCBLType || version != SuperCBLVersion {
		return nil, newSuperErr(KindInvalidCBLType, "unexpected magic/type/version")
	}

	idBytes, err := r.readExact(16)
	if err != nil {
		return nil, newSuperErr(KindInvalidFormat, err.Error())
	}
	creatorID, err := uuid.FromBytes(idBytes)
	if err != nil {
		return nil, newSuperErr(KindInvalidFormat, "malformed creator id")
	}
	millis, err := r.readU64Split()
	if err != nil {
		return nil, newSuperErr(KindInvalidFormat, err.Error())
	}
	subCount, err := r.readU32()
	if err != nil {
		return nil, newSuperErr(KindInvalidFormat, err.Error())
	}
	totalBlocks, err := r.readU32()
	if err != nil {
		return nil, newSuperErr(KindInvalidFormat, err.Error())
	}
	depth, err := r.readU8()
	if err != nil {
		return nil, newSuperErr(KindInvalidFormat, err.Error())
	}
	originalLen, err := r.readU32()
	if err != nil {
		return nil, newSuperErr(KindInvalidFormat, err.Error())
	}
	origChecksumBytes, err := r.readExact(checksum.Length)
	if err != nil {
		return nil, newSuperErr(KindInvalidFormat, err.Error())
	}

	unsigned := data[:r.pos]

	sigBytes, err := r.readExact(signatureSize)
	if err != nil {
		return nil, newSuperErr(KindInvalidFormat, err.Error())
	}
	var sig [signatureSize]byte
	copy(sig[:], sigBytes)

	return &SuperHeader{
		CreatorID:            creatorID,
		DateCreated:          time.UnixMilli(int64(millis)).UTC(),
		SubCblCount:          subCount,
		TotalBlockCount:      totalBlocks,
		Depth:                depth,
		OriginalDataLength:   originalLen,
		OriginalDataChecksum: checksum.FromBytes(origChecksumBytes),
		Signature:            sig,
		unsignedBytes:        append([]byte(nil), unsigned...),
	}, nil
}

// HeaderLength returns the byte length of the Super-CBL header including
// its signature, i.e. the offset at which the sub-CBL checksum list begins.
func (h *SuperHeader) HeaderLength() int {
	return len(h.unsignedBytes) + signatureSize
}

// VerifySuper is Verify's Super-CBL counterpart.
func VerifySuper(h *SuperHeader, subCblChecksums []checksum.Checksum, blockSize uint32, creatorPublicKey []byte, ecies member.EciesService) (bool, error) {
	if uint32(len(subCblChecksums)) != h.SubCblCount {
		return false, newSuperErr(KindBlockCountMismatch, "sub-CBL count does not match header")
	}
	digest := signingPreimage(h.unsignedBytes, blockSize, subCblChecksums)
	return ecies.VerifyMessage(creatorPublicKey, digest, h.Signature[:])
}

// BlockResolver returns the plaintext bytes of the (Super-)CBL block
// addressed by id. CBL blocks are ordinary tuple members like any other
// block (spec §4.6): they are stored prime-whitened, so resolving one to
// plaintext requires the same tuple-XOR recovery as a data chunk. That
// recovery needs whiteners/randoms and the owning Member, neither of which
// this package knows about, so WalkSuperCBL takes the resolved-bytes
// producer as a callback instead of depending on store.BlockStore or the
// tuple package directly.
type BlockResolver func(ctx context.Context, id checksum.Checksum) ([]byte, error)

// WalkSuperCBL resolves rootChecksum to its full ordered list of
// prime-whitened-block addresses, recursing through any Super-CBL layers
// up to maxDepth (spec §2 "parse as CBL (possibly Super-CBL; recurse)",
// P11). resolve supplies the plaintext bytes for each (Super-)CBL block
// encountered.
func WalkSuperCBL(ctx context.Context, resolve BlockResolver, rootChecksum checksum.Checksum, maxDepth int) ([]checksum.Checksum, error) {
	return walkSuperCBL(ctx, resolve, rootChecksum, maxDepth, 0)
}

func walkSuperCBL(ctx context.Context, resolve BlockResolver, id checksum.Checksum, maxDepth, depth int) ([]checksum.Checksum, error) {
	if depth > maxDepth {
		return nil, newSuperErr(KindMaxDepthExceeded, "super-CBL recursion exceeded maxDepth")
	}

	data, err := resolve(ctx, id)
	if err != nil {
		return nil, newErr(KindFailedToLoadBlock, err.Error())
	}

	if IsSuperCBL(data) {
		super, err := ParseSuper(data)
		if err != nil {
			return nil, err
		}
		subs, err := ReadAddresses(data, super.HeaderLength(), super.SubCblCount)
		if err != nil {
			return nil, newSuperErr(KindMissingSubCBL, err.Error())
		}
		addrs := make([]checksum.Checksum, 0, super.TotalBlockCount)
		for _, sub := range subs {
			sub := sub
			children, err := walkSuperCBL(ctx, resolve, sub, maxDepth, depth+1)
			if err != nil {
				return nil, err
			}
			addrs = append(addrs, children...)
		}
		if uint32(len(addrs)) != super.TotalBlockCount {
			return nil, newSuperErr(KindBlockCountMismatch, "resolved address count does not match totalBlockCount")
		}
		return addrs, nil
	}

	header, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return ReadAddresses(data, header.HeaderLength(), header.AddressCount)
}
