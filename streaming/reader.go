package streaming

import (
	"context"

	"brightchain.dev/core/block"
	"brightchain.dev/core/cbl"
	"brightchain.dev/core/checksum"
	"brightchain.dev/core/internal/randsrc"
	"brightchain.dev/core/member"
	"brightchain.dev/core/tuple"
)

// ReaderOptions configures Reader.Run, the read-path mirror of Pipeline.Run
// (spec §2 "Data flow for a read"). Resolving a checksum to bytes is
// entirely the TupleLoader's job (it owns whatever BlockStore backs it);
// Reader only drives the XOR recovery and CBL/Super-CBL walk on top of it.
// Encrypted root CBLs are out of scope: an encrypted CBL's envelope length
// is block-level metadata that does not survive a BlockStore round-trip, so
// a plaintext or unencrypted Super-CBL root is assumed.
type ReaderOptions struct {
	Creator      member.Member
	RootChecksum checksum.Checksum
	MaxDepth     int
}

// Reader replays the write path's tuple assembly in reverse: resolve the
// root (possibly Super-) CBL to its ordered prime-whitened addresses, then
// for each address load its tuple members, XOR-recover the owned block,
// and strip padding at lengthBeforeEncryption.
type Reader struct{}

// NewReader constructs a Reader. Like Pipeline, it carries no state
// between calls.
func NewReader() *Reader { return &Reader{} }

// TupleLoader loads the Size members of the tuple whose prime address is
// id: the prime itself plus its whiteners and randoms, in the order a
// matching Pipeline run persisted them. lengthBeforeEncryption is
// in-memory block metadata, not part of the wire format BlockStore
// persists (spec §4.2) — the loader is responsible for setting it back
// onto the returned prime from whatever side channel tracks chunk
// boundaries (e.g. the owning CBL's originalDataLength and the address's
// position in its list).
type TupleLoader func(ctx context.Context, primeID checksum.Checksum) (prime *block.Block, whiteners, randoms []*block.Block, err error)

// recoverBlock loads the tuple whose prime address is id and XOR-recovers
// its owned plaintext bytes, trimmed to lengthBeforeEncryption. A (Super-)
// CBL block is whitened exactly like any other chunk (spec §4.6), so both
// the root and every sub-CBL along a Super-CBL walk must go through this
// same recovery before they can be parsed.
func (r *Reader) recoverBlock(ctx context.Context, o ReaderOptions, load TupleLoader, id checksum.Checksum) ([]byte, error) {
	prime, whiteners, randoms, err := load(ctx, id)
	if err != nil {
		return nil, newErr(KindBlockLoadFailed, err.Error())
	}
	owned, err := tuple.XORDestPrimeWhitenedToOwned(o.Creator, prime, whiteners, randoms, randsrc.Read)
	if err != nil {
		return nil, newErr(KindTupleAssemblyFailed, err.Error())
	}
	length, ok := owned.LengthBeforeEncryption()
	if !ok {
		length = int(owned.Size())
	}
	return owned.Data()[:length], nil
}

// Run reads the file addressed by o.RootChecksum and returns its
// reconstructed plaintext bytes in order.
func (r *Reader) Run(ctx context.Context, o ReaderOptions, load TupleLoader) ([]byte, error) {
	resolve := func(ctx context.Context, id checksum.Checksum) ([]byte, error) {
		return r.recoverBlock(ctx, o, load, id)
	}

	rootData, err := resolve(ctx, o.RootChecksum)
	if err != nil {
		return nil, err
	}

	var addresses []checksum.Checksum
	var originalDataLength uint32

	if cbl.IsSuperCBL(rootData) {
		addresses, err = cbl.WalkSuperCBL(ctx, resolve, o.RootChecksum, o.MaxDepth)
		if err != nil {
			return nil, newErr(KindBlockLoadFailed, err.Error())
		}
		super, err := cbl.ParseSuper(rootData)
		if err != nil {
			return nil, newErr(KindBlockLoadFailed, err.Error())
		}
		originalDataLength = super.OriginalDataLength
	} else {
		header, err := cbl.Parse(rootData)
		if err != nil {
			return nil, newErr(KindBlockLoadFailed, err.Error())
		}
		addresses, err = cbl.ReadAddresses(rootData, header.HeaderLength(), header.AddressCount)
		if err != nil {
			return nil, newErr(KindBlockLoadFailed, err.Error())
		}
		originalDataLength = header.OriginalDataLength
	}

	out := make([]byte, 0, originalDataLength)
	for _, addr := range addresses {
		data, err := r.recoverBlock(ctx, o, load, addr)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}
