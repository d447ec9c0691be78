// Package block implements the fixed-size content-addressed block layer
// (spec §3.1, §4.3): a tagged union of block variants (raw, random,
// whitened, ephemeral, encrypted) sharing one header shape, plus
// BlockHandle, the lazy on-disk/cached reference type.
package block

import (
	"context"
	"time"

	"brightchain.dev/core/checksum"
	"brightchain.dev/core/member"
)

// Block is the tagged union described in spec §9: one shared header
// (size, type, data type, checksum, creation date, access flags) plus
// variant-specific fields that are zero-valued when not applicable.
type Block struct {
	size        Size
	blockType   Type
	dataType    DataType
	data        []byte // always padded to exactly len==size
	idChecksum  checksum.Checksum
	dateCreated time.Time

	lengthBeforeEncryption    int
	hasLengthBeforeEncryption bool

	canRead    bool
	canPersist bool

	// EphemeralBlock-only.
	creator member.Member

	// EncryptedBlock-only.
	eciesEphemeralPublicKey []byte
	eciesIV                 []byte
	eciesAuthTag            []byte
}

// Size returns the block's fixed size class.
func (b *Block) Size() Size { return b.size }

// Type returns the block's dispatch tag.
func (b *Block) Type() Type { return b.blockType }

// DataType returns the block's payload interpretation tag.
func (b *Block) DataType() DataType { return b.dataType }

// Data returns the full blockSize-length padded buffer.
func (b *Block) Data() []byte { return b.data }

// IDChecksum returns the block's content-address.
func (b *Block) IDChecksum() checksum.Checksum { return b.idChecksum }

// DateCreated returns the block's recorded creation timestamp.
func (b *Block) DateCreated() time.Time { return b.dateCreated }

// LengthBeforeEncryption returns the number of semantically meaningful
// leading bytes and whether one was recorded at all (spec I2: absent means
// "entire padded buffer is the payload").
func (b *Block) LengthBeforeEncryption() (int, bool) {
	return b.lengthBeforeEncryption, b.hasLengthBeforeEncryption
}

// CanRead reports whether read operations are permitted (spec I9).
func (b *Block) CanRead() bool { return b.canRead }

// CanPersist reports whether write operations are permitted (spec I9).
func (b *Block) CanPersist() bool { return b.canPersist }

// Creator returns the EphemeralBlock's owning member, if any.
func (b *Block) Creator() (member.Member, bool) {
	if b.creator == nil {
		return nil, false
	}
	return b.creator, true
}

// EciesFields returns an EncryptedBlock's ECIES header components.
func (b *Block) EciesFields() (ephemeralPublicKey, iv, authTag []byte) {
	return b.eciesEphemeralPublicKey, b.eciesIV, b.eciesAuthTag
}

// commonOpts carries the fields every variant constructor shares.
type commonOpts struct {
	size                   Size
	blockType              Type
	dataType               DataType
	data                   []byte
	idChecksum             *checksum.Checksum // nil => compute
	dateCreated            time.Time          // zero => now
	lengthBeforeEncryption *int
	canRead                bool
	canPersist             bool
}

// padded returns opts.data zero-padded (or truncated-checked) up to
// opts.size, failing with KindExceedsBlockSize per spec I1/P3 if data is
// already longer than size.
func (o commonOpts) padded() ([]byte, error) {
	if len(o.data) > int(o.size) {
		return nil, &ValidationError{Kind: KindExceedsBlockSize, Msg: "data longer than block size"}
	}
	out := make([]byte, o.size)
	copy(out, o.data)
	return out, nil
}

func newBlock(o commonOpts) (*Block, error) {
	if err := Validate(o.size); err != nil {
		return nil, err
	}

	padded, err := o.padded()
	if err != nil {
		return nil, err
	}

	dateCreated := o.dateCreated
	if dateCreated.IsZero() {
		dateCreated = time.Now().UTC()
	}
	if dateCreated.After(time.Now().Add(time.Second)) {
		return nil, &ValidationError{Kind: KindFutureCreationDate, Msg: "dateCreated is in the future"}
	}

	var id checksum.Checksum
	if o.idChecksum != nil {
		id = *o.idChecksum
	} else {
		id = checksum.Calculate(padded)
	}

	b := &Block{
		size:        o.size,
		blockType:   o.blockType,
		dataType:    o.dataType,
		data:        padded,
		idChecksum:  id,
		dateCreated: dateCreated,
		canRead:     o.canRead,
		canPersist:  o.canPersist,
	}
	if o.lengthBeforeEncryption != nil {
		if *o.lengthBeforeEncryption < 0 || *o.lengthBeforeEncryption > int(o.size) {
			return nil, &ValidationError{Kind: KindExceedsBlockSize, Msg: "lengthBeforeEncryption out of range"}
		}
		b.lengthBeforeEncryption = *o.lengthBeforeEncryption
		b.hasLengthBeforeEncryption = true
	}
	return b, nil
}

// NewRawDataBlock builds an opaque, headerless data block (spec §3.1
// RawDataBlock) with canRead/canPersist both true.
func NewRawDataBlock(size Size, data []byte, dateCreated time.Time) (*Block, error) {
	return NewRawDataBlockWithAccess(size, data, dateCreated, true, true)
}

// NewRawDataBlockWithAccess is NewRawDataBlock with explicit access flags,
// used to exercise BlockHandle/Block permission checks (I9/P10).
func NewRawDataBlockWithAccess(size Size, data []byte, dateCreated time.Time, canRead, canPersist bool) (*Block, error) {
	return newBlock(commonOpts{
		size:        size,
		blockType:   TypeRawData,
		dataType:    DataTypeRawData,
		data:        data,
		dateCreated: dateCreated,
		canRead:     canRead,
		canPersist:  canPersist,
	})
}

// NewRandomBlock fills an entire size-length buffer with cryptographically
// strong random bytes (spec §4.3 "RandomBlock.new").
func NewRandomBlock(size Size, randSource func([]byte) error) (*Block, error) {
	buf := make([]byte, size)
	if err := randSource(buf); err != nil {
		return nil, err
	}
	return newBlock(commonOpts{
		size:       size,
		blockType:  TypeRandom,
		dataType:   DataTypeRawData,
		data:       buf,
		canRead:    true,
		canPersist: true,
	})
}

// WhitenedOpts configures NewWhitenedBlock.
type WhitenedOpts struct {
	Size                   Size
	Data                   []byte
	IDChecksum             *checksum.Checksum
	DateCreated            time.Time
	LengthBeforeEncryption *int
	CanRead                bool
	CanPersist             bool
}

// NewWhitenedBlock builds a WhitenedBlock (spec §4.3 "WhitenedBlock.from"):
// the product of XORing a source with its whiteners and randoms.
func NewWhitenedBlock(o WhitenedOpts) (*Block, error) {
	return newBlock(commonOpts{
		size:                   o.Size,
		blockType:              TypeOwnerFreeWhitenedBlock,
		dataType:               DataTypeRawData,
		data:                   o.Data,
		idChecksum:             o.IDChecksum,
		dateCreated:            o.DateCreated,
		lengthBeforeEncryption: o.LengthBeforeEncryption,
		canRead:                o.CanRead,
		canPersist:             o.CanPersist,
	})
}

// EphemeralOpts configures NewEphemeralBlock.
type EphemeralOpts struct {
	BlockType              Type
	DataType               DataType
	Size                   Size
	Data                   []byte
	IDChecksum             *checksum.Checksum
	Creator                member.Member
	DateCreated            time.Time
	LengthBeforeEncryption *int
}

// NewEphemeralBlock builds an in-memory-only, owner-attributed block (spec
// §3.1 EphemeralBlock, §4.3 "EphemeralBlock.from"). Ephemeral blocks are
// never written to long-term storage as-is.
func NewEphemeralBlock(o EphemeralOpts) (*Block, error) {
	if o.Creator == nil {
		return nil, &ValidationError{Kind: KindExceedsBlockSize, Msg: "ephemeral block requires a creator"}
	}
	b, err := newBlock(commonOpts{
		size:                   o.Size,
		blockType:              o.BlockType,
		dataType:               o.DataType,
		data:                   o.Data,
		idChecksum:             o.IDChecksum,
		dateCreated:            o.DateCreated,
		lengthBeforeEncryption: o.LengthBeforeEncryption,
		canRead:                true,
		canPersist:             false,
	})
	if err != nil {
		return nil, err
	}
	b.creator = o.Creator
	return b, nil
}

// EncryptedOpts configures NewEncryptedBlock.
type EncryptedOpts struct {
	BlockType          Type
	DataType           DataType
	Size               Size
	EphemeralPublicKey []byte
	IV                 []byte
	AuthTag            []byte
	Ciphertext         []byte
	DateCreated        time.Time
}

// NewEncryptedBlock builds an EncryptedBlock whose body is the
// concatenation of the ECIES ephemeral public key, IV, auth tag, and
// ciphertext (spec §3.1 EncryptedBlock). The ECIES operations themselves
// are performed by the external EciesService collaborator (spec §6.3);
// this constructor only lays the result out on the wire. lengthBeforeEncryption
// is recorded as the unpadded envelope length, since the encrypted variant
// skips the padding transform and a reader otherwise has no way to tell
// the envelope apart from this block's zero padding (spec §4.6 "Encrypted
// variant does not apply padding transform").
func NewEncryptedBlock(o EncryptedOpts) (*Block, error) {
	body := make([]byte, 0, len(o.EphemeralPublicKey)+len(o.IV)+len(o.AuthTag)+len(o.Ciphertext))
	body = append(body, o.EphemeralPublicKey...)
	body = append(body, o.IV...)
	body = append(body, o.AuthTag...)
	body = append(body, o.Ciphertext...)
	envelopeLength := len(body)

	b, err := newBlock(commonOpts{
		size:                   o.Size,
		blockType:              o.BlockType,
		dataType:               o.DataType,
		data:                   body,
		dateCreated:            o.DateCreated,
		lengthBeforeEncryption: &envelopeLength,
		canRead:                true,
		canPersist:             true,
	})
	if err != nil {
		return nil, err
	}
	b.eciesEphemeralPublicKey = o.EphemeralPublicKey
	b.eciesIV = o.IV
	b.eciesAuthTag = o.AuthTag
	return b, nil
}

// NewTypedBlock builds a block carrying an arbitrary BlockType/DataType tag
// over an already-prepared byte buffer, padded to size. It exists for
// callers above this package (the cbl and streaming packages) that need to
// wrap CBL and Super-CBL bytes as blocks of the correct dispatch tag
// (TypeConstituentBlockList, TypeEncryptedCBL, ...) without this package
// needing to know anything about the CBL wire format itself. data's own
// length is recorded as lengthBeforeEncryption, since a CBL/Super-CBL body
// is usually shorter than size and, once this block is itself
// prime-whitened as a tuple source (spec §4.6), the whitened product's
// meaningful length can only be recovered from this field.
func NewTypedBlock(size Size, blockType Type, dataType DataType, data []byte, canRead, canPersist bool) (*Block, error) {
	length := len(data)
	return newBlock(commonOpts{
		size:                   size,
		blockType:              blockType,
		dataType:               dataType,
		data:                   data,
		lengthBeforeEncryption: &length,
		canRead:                canRead,
		canPersist:             canPersist,
	})
}

// ValidateSync recomputes the checksum over the padded data buffer and
// compares it to IDChecksum, failing with *ChecksumMismatchError on
// divergence (spec §4.3, §7: integrity errors are raised only by explicit
// validate calls).
func (b *Block) ValidateSync() error {
	actual := checksum.Calculate(b.data)
	if !actual.Equals(b.idChecksum) {
		return &ChecksumMismatchError{Expected: b.idChecksum, Actual: actual}
	}
	return nil
}

// ValidateAsync is the context-aware form of ValidateSync, for callers on
// the streaming/async boundary (spec §5).
func (b *Block) ValidateAsync(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return b.ValidateSync()
}
