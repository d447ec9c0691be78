package cbl

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"brightchain.dev/core/checksum"
	"brightchain.dev/core/member"
)

const (
	// DefaultTupleSize is the header's tupleSize field default (spec §4.5 table row 5).
	DefaultTupleSize = 3

	// MaxFileNameLength and MaxMimeTypeLength bound the extended header's
	// variable-length fields (spec §4.5.1).
	MaxFileNameLength = 255
	MaxMimeTypeLength = 127

	signatureSize = 64
)

var (
	fileNamePattern = regexp.MustCompile(`^[A-Za-z0-9._ -]+$`)
	mimeTypePattern = regexp.MustCompile(`^[a-z0-9.+-]+/[a-z0-9.+-]+$`)
)

// ExtendedHeader carries the optional filename/MIME block (spec §4.5.1).
type ExtendedHeader struct {
	FileName string
	MimeType string
}

func validateFileName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return newErr(KindInvalidFileName, "filename is empty")
	}
	for _, r := range name {
		if r < 32 {
			return newErr(KindInvalidFileName, "filename contains a control character")
		}
	}
	if strings.Contains(name, "..") || strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return newErr(KindFileNamePathTraversal, "filename contains a path-traversal pattern")
	}
	if len(name) > MaxFileNameLength {
		return newErr(KindInvalidFileName, "filename exceeds MAX_FILE_NAME_LENGTH")
	}
	if !fileNamePattern.MatchString(name) {
		return newErr(KindInvalidFileName, "filename does not match FILE_NAME_PATTERN")
	}
	return nil
}

func validateMimeType(mime string) error {
	if strings.TrimSpace(mime) != mime || mime == "" {
		return newErr(KindInvalidMimeType, "mime type is empty or has surrounding whitespace")
	}
	if mime != strings.ToLower(mime) {
		return newErr(KindInvalidMimeType, "mime type must be lowercase")
	}
	if len(mime) > MaxMimeTypeLength {
		return newErr(KindInvalidMimeType, "mime type exceeds MAX_MIME_TYPE_LENGTH")
	}
	if !mimeTypePattern.MatchString(mime) {
		return newErr(KindInvalidMimeType, "mime type does not match type/subtype pattern")
	}
	return nil
}

// Header is the parsed form of a base (or extended) CBL header, without the
// trailing address list (spec §4.5 table).
type Header struct {
	CreatorID          uuid.UUID
	DateCreated        time.Time
	AddressCount       uint32
	OriginalDataLength uint32
	TupleSize          uint8
	Extended           *ExtendedHeader
	Signature          [signatureSize]byte

	// unsignedBytes is baseHeader||extendedHeader, kept for preimage
	// recomputation during Verify.
	unsignedBytes []byte
}

// BuildOpts configures Build.
type BuildOpts struct {
	Creator            member.Member
	Ecies              member.EciesService
	IDs                member.IdProvider
	DateCreated        time.Time
	Addresses          []checksum.Checksum
	OriginalDataLength uint32
	TupleSize          uint8
	BlockSize          uint32
	FileName           string
	MimeType           string
}

func encodeUnsigned(o BuildOpts) ([]byte, *ExtendedHeader, error) {
	ids := o.IDs
	if ids == nil {
		ids = member.UUIDProvider{}
	}
	tupleSize := o.TupleSize
	if tupleSize == 0 {
		tupleSize = DefaultTupleSize
	}

	var ext *ExtendedHeader
	if o.FileName != "" || o.MimeType != "" {
		if err := validateFileName(o.FileName); err != nil {
			return nil, nil, err
		}
		if err := validateMimeType(o.MimeType); err != nil {
			return nil, nil, err
		}
		ext = &ExtendedHeader{FileName: o.FileName, MimeType: o.MimeType}
	}

	w := &beWriter{}
	creatorBytes := ids.ToBytes(o.Creator.ID())
	w.writeBytes(creatorBytes[:])
	w.writeU64Split(uint64(o.DateCreated.UnixMilli()))
	w.writeU32(uint32(len(o.Addresses)))
	w.writeU32(o.OriginalDataLength)
	w.writeU8(tupleSize)

	if ext != nil {
		w.writeU8(1)
		w.writeU16(uint16(len(ext.FileName)))
		w.writeBytes([]byte(ext.FileName))
		w.writeU8(uint8(len(ext.MimeType)))
		w.writeBytes([]byte(ext.MimeType))
	} else {
		w.writeU8(0)
	}

	return w.bytes(), ext, nil
}

func addressListBytes(addresses []checksum.Checksum) []byte {
	out := make([]byte, 0, len(addresses)*checksum.Length)
	for _, a := range addresses {
		out = append(out, a.Bytes()...)
	}
	return out
}

// signingPreimage computes the spec §4.5.2 preimage:
// SHA3_512(headerWithoutSignature || uint32BE(blockSize) || addressListBytes).
// Grounded on consensus/sighash.go's append-flat-preimage-then-hash shape.
func signingPreimage(unsigned []byte, blockSize uint32, addresses []checksum.Checksum) [64]byte {
	pre := make([]byte, 0, len(unsigned)+4+len(addresses)*checksum.Length)
	pre = append(pre, unsigned...)
	var sizeBuf [4]byte
	w := &beWriter{buf: sizeBuf[:0]}
	w.writeU32(blockSize)
	pre = append(pre, w.bytes()...)
	pre = append(pre, addressListBytes(addresses)...)
	return checksum.Calculate(pre)
}

// Build serializes a CBL header and signs it per the spec §4.5.5 state
// machine. The returned bytes are baseHeader||extendedHeader||signature;
// the caller appends the address-list bytes itself (step 7).
func Build(o BuildOpts) ([]byte, error) {
	unsigned, ext, err := encodeUnsigned(o)
	if err != nil {
		return nil, err
	}

	digest := signingPreimage(unsigned, o.BlockSize, o.Addresses)

	var sig [signatureSize]byte
	if priv, ok := o.Creator.PrivateKey(); ok {
		raw, err := o.Ecies.SignMessage(priv, digest)
		if err != nil {
			return nil, newErr(KindInvalidSignature, err.Error())
		}
		if len(raw) != signatureSize {
			return nil, newErr(KindInvalidSignature, "signature has unexpected length")
		}
		copy(sig[:], raw)
	}
	// Unsigned CBLs (creator has no private key) keep the zero signature
	// (spec §4.5.5 step 5).
	_ = ext

	out := make([]byte, 0, len(unsigned)+signatureSize)
	out = append(out, unsigned...)
	out = append(out, sig[:]...)
	return out, nil
}

// Parse decodes a serialized header into a Header, stopping after the
// signature. Bytes after the signature are ignored; the trailing address
// list is read separately with ReadAddresses at h.HeaderLength().
func Parse(data []byte) (*Header, error) {
	r := newBeReader(data)

	idBytes, err := r.readExact(16)
	if err != nil {
		return nil, err
	}
	creatorID, err := uuid.FromBytes(idBytes)
	if err != nil {
		return nil, newErr(KindInvalidStructure, "malformed creator id")
	}

	millis, err := r.readU64Split()
	if err != nil {
		return nil, err
	}

	addressCount, err := r.readU32()
	if err != nil {
		return nil, err
	}
	originalDataLength, err := r.readU32()
	if err != nil {
		return nil, err
	}
	tupleSize, err := r.readU8()
	if err != nil {
		return nil, err
	}
	isExtended, err := r.readU8()
	if err != nil {
		return nil, err
	}

	var ext *ExtendedHeader
	if isExtended == 1 {
		fnLen, err := r.readU16()
		if err != nil {
			return nil, err
		}
		fnBytes, err := r.readExact(int(fnLen))
		if err != nil {
			return nil, err
		}
		mimeLen, err := r.readU8()
		if err != nil {
			return nil, err
		}
		mimeBytes, err := r.readExact(int(mimeLen))
		if err != nil {
			return nil, err
		}
		ext = &ExtendedHeader{FileName: string(fnBytes), MimeType: string(mimeBytes)}
	}

	unsigned := data[:r.pos]

	sigBytes, err := r.readExact(signatureSize)
	if err != nil {
		return nil, err
	}
	var sig [signatureSize]byte
	copy(sig[:], sigBytes)

	h := &Header{
		CreatorID:          creatorID,
		DateCreated:        time.UnixMilli(int64(millis)).UTC(),
		AddressCount:       addressCount,
		OriginalDataLength: originalDataLength,
		TupleSize:          tupleSize,
		Extended:           ext,
		Signature:          sig,
		unsignedBytes:      append([]byte(nil), unsigned...),
	}
	return h, nil
}

// HeaderLength returns the byte length of baseHeader||extendedHeader||
// signature, i.e. the offset at which the trailing address list begins.
func (h *Header) HeaderLength() int {
	return len(h.unsignedBytes) + signatureSize
}

// ReadAddresses decodes exactly h.AddressCount 64-byte checksums starting
// at data[offset:] (spec I6). offset is the byte index immediately
// following the header's signature, i.e. len(headerBytes).
func ReadAddresses(data []byte, offset int, count uint32) ([]checksum.Checksum, error) {
	out := make([]checksum.Checksum, 0, count)
	for i := uint32(0); i < count; i++ {
		start := offset + int(i)*checksum.Length
		end := start + checksum.Length
		if end > len(data) {
			return nil, newErr(KindInvalidStructure, "address list truncated")
		}
		out = append(out, checksum.FromBytes(data[start:end]))
	}
	return out, nil
}

// Verify recomputes the signing preimage from a parsed header, the
// addresses it claims, and the containing block's size, then checks the
// signature against creatorPublicKey (spec §4.5.2, P6/P7).
func Verify(h *Header, addresses []checksum.Checksum, blockSize uint32, creatorPublicKey []byte, ecies member.EciesService) (bool, error) {
	if uint32(len(addresses)) != h.AddressCount {
		return false, newErr(KindInvalidStructure, "address count does not match header")
	}
	digest := signingPreimage(h.unsignedBytes, blockSize, addresses)
	return ecies.VerifyMessage(creatorPublicKey, digest, h.Signature[:])
}
