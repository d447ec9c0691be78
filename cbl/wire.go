package cbl

import "encoding/binary"

// beWriter accumulates a header buffer field by field. Grounded on the
// teacher's consensus/wire_write.go append helpers, re-endianed: this
// module's header fields are big-endian per spec §3.1/§9 where the
// teacher's tx wire format is little-endian.
type beWriter struct {
	buf []byte
}

func (w *beWriter) writeBytes(b []byte) { w.buf = append(w.buf, b...) }

func (w *beWriter) writeU8(v uint8) { w.buf = append(w.buf, v) }

func (w *beWriter) writeU16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *beWriter) writeU32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// writeU64Split writes v as the big-endian (high32, low32) pair the base
// header's dateCreated field uses (spec §4.5 table row 1) — equivalent to
// a plain big-endian uint64, spelled out as two halves to match the
// header's own description of the field.
func (w *beWriter) writeU64Split(v uint64) {
	w.writeU32(uint32(v >> 32))
	w.writeU32(uint32(v))
}

func (w *beWriter) bytes() []byte { return w.buf }

// beReader is the read-side cursor, grounded on consensus/wire.go's
// cursor (readExact/readU8/readU16.../readU32...), re-endianed to
// encoding/binary.BigEndian.
type beReader struct {
	b   []byte
	pos int
}

func newBeReader(b []byte) *beReader { return &beReader{b: b} }

func (r *beReader) remaining() int {
	if r.pos >= len(r.b) {
		return 0
	}
	return len(r.b) - r.pos
}

func (r *beReader) readExact(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, newErr(KindInvalidStructure, "truncated header")
	}
	start := r.pos
	r.pos += n
	return r.b[start:r.pos], nil
}

func (r *beReader) readU8() (uint8, error) {
	b, err := r.readExact(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *beReader) readU16() (uint16, error) {
	b, err := r.readExact(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *beReader) readU32() (uint32, error) {
	b, err := r.readExact(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *beReader) readU64Split() (uint64, error) {
	hi, err := r.readU32()
	if err != nil {
		return 0, err
	}
	lo, err := r.readU32()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}
