package block

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"brightchain.dev/core/checksum"
	"brightchain.dev/core/internal/randsrc"
	"brightchain.dev/core/member"
)

func mustMember(t *testing.T) *member.LocalMember {
	t.Helper()
	m, err := member.NewLocalMember()
	if err != nil {
		t.Fatalf("NewLocalMember: %v", err)
	}
	return m
}

// S1: a 4096-byte RawDataBlock from repeating 0x00..0xFF, checksum and
// ValidateSync both hold.
func TestRawDataBlockChecksumMatchesSHA3(t *testing.T) {
	var pattern []byte
	for i := 0; i < 16; i++ {
		for b := 0; b < 256; b++ {
			pattern = append(pattern, byte(b))
		}
	}
	if len(pattern) != 4096 {
		t.Fatalf("pattern length = %d, want 4096", len(pattern))
	}

	blk, err := NewRawDataBlock(SizeSmall, pattern, time.Time{})
	if err != nil {
		t.Fatalf("NewRawDataBlock: %v", err)
	}

	want := checksum.Calculate(pattern)
	if !blk.IDChecksum().Equals(want) {
		t.Fatalf("IDChecksum mismatch")
	}
	if err := blk.ValidateSync(); err != nil {
		t.Fatalf("ValidateSync: %v", err)
	}
}

// P3: data longer than blockSize fails construction.
func TestConstructionRejectsOversizedData(t *testing.T) {
	_, err := NewRawDataBlock(SizeMessage, make([]byte, int(SizeMessage)+1), time.Time{})
	if err == nil {
		t.Fatalf("expected ExceedsBlockSize error")
	}
	ve, ok := err.(*ValidationError)
	if !ok || ve.Kind != KindExceedsBlockSize {
		t.Fatalf("err = %v, want KindExceedsBlockSize", err)
	}
}

// P4: future-dated construction fails.
func TestConstructionRejectsFutureDate(t *testing.T) {
	future := time.Now().Add(time.Hour)
	_, err := NewRawDataBlock(SizeMessage, []byte("x"), future)
	if err == nil {
		t.Fatalf("expected FutureCreationDate error")
	}
	ve, ok := err.(*ValidationError)
	if !ok || ve.Kind != KindFutureCreationDate {
		t.Fatalf("err = %v, want KindFutureCreationDate", err)
	}
}

// S2: two random blocks of the same size differ with overwhelming probability.
func TestRandomBlocksDiffer(t *testing.T) {
	a, err := NewRandomBlock(SizeMessage, randsrc.Read)
	if err != nil {
		t.Fatalf("NewRandomBlock a: %v", err)
	}
	bb, err := NewRandomBlock(SizeMessage, randsrc.Read)
	if err != nil {
		t.Fatalf("NewRandomBlock b: %v", err)
	}
	if bytes.Equal(a.Data(), bb.Data()) {
		t.Fatalf("two random blocks were identical")
	}
}

func TestWhitenedBlockComputesChecksumWhenAbsent(t *testing.T) {
	data := bytes.Repeat([]byte{0xAA}, int(SizeMessage))
	blk, err := NewWhitenedBlock(WhitenedOpts{Size: SizeMessage, Data: data, CanRead: true, CanPersist: true})
	if err != nil {
		t.Fatalf("NewWhitenedBlock: %v", err)
	}
	if !blk.IDChecksum().Equals(checksum.Calculate(data)) {
		t.Fatalf("checksum not computed from data")
	}
}

func TestEphemeralBlockRequiresCreator(t *testing.T) {
	_, err := NewEphemeralBlock(EphemeralOpts{
		BlockType: TypeEphemeralOwnedDataBlock,
		DataType:  DataTypeRawData,
		Size:      SizeMessage,
		Data:      []byte("x"),
	})
	if err == nil {
		t.Fatalf("expected error for missing creator")
	}
}

func TestEphemeralBlockCarriesCreatorAndLength(t *testing.T) {
	m := mustMember(t)
	length := 10
	blk, err := NewEphemeralBlock(EphemeralOpts{
		BlockType:              TypeEphemeralOwnedDataBlock,
		DataType:               DataTypeRawData,
		Size:                   SizeMessage,
		Data:                   []byte("0123456789"),
		Creator:                m,
		LengthBeforeEncryption: &length,
	})
	if err != nil {
		t.Fatalf("NewEphemeralBlock: %v", err)
	}
	creator, ok := blk.Creator()
	if !ok || creator.ID() != m.ID() {
		t.Fatalf("creator not recorded correctly")
	}
	got, ok := blk.LengthBeforeEncryption()
	if !ok || got != length {
		t.Fatalf("lengthBeforeEncryption = %d,%v want %d,true", got, ok, length)
	}
}

func TestValidateSyncDetectsMismatch(t *testing.T) {
	data := []byte("hello")
	blk, err := NewRawDataBlock(SizeMessage, data, time.Time{})
	if err != nil {
		t.Fatalf("NewRawDataBlock: %v", err)
	}
	// Corrupt the stored checksum directly (simulating bit rot at rest).
	blk.idChecksum = checksum.Calculate([]byte("tampered"))
	err = blk.ValidateSync()
	if err == nil {
		t.Fatalf("expected checksum mismatch")
	}
	if _, ok := err.(*ChecksumMismatchError); !ok {
		t.Fatalf("err = %T, want *ChecksumMismatchError", err)
	}
}

// S7 / P10: a handle with canRead=false fails all reads.
func TestHandleNotReadable(t *testing.T) {
	dir := t.TempDir()
	data := []byte("persisted bytes")
	id := checksum.Calculate(data)
	path := filepath.Join(dir, id.String()+".bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	h := NewHandle(id, path, false, true)
	_, err := h.Data(context.Background())
	if err == nil {
		t.Fatalf("expected NotReadable")
	}
	ae, ok := err.(*AccessError)
	if !ok || ae.Kind != KindNotReadable {
		t.Fatalf("err = %v, want KindNotReadable", err)
	}
}

func TestHandleNotPersistable(t *testing.T) {
	dir := t.TempDir()
	data := []byte("x")
	id := checksum.Calculate(data)
	h := NewHandle(id, filepath.Join(dir, "x.bin"), true, false)
	_, err := h.GetWriteStream(context.Background())
	if err == nil {
		t.Fatalf("expected NotPersistable")
	}
	ae, ok := err.(*AccessError)
	if !ok || ae.Kind != KindNotPersistable {
		t.Fatalf("err = %v, want KindNotPersistable", err)
	}
}

func TestHandleReadWriteRoundTripAndCacheInvalidation(t *testing.T) {
	dir := t.TempDir()
	data := []byte("round trip contents")
	id := checksum.Calculate(data)
	path := filepath.Join(dir, id.String()+".bin")

	h := NewHandle(id, path, true, true)
	w, err := h.GetWriteStream(context.Background())
	if err != nil {
		t.Fatalf("GetWriteStream: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := h.Data(context.Background())
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("Data = %q, want %q", got, data)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove backing file: %v", err)
	}
	// Cache still serves bytes after the backing file disappears.
	got2, err := h.Data(context.Background())
	if err != nil || !bytes.Equal(got2, data) {
		t.Fatalf("expected cached read to still succeed: got=%q err=%v", got2, err)
	}

	h.ClearCache()
	if _, err := h.Data(context.Background()); err == nil {
		t.Fatalf("expected FileNotFound after ClearCache on a removed file")
	} else if ae, ok := err.(*AccessError); !ok || ae.Kind != KindFileNotFound {
		t.Fatalf("err = %v, want KindFileNotFound", err)
	}
}

func TestWriteStreamRejectsChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	id := checksum.Calculate([]byte("expected content"))
	path := filepath.Join(dir, id.String()+".bin")
	h := NewHandle(id, path, true, true)

	w, err := h.GetWriteStream(context.Background())
	if err != nil {
		t.Fatalf("GetWriteStream: %v", err)
	}
	_, _ = w.Write([]byte("different content entirely"))
	err = w.Close()
	if err == nil {
		t.Fatalf("expected checksum mismatch on close")
	}
	if _, ok := err.(*ChecksumMismatchError); !ok {
		t.Fatalf("err = %T, want *ChecksumMismatchError", err)
	}
}
