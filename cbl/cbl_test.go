package cbl

import (
	"context"
	"testing"
	"time"

	"brightchain.dev/core/block"
	"brightchain.dev/core/checksum"
	"brightchain.dev/core/member"
	"brightchain.dev/core/store"
)

func mustMember(t *testing.T) *member.LocalMember {
	t.Helper()
	m, err := member.NewLocalMember()
	if err != nil {
		t.Fatalf("NewLocalMember: %v", err)
	}
	return m
}

// S4: a single-address CBL signed by its creator verifies; changing
// originalDataLength after the fact breaks verification.
func TestBuildAndVerifyRoundTrip(t *testing.T) {
	m := mustMember(t)
	ecies := member.DefaultEcies{}
	addrs := []checksum.Checksum{checksum.Calculate([]byte("address one"))}

	headerBytes, err := Build(BuildOpts{
		Creator:            m,
		Ecies:              ecies,
		DateCreated:        time.Now(),
		Addresses:          addrs,
		OriginalDataLength: 1000,
		BlockSize:          4096,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	full := append(append([]byte(nil), headerBytes...), addrs[0].Bytes()...)
	parsed, err := Parse(full)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.OriginalDataLength != 1000 {
		t.Fatalf("OriginalDataLength = %d, want 1000", parsed.OriginalDataLength)
	}

	ok, err := Verify(parsed, addrs, 4096, m.PublicKey(), ecies)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected valid signature")
	}

	// Tamper: bump originalDataLength in the raw header bytes (offset 28)
	// to 1001 without re-signing, then reparse and verify.
	tamperedFull := append([]byte(nil), full...)
	tamperedFull[28+3]++ // low byte of the big-endian uint32 at offset 28
	tamperedParsed, err := Parse(tamperedFull)
	if err != nil {
		t.Fatalf("Parse tampered: %v", err)
	}
	if tamperedParsed.OriginalDataLength != 1001 {
		t.Fatalf("tampered OriginalDataLength = %d, want 1001", tamperedParsed.OriginalDataLength)
	}
	ok, err = Verify(tamperedParsed, addrs, 4096, m.PublicKey(), ecies)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("expected verification to fail after tampering originalDataLength")
	}
}

// P6: flipping any single byte of the signed preimage breaks verification.
func TestVerifyDetectsSingleByteFlip(t *testing.T) {
	m := mustMember(t)
	ecies := member.DefaultEcies{}
	addrs := []checksum.Checksum{
		checksum.Calculate([]byte("a")),
		checksum.Calculate([]byte("b")),
		checksum.Calculate([]byte("c")),
	}

	headerBytes, err := Build(BuildOpts{
		Creator:   m,
		Ecies:     ecies,
		Addresses: addrs,
		BlockSize: 4096,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	full := append(append([]byte(nil), headerBytes...), addressListBytes(addrs)...)
	parsed, err := Parse(full)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// Flip one byte of one address.
	flipped := append([]byte(nil), addrs[0].Bytes()...)
	flipped[0] ^= 0xFF
	badAddrs := append([]checksum.Checksum{checksum.FromBytes(flipped)}, addrs[1:]...)

	ok, err := Verify(parsed, badAddrs, 4096, m.PublicKey(), ecies)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("expected verification to fail after flipping an address byte")
	}

	// Flip the block-size context instead.
	ok, err = Verify(parsed, addrs, 4097, m.PublicKey(), ecies)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("expected verification to fail under a different block-size context")
	}
}

// P7: verification with a different member's public key fails.
func TestVerifyRejectsWrongCreator(t *testing.T) {
	m := mustMember(t)
	other := mustMember(t)
	ecies := member.DefaultEcies{}
	addrs := []checksum.Checksum{checksum.Calculate([]byte("x"))}

	headerBytes, err := Build(BuildOpts{Creator: m, Ecies: ecies, Addresses: addrs, BlockSize: 4096})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	full := append(append([]byte(nil), headerBytes...), addressListBytes(addrs)...)
	parsed, err := Parse(full)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	ok, err := Verify(parsed, addrs, 4096, other.PublicKey(), ecies)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("expected verification with the wrong public key to fail")
	}
}

// S5: an extended CBL round-trips its filename/MIME type exactly; a
// path-traversal filename is rejected at construction.
func TestExtendedHeaderRoundTripAndPathTraversal(t *testing.T) {
	m := mustMember(t)
	ecies := member.DefaultEcies{}

	headerBytes, err := Build(BuildOpts{
		Creator:   m,
		Ecies:     ecies,
		Addresses: nil,
		BlockSize: 4096,
		FileName:  "a.txt",
		MimeType:  "text/plain",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	parsed, err := Parse(headerBytes)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Extended == nil || parsed.Extended.FileName != "a.txt" || parsed.Extended.MimeType != "text/plain" {
		t.Fatalf("extended header = %+v, want a.txt/text/plain", parsed.Extended)
	}

	_, err = Build(BuildOpts{
		Creator:   m,
		Ecies:     ecies,
		BlockSize: 4096,
		FileName:  "../etc/passwd",
		MimeType:  "text/plain",
	})
	if err == nil {
		t.Fatalf("expected FileNamePathTraversal error")
	}
	ce, ok := err.(*Error)
	if !ok || ce.Kind != KindFileNamePathTraversal {
		t.Fatalf("err = %v, want KindFileNamePathTraversal", err)
	}
}

// P8: capacity is non-negative, a multiple of TUPLE_SIZE, and
// monotonically decreases as overhead or extended-header strings grow.
func TestCapacityMonotonicity(t *testing.T) {
	base := Capacity(block.SizeSmall, OverheadNone, "", "")
	if base%3 != 0 || base < 0 {
		t.Fatalf("base capacity %d is not a non-negative multiple of 3", base)
	}

	withOverhead := Capacity(block.SizeSmall, OverheadECIES, "", "")
	if withOverhead > base {
		t.Fatalf("capacity with encryption overhead %d > base %d", withOverhead, base)
	}

	withExt := Capacity(block.SizeSmall, OverheadNone, "averylongfilename.extension", "application/octet-stream")
	if withExt > base {
		t.Fatalf("capacity with extended header %d > base %d", withExt, base)
	}

	// 512 - 72 (ECIES) - 34 (base) - 66 (2+39+1+24 extended) - 64 (signature)
	// leaves 276 bytes: 4 addresses, rounded down to one tuple of 3.
	tiny := Capacity(block.SizeMessage, OverheadECIES, "a-long-filename-that-eats-the-block.bin", "application/octet-stream")
	if tiny != 3 {
		t.Fatalf("expected capacity of exactly one tuple (3), got %d", tiny)
	}
}

// P11: a Super-CBL partitions an address set across sub-CBLs and
// WalkSuperCBL reconstructs the exact original ordered list.
func TestWalkSuperCBLReconstructsOrder(t *testing.T) {
	ctx := context.Background()
	m := mustMember(t)
	ecies := member.DefaultEcies{}
	bs := store.NewMemStore()

	blockSize := block.SizeSmall
	all := []checksum.Checksum{
		checksum.Calculate([]byte("one")),
		checksum.Calculate([]byte("two")),
		checksum.Calculate([]byte("three")),
		checksum.Calculate([]byte("four")),
		checksum.Calculate([]byte("five")),
		checksum.Calculate([]byte("six")),
	}

	makeSubCBL := func(addrs []checksum.Checksum) checksum.Checksum {
		t.Helper()
		headerBytes, err := Build(BuildOpts{
			Creator:            m,
			Ecies:              ecies,
			Addresses:          addrs,
			OriginalDataLength: 0,
			BlockSize:          uint32(blockSize),
		})
		if err != nil {
			t.Fatalf("Build sub-CBL: %v", err)
		}
		full := append(append([]byte(nil), headerBytes...), addressListBytes(addrs)...)
		padded := make([]byte, blockSize)
		copy(padded, full)
		id := checksum.Calculate(padded)
		if err := bs.SetData(ctx, id, padded); err != nil {
			t.Fatalf("SetData sub-CBL: %v", err)
		}
		return id
	}

	subA := makeSubCBL(all[:3])
	subB := makeSubCBL(all[3:])
	subs := []checksum.Checksum{subA, subB}

	superBytes, err := BuildSuper(BuildSuperOpts{
		Creator:              m,
		Ecies:                ecies,
		SubCblChecksums:      subs,
		TotalBlockCount:      uint32(len(all)),
		Depth:                1,
		OriginalDataLength:   0,
		OriginalDataChecksum: checksum.Calculate([]byte("whole file")),
		BlockSize:            uint32(blockSize),
	})
	if err != nil {
		t.Fatalf("BuildSuper: %v", err)
	}
	full := append(append([]byte(nil), superBytes...), addressListBytes(subs)...)
	padded := make([]byte, blockSize)
	copy(padded, full)
	rootID := checksum.Calculate(padded)
	if err := bs.SetData(ctx, rootID, padded); err != nil {
		t.Fatalf("SetData root: %v", err)
	}

	resolve := func(ctx context.Context, id checksum.Checksum) ([]byte, error) {
		return bs.GetData(ctx, id)
	}
	got, err := WalkSuperCBL(ctx, resolve, rootID, 4)
	if err != nil {
		t.Fatalf("WalkSuperCBL: %v", err)
	}
	if len(got) != len(all) {
		t.Fatalf("resolved %d addresses, want %d", len(got), len(all))
	}
	for i := range all {
		if !got[i].Equals(all[i]) {
			t.Fatalf("address %d = %s, want %s", i, got[i], all[i])
		}
	}
}
