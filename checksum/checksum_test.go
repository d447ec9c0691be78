package checksum

import (
	"bytes"
	"strings"
	"testing"
)

func mustFromHex(t *testing.T, s string) Checksum {
	t.Helper()
	c, err := FromHex(s)
	if err != nil {
		t.Fatalf("FromHex(%q): %v", s, err)
	}
	return c
}

func TestCalculateDeterministic(t *testing.T) {
	data := []byte("the quick brown fox")
	a := Calculate(data)
	b := Calculate(data)
	if !a.Equals(b) {
		t.Fatalf("Calculate not deterministic: %x != %x", a, b)
	}
}

func TestCalculateEmptyIsDefined(t *testing.T) {
	c := Calculate(nil)
	if c.IsZero() {
		t.Fatalf("SHA3-512 of empty input should not be the zero digest")
	}
}

func TestHexRoundTrip(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("x"), bytes.Repeat([]byte{0xAB}, 4096)} {
		c := Calculate(data)
		hex := ToHex(c)
		if len(hex) != Length*2 {
			t.Fatalf("ToHex length = %d, want %d", len(hex), Length*2)
		}
		back := mustFromHex(t, hex)
		if !c.Equals(back) {
			t.Fatalf("round trip mismatch for %v", data)
		}
	}
}

func TestFromHexRejectsWrongLength(t *testing.T) {
	cases := []string{"", "ab", strings.Repeat("a", 127), strings.Repeat("a", 129)}
	for _, s := range cases {
		if _, err := FromHex(s); err == nil {
			t.Fatalf("FromHex(%q) should have failed", s)
		} else if _, ok := err.(*FormatError); !ok {
			t.Fatalf("FromHex(%q) err type = %T, want *FormatError", s, err)
		}
	}
}

func TestFromHexRejectsNonHex(t *testing.T) {
	s := strings.Repeat("zz", 64)
	if _, err := FromHex(s); err == nil {
		t.Fatalf("FromHex(%q) should have failed on non-hex characters", s)
	}
}

func TestCalculateForSequenceMatchesConcatenation(t *testing.T) {
	chunks := [][]byte{[]byte("abc"), []byte("def"), []byte("ghi")}
	got := CalculateForSequence(chunks)
	want := Calculate([]byte("abcdefghi"))
	if !got.Equals(want) {
		t.Fatalf("CalculateForSequence mismatch")
	}
}

func TestCalculateForStream(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 10000)
	got, err := CalculateForStream(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("CalculateForStream: %v", err)
	}
	want := Calculate(data)
	if !got.Equals(want) {
		t.Fatalf("CalculateForStream mismatch")
	}
}

func TestCompareSymmetricAndReflexive(t *testing.T) {
	a := Calculate([]byte("a"))
	b := Calculate([]byte("b"))
	if !Compare(a, a) {
		t.Fatalf("Compare not reflexive")
	}
	if Compare(a, b) != Compare(b, a) {
		t.Fatalf("Compare not symmetric")
	}
}
