package member

import (
	"bytes"
	"testing"
)

func mustMember(t *testing.T) *LocalMember {
	t.Helper()
	m, err := NewLocalMember()
	if err != nil {
		t.Fatalf("NewLocalMember: %v", err)
	}
	return m
}

func TestEciesSignVerifyRoundTrip(t *testing.T) {
	m := mustMember(t)
	ecies := DefaultEcies{}
	priv, ok := m.PrivateKey()
	if !ok {
		t.Fatalf("expected private key")
	}

	var digest [64]byte
	copy(digest[:], []byte("some 64 byte digest, padded with zero bytes after this text.."))

	sig, err := ecies.SignMessage(priv, digest)
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}

	ok2, err := ecies.VerifyMessage(m.PublicKey(), digest, sig)
	if err != nil {
		t.Fatalf("VerifyMessage: %v", err)
	}
	if !ok2 {
		t.Fatalf("signature did not verify")
	}

	digest[0] ^= 0xFF
	ok3, _ := ecies.VerifyMessage(m.PublicKey(), digest, sig)
	if ok3 {
		t.Fatalf("signature verified over mutated digest")
	}
}

func TestEciesEncryptDecryptRoundTrip(t *testing.T) {
	m := mustMember(t)
	ecies := DefaultEcies{}
	priv, _ := m.PrivateKey()

	plaintext := []byte("the owner-free payload")
	boxPub := m.BoxPublicKey()
	ciphertext, err := ecies.Encrypt(boxPub[:], plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := ecies.DecryptWithHeader(priv, ciphertext)
	if err != nil {
		t.Fatalf("DecryptWithHeader: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("decrypted = %q, want %q", got, plaintext)
	}
}

func TestUUIDProvider(t *testing.T) {
	m := mustMember(t)
	p := UUIDProvider{}
	raw := p.ToBytes(m.ID())
	if len(raw) != 16 {
		t.Fatalf("ToBytes length = %d, want 16", len(raw))
	}
	if !p.Equals(m.ID(), m.ID()) {
		t.Fatalf("Equals not reflexive")
	}
}
