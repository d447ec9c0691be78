// Package member defines the collaborator interfaces the core consumes
// (spec §6.3): Member, IdProvider, and EciesService. It also ships one
// concrete implementation, DefaultEcies plus LocalMember, so the core can
// be exercised end to end without the out-of-scope member/identity system
// spec.md describes in §1.
package member

import "github.com/google/uuid"

// Member is the narrow view of a BrightChain member the core consumes: an
// identifier, a public key, and an optional signing capability. Everything
// else about identity (mnemonics, paper keys, voting keys, proofs) lives in
// the out-of-scope member/identity system.
type Member interface {
	ID() uuid.UUID
	PublicKey() []byte
	// PrivateKey returns the member's signing key and true if this Member
	// value carries one. A Member without a private key can still be a
	// CBL's recorded creator; such a CBL is built unsigned (spec §4.5.5
	// step 5).
	PrivateKey() (any, bool)
}

// IdProvider converts member identifiers to and from the 16-byte raw form
// CBL headers store (spec §4.5 table, "Creator id (raw GUID bytes)").
type IdProvider interface {
	ToBytes(id uuid.UUID) [16]byte
	Equals(a, b uuid.UUID) bool
}

// EciesService is the external encryption/signing collaborator the core
// calls through; the core itself never implements a cryptographic
// primitive (spec §1 Non-goals).
type EciesService interface {
	Encrypt(recipientPublicKey []byte, plaintext []byte) ([]byte, error)
	DecryptWithHeader(privateKey any, ciphertext []byte) ([]byte, error)
	DecryptWithComponents(privateKey any, ephemeralPub, iv, authTag, ciphertext []byte) ([]byte, error)
	SignMessage(privateKey any, digest [64]byte) ([]byte, error)
	VerifyMessage(publicKey []byte, digest [64]byte, signature []byte) (bool, error)
}

// UUIDProvider is the default IdProvider, a thin wrapper over
// github.com/google/uuid's raw byte accessors.
type UUIDProvider struct{}

func (UUIDProvider) ToBytes(id uuid.UUID) [16]byte {
	var out [16]byte
	copy(out[:], id[:])
	return out
}

func (UUIDProvider) Equals(a, b uuid.UUID) bool {
	return a == b
}
