package member

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/curve25519"
)

// KeyPair bundles the two keys a LocalMember carries: an Ed25519 key for
// CBL signatures and an X25519 key for ECIES encryption/decryption. It is
// the concrete type Member.PrivateKey() returns as `any`; EciesService
// implementations type-assert to *KeyPair.
type KeyPair struct {
	Sign ed25519.PrivateKey
	Box  [32]byte // X25519 scalar
}

// LocalMember is the default, self-contained Member implementation used by
// the streaming pipeline, the CLI, and tests. Real deployments would swap
// this for the out-of-scope member/identity system (spec §1).
type LocalMember struct {
	id      uuid.UUID
	signPub ed25519.PublicKey
	boxPub  [32]byte
	keys    *KeyPair
}

// NewLocalMember generates a fresh Ed25519 signing key and X25519 box key
// and wraps them as a Member with a random id.
func NewLocalMember() (*LocalMember, error) {
	signPub, signPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("member: generate signing key: %w", err)
	}

	var boxPriv [32]byte
	if _, err := rand.Read(boxPriv[:]); err != nil {
		return nil, fmt.Errorf("member: generate box key: %w", err)
	}
	boxPriv[0] &= 248
	boxPriv[31] &= 127
	boxPriv[31] |= 64

	boxPub, err := curve25519.X25519(boxPriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("member: derive box public key: %w", err)
	}

	var pub [32]byte
	copy(pub[:], boxPub)

	return &LocalMember{
		id:      uuid.New(),
		signPub: signPub,
		boxPub:  pub,
		keys:    &KeyPair{Sign: signPriv, Box: boxPriv},
	}, nil
}

// NewLocalMemberWithoutPrivateKey wraps only public material, modeling the
// spec's "Member without a signing capability" case.
func NewLocalMemberWithoutPrivateKey(id uuid.UUID, signPub ed25519.PublicKey, boxPub [32]byte) *LocalMember {
	return &LocalMember{id: id, signPub: signPub, boxPub: boxPub}
}

// NewLocalMemberFromKeys rebuilds a LocalMember from a previously generated
// id and KeyPair, letting a caller (the CLI's identity store) persist an
// identity across process restarts instead of generating a fresh one on
// every invocation.
func NewLocalMemberFromKeys(id uuid.UUID, keys *KeyPair) *LocalMember {
	boxPub, err := curve25519.X25519(keys.Box[:], curve25519.Basepoint)
	if err != nil {
		// Only possible if keys.Box did not come from NewLocalMember (the
		// CLI's loadOrCreateIdentity restores scalars it generated); a
		// corrupt identity file is a caller bug, not a recoverable runtime
		// condition.
		panic("member: invalid box private key: " + err.Error())
	}
	var pub [32]byte
	copy(pub[:], boxPub)
	return &LocalMember{
		id:      id,
		signPub: keys.Sign.Public().(ed25519.PublicKey),
		boxPub:  pub,
		keys:    keys,
	}
}

func (m *LocalMember) ID() uuid.UUID { return m.id }

// PublicKey returns the concatenation of the signing public key and the box
// public key (32 + 32 bytes); consumers slice it back apart via
// SigningPublicKey / BoxPublicKey when they need just one.
func (m *LocalMember) PublicKey() []byte {
	out := make([]byte, 0, ed25519.PublicKeySize+32)
	out = append(out, m.signPub...)
	out = append(out, m.boxPub[:]...)
	return out
}

func (m *LocalMember) SigningPublicKey() ed25519.PublicKey { return m.signPub }
func (m *LocalMember) BoxPublicKey() [32]byte              { return m.boxPub }

func (m *LocalMember) PrivateKey() (any, bool) {
	if m.keys == nil {
		return nil, false
	}
	return m.keys, true
}
