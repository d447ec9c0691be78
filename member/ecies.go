package member

import (
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// DefaultEcies implements EciesService with an X25519 + XChaCha20-Poly1305
// ECIES construction for encryption and Ed25519 for signatures, grounded on
// orbas1-Synnergy/synnergy-network/core/security.go's pairing of Ed25519
// signing with a ChaCha20-Poly1305 AEAD in one crypto-primitives file. This
// is the external collaborator spec §6.3 names and passes digests (never
// raw messages) to; it is not a new cryptographic primitive, only a
// standard composition of two stdlib/x-crypto building blocks.
type DefaultEcies struct{}

const (
	boxKeySize = 32
	nonceSize  = chacha20poly1305.NonceSizeX
	hkdfInfo   = "brightchain-ecies-v1"
)

func (DefaultEcies) Encrypt(recipientPublicKey []byte, plaintext []byte) ([]byte, error) {
	if len(recipientPublicKey) < boxKeySize {
		return nil, errors.New("ecies: recipient public key too short")
	}
	recipientPub := recipientPublicKey[:boxKeySize]

	var ephPriv [32]byte
	if _, err := rand.Read(ephPriv[:]); err != nil {
		return nil, fmt.Errorf("ecies: ephemeral key: %w", err)
	}
	ephPriv[0] &= 248
	ephPriv[31] &= 127
	ephPriv[31] |= 64

	ephPub, err := curve25519.X25519(ephPriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("ecies: derive ephemeral public key: %w", err)
	}

	shared, err := curve25519.X25519(ephPriv[:], recipientPub)
	if err != nil {
		return nil, fmt.Errorf("ecies: ECDH: %w", err)
	}

	aead, err := newAEAD(shared)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("ecies: nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, boxKeySize+nonceSize+len(sealed))
	out = append(out, ephPub...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

func (DefaultEcies) DecryptWithHeader(privateKey any, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < boxKeySize+nonceSize {
		return nil, errors.New("ecies: ciphertext too short")
	}
	ephPub := ciphertext[:boxKeySize]
	nonce := ciphertext[boxKeySize : boxKeySize+nonceSize]
	sealed := ciphertext[boxKeySize+nonceSize:]
	return decrypt(privateKey, ephPub, nonce, sealed)
}

func (DefaultEcies) DecryptWithComponents(privateKey any, ephemeralPub, iv, authTag, ciphertext []byte) ([]byte, error) {
	sealed := make([]byte, 0, len(ciphertext)+len(authTag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, authTag...)
	return decrypt(privateKey, ephemeralPub, iv, sealed)
}

func decrypt(privateKey any, ephPub, nonce, sealed []byte) ([]byte, error) {
	kp, ok := privateKey.(*KeyPair)
	if !ok || kp == nil {
		return nil, errors.New("ecies: privateKey must be *member.KeyPair")
	}
	shared, err := curve25519.X25519(kp.Box[:], ephPub)
	if err != nil {
		return nil, fmt.Errorf("ecies: ECDH: %w", err)
	}
	aead, err := newAEAD(shared)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("ecies: authentication failed: %w", err)
	}
	return plaintext, nil
}

func newAEAD(shared []byte) (cipher.AEAD, error) {
	kdf := hkdf.New(sha256.New, shared, nil, []byte(hkdfInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("ecies: derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("ecies: construct AEAD: %w", err)
	}
	return aead, nil
}

func (DefaultEcies) SignMessage(privateKey any, digest [64]byte) ([]byte, error) {
	kp, ok := privateKey.(*KeyPair)
	if !ok || kp == nil {
		return nil, errors.New("ecies: privateKey must be *member.KeyPair")
	}
	return ed25519.Sign(kp.Sign, digest[:]), nil
}

func (DefaultEcies) VerifyMessage(publicKey []byte, digest [64]byte, signature []byte) (bool, error) {
	if len(publicKey) < ed25519.PublicKeySize {
		return false, errors.New("ecies: public key too short")
	}
	signPub := ed25519.PublicKey(publicKey[:ed25519.PublicKeySize])
	return ed25519.Verify(signPub, digest[:], signature), nil
}
