package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"brightchain.dev/core/member"
)

// identityFile is the on-disk shape of a persisted LocalMember, grounded on
// cmd/rubin-node/main.go's printConfig JSON-encoding convention. Keys are
// base64 rather than hex so the file stays short next to the config JSON a
// user might diff it against.
type identityFile struct {
	ID        string `json:"id"`
	SignSeed  string `json:"signSeed"` // ed25519.PrivateKey seed, 32 bytes
	BoxScalar string `json:"boxScalar"`
}

// loadOrCreateIdentity reads the identity file at path, or generates and
// persists a fresh one if absent. The file is written with 0o600 permissions
// since it carries private key material.
func loadOrCreateIdentity(path string) (*member.LocalMember, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		m, err := member.NewLocalMember()
		if err != nil {
			return nil, fmt.Errorf("identity: generate: %w", err)
		}
		if err := saveIdentity(path, m); err != nil {
			return nil, err
		}
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("identity: read %s: %w", path, err)
	}

	var f identityFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("identity: parse %s: %w", path, err)
	}
	id, err := uuid.Parse(f.ID)
	if err != nil {
		return nil, fmt.Errorf("identity: malformed id: %w", err)
	}
	seed, err := base64.StdEncoding.DecodeString(f.SignSeed)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity: malformed signing seed")
	}
	boxScalar, err := base64.StdEncoding.DecodeString(f.BoxScalar)
	if err != nil || len(boxScalar) != 32 {
		return nil, fmt.Errorf("identity: malformed box scalar")
	}

	var box [32]byte
	copy(box[:], boxScalar)
	keys := &member.KeyPair{Sign: ed25519.NewKeyFromSeed(seed), Box: box}
	return member.NewLocalMemberFromKeys(id, keys), nil
}

func saveIdentity(path string, m *member.LocalMember) error {
	priv, ok := m.PrivateKey()
	if !ok {
		return fmt.Errorf("identity: member has no private key to persist")
	}
	keys, ok := priv.(*member.KeyPair)
	if !ok {
		return fmt.Errorf("identity: unexpected private key type %T", priv)
	}

	f := identityFile{
		ID:        m.ID().String(),
		SignSeed:  base64.StdEncoding.EncodeToString(keys.Sign.Seed()),
		BoxScalar: base64.StdEncoding.EncodeToString(keys.Box[:]),
	}
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("identity: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("identity: create directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("identity: write %s: %w", path, err)
	}
	return nil
}
