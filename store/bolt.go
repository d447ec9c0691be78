package store

import (
	"bytes"
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"brightchain.dev/core/checksum"
)

var bucketBlocks = []byte("blocks_by_checksum")

// BoltStore is a durable BlockStore backed by a single bbolt database file,
// grounded on the teacher's node/store.DB bootstrap (one bucket per
// concern, a bounded open timeout so a stale lock fails fast instead of
// hanging).
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if absent) a bbolt database at path and
// ensures the block bucket exists.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlocks)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) SetData(_ context.Context, id checksum.Checksum, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		existing := b.Get(id[:])
		if existing == nil {
			return b.Put(id[:], data)
		}
		if !bytes.Equal(existing, data) {
			return newErr(KindBlockAlreadyExists, "checksum "+id.String()+" already stored with different content")
		}
		return nil
	})
}

func (s *BoltStore) GetData(_ context.Context, id checksum.Checksum) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlocks).Get(id[:])
		if v == nil {
			return newErr(KindKeyNotFound, id.String())
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) DeleteData(_ context.Context, id checksum.Checksum) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlocks).Delete(id[:])
	})
}

func (s *BoltStore) Has(_ context.Context, id checksum.Checksum) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucketBlocks).Get(id[:]) != nil
		return nil
	})
	return found, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
