// Package store implements the BlockStore contract from spec §4.2: a
// mapping from a 64-byte checksum to stored block bytes with
// compare-and-set write semantics. Two backends are provided: MemStore
// (in-memory, single process) and BoltStore (durable, bbolt-backed, used
// for the file-backed BlockHandle persistence path in spec §6.2).
package store

import (
	"context"

	"brightchain.dev/core/checksum"
)

// BlockStore is the contract every backend satisfies. Implementations must
// be observably atomic: a successful SetData guarantees a subsequent
// GetData for the same id returns that data (spec §5).
type BlockStore interface {
	// SetData computes the key as the caller-supplied id and stores data
	// under it. Storing identical bytes at an existing id is a no-op
	// success (idempotent CAS). Storing different bytes at an existing id
	// fails with Kind == KindBlockAlreadyExists.
	SetData(ctx context.Context, id checksum.Checksum, data []byte) error

	// GetData returns the bytes stored under id, or an error with
	// Kind == KindKeyNotFound if absent. It never synthesizes data.
	GetData(ctx context.Context, id checksum.Checksum) ([]byte, error)

	// DeleteData removes the mapping for id. It is idempotent: deleting a
	// missing key is not an error.
	DeleteData(ctx context.Context, id checksum.Checksum) error

	// Has is a pure predicate over the current key set.
	Has(ctx context.Context, id checksum.Checksum) (bool, error)

	// Close releases any resources (file handles, in-flight transactions)
	// held by the backend.
	Close() error
}
