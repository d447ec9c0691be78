package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"brightchain.dev/core/block"
	"brightchain.dev/core/checksum"
	"brightchain.dev/core/store"
	"brightchain.dev/core/streaming"
	"brightchain.dev/core/tuple"
)

// tupleRecord is the CLI's persisted answer to what streaming.TupleLoader's
// doc comment says a caller must track itself: which random-block checksums
// belong to a prime's tuple, and the prime's lengthBeforeEncryption, neither
// of which survives a BlockStore round-trip on its own (spec §4.2).
type tupleRecord struct {
	Randoms   []string `json:"randoms"`
	Length    int      `json:"length"`
	HasLength bool     `json:"hasLength"`
}

// tupleIndex is a JSON file sitting next to the block store, mapping each
// prime checksum to its tuple's random-block checksums. One file per
// data directory, loaded fully and rewritten on every persisted tuple; a
// production deployment would fold this into the same bbolt database as
// another bucket, but keeping it as a standalone file keeps cmd/brightchain
// readable as the wiring layer it is.
type tupleIndex struct {
	path string
	mu   sync.Mutex
	m    map[string]tupleRecord
}

func openTupleIndex(path string) (*tupleIndex, error) {
	idx := &tupleIndex{path: path, m: make(map[string]tupleRecord)}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tupleindex: read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &idx.m); err != nil {
		return nil, fmt.Errorf("tupleindex: parse %s: %w", path, err)
	}
	return idx, nil
}

func (idx *tupleIndex) save() error {
	raw, err := json.MarshalIndent(idx.m, "", "  ")
	if err != nil {
		return fmt.Errorf("tupleindex: encode: %w", err)
	}
	if err := os.WriteFile(idx.path, raw, 0o600); err != nil {
		return fmt.Errorf("tupleindex: write %s: %w", idx.path, err)
	}
	return nil
}

// persistTupleFunc returns a streaming.PersistTupleFunc that writes every
// tuple member's bytes to bs and records the prime's tuple membership in
// idx, flushing idx to disk after each tuple (spec §5 "awaits completion
// before advancing" applies equally to this side index).
func persistTupleFunc(bs store.BlockStore, idx *tupleIndex) streaming.PersistTupleFunc {
	return func(ctx context.Context, t *tuple.Tuple) error {
		for _, b := range t.Blocks() {
			if err := bs.SetData(ctx, b.IDChecksum(), b.Data()); err != nil {
				return err
			}
		}

		prime := t.Prime()
		rest := t.Blocks()[1:]
		length, hasLength := prime.LengthBeforeEncryption()
		rec := tupleRecord{Randoms: make([]string, 0, len(rest)), Length: length, HasLength: hasLength}
		for _, b := range rest {
			rec.Randoms = append(rec.Randoms, checksum.ToHex(b.IDChecksum()))
		}

		idx.mu.Lock()
		idx.m[checksum.ToHex(prime.IDChecksum())] = rec
		err := idx.save()
		idx.mu.Unlock()
		return err
	}
}

func loadWhitenedBlock(ctx context.Context, bs store.BlockStore, size block.Size, id checksum.Checksum, length *int) (*block.Block, error) {
	data, err := bs.GetData(ctx, id)
	if err != nil {
		return nil, err
	}
	return block.NewWhitenedBlock(block.WhitenedOpts{
		Size:                   size,
		Data:                   data,
		IDChecksum:             &id,
		LengthBeforeEncryption: length,
		CanRead:                true,
		CanPersist:             true,
	})
}

// tupleLoader returns a streaming.TupleLoader that resolves a prime's tuple
// by consulting idx for its sibling random-block checksums, then loading
// every member's raw bytes back out of bs.
func tupleLoader(bs store.BlockStore, idx *tupleIndex, size block.Size) streaming.TupleLoader {
	return func(ctx context.Context, primeID checksum.Checksum) (*block.Block, []*block.Block, []*block.Block, error) {
		idx.mu.Lock()
		rec, ok := idx.m[checksum.ToHex(primeID)]
		idx.mu.Unlock()
		if !ok {
			return nil, nil, nil, fmt.Errorf("tupleindex: no tuple record for prime %s", primeID)
		}

		var lengthPtr *int
		if rec.HasLength {
			l := rec.Length
			lengthPtr = &l
		}
		prime, err := loadWhitenedBlock(ctx, bs, size, primeID, lengthPtr)
		if err != nil {
			return nil, nil, nil, err
		}

		randoms := make([]*block.Block, 0, len(rec.Randoms))
		for _, hex := range rec.Randoms {
			id, err := checksum.FromHex(hex)
			if err != nil {
				return nil, nil, nil, err
			}
			r, err := loadWhitenedBlock(ctx, bs, size, id, nil)
			if err != nil {
				return nil, nil, nil, err
			}
			randoms = append(randoms, r)
		}
		return prime, nil, randoms, nil
	}
}
