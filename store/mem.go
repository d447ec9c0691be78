package store

import (
	"bytes"
	"context"
	"sync"

	"brightchain.dev/core/checksum"
)

// MemStore is the in-memory BlockStore variant specified in spec §4.2. A
// single mutex guards the mapping so that SetData is atomic with respect to
// Has/GetData, per spec §5's no-torn-reads requirement.
type MemStore struct {
	mu   sync.RWMutex
	data map[checksum.Checksum][]byte
}

// NewMemStore constructs an empty in-memory block store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[checksum.Checksum][]byte)}
}

func (s *MemStore) SetData(_ context.Context, id checksum.Checksum, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[id]
	if !ok {
		stored := append([]byte(nil), data...)
		s.data[id] = stored
		return nil
	}
	if !bytes.Equal(existing, data) {
		return newErr(KindBlockAlreadyExists, "checksum "+id.String()+" already stored with different content")
	}
	return nil
}

func (s *MemStore) GetData(_ context.Context, id checksum.Checksum) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[id]
	if !ok {
		return nil, newErr(KindKeyNotFound, id.String())
	}
	return append([]byte(nil), data...), nil
}

func (s *MemStore) DeleteData(_ context.Context, id checksum.Checksum) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *MemStore) Has(_ context.Context, id checksum.Checksum) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[id]
	return ok, nil
}

func (s *MemStore) Close() error {
	return nil
}
