package blockstore

import (
	"sync"

	"github.com/ssargent/kdforest/pkg/kderrors"
)

// Memory is an in-process Adapter over byte slices, used by pkg/forest's
// tests (spec §8's property tests run many small databases; a file-backed
// Directory for each would be slow and leave litter on disk).
type Memory struct {
	mu     sync.Mutex
	stores map[string]*memStore
}

// NewMemory builds an empty in-memory Adapter.
func NewMemory() *Memory {
	return &Memory{stores: make(map[string]*memStore)}
}

func (m *Memory) Open(name string) (Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[name]
	if !ok {
		s = &memStore{}
		m.stores[name] = s
	}
	return s, nil
}

func (m *Memory) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, name)
	return nil
}

type memStore struct {
	mu   sync.Mutex
	data []byte
}

func (s *memStore) Len() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.data)), nil
}

func (s *memStore) Read(off int64, n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if off < 0 || off > int64(len(s.data)) {
		return nil, errOutOfRange
	}
	end := off + int64(n)
	if end > int64(len(s.data)) {
		end = int64(len(s.data))
	}
	out := make([]byte, end-off)
	copy(out, s.data[off:end])
	return out, nil
}

func (s *memStore) Write(off int64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	end := off + int64(len(data))
	if end > int64(len(s.data)) {
		grown := make([]byte, end)
		copy(grown, s.data)
		s.data = grown
	}
	copy(s.data[off:end], data)
	return nil
}

func (s *memStore) Truncate(size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size <= int64(len(s.data)) {
		s.data = s.data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, s.data)
	s.data = grown
	return nil
}

func (s *memStore) SyncAll() error { return nil }

func (s *memStore) IsEmpty() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data) == 0, nil
}

func (s *memStore) Close() error { return nil }

var errOutOfRange = kderrors.Codec("offset out of range")
