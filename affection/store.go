package affection

import "sync"

// MemoryStore keeps the snapshot in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func NewMemoryStore(initial []byte) *MemoryStore {
	return &MemoryStore{data: append([]byte(nil), initial...)}
}

func (s *MemoryStore) LoadSnapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) == 0 {
		return nil, nil
	}
	return append([]byte(nil), s.data...), nil
}

func (s *MemoryStore) SaveSnapshot(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data[:0], data...)
	s.saves++
	return nil
}

// Saves counts SaveSnapshot calls.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
