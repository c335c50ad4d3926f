package results

import (
	"context"
	"sync"
)

// MemoryStore keeps results for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	byRoom map[string][]GameResult
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byRoom: make(map[string][]GameResult)}
}

func (s *MemoryStore) Save(_ context.Context, r GameResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byRoom[r.RoomCode] = append(s.byRoom[r.RoomCode], r)
	return nil
}

func (s *MemoryStore) Latest(_ context.Context, roomCode string) (GameResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := s.byRoom[roomCode]
	if len(rs) == 0 {
		return GameResult{}, ErrNotFound
	}
	latest := rs[0]
	for _, r := range rs[1:] {
		if !r.FinishedAt.Before(latest.FinishedAt) {
			latest = r
		}
	}
	return latest, nil
}

func (s *MemoryStore) Close() error { return nil }
