package results

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// Service fronts a Store with an ARC cache of the latest result per room.
type Service struct {
	store Store
	cache *lru.ARCCache
}

func NewService(store Store, cacheSize int) (*Service, error) {
	c, err := lru.NewARC(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("lru new instance of lru arc cache: %w", err)
	}
	return &Service{store: store, cache: c}, nil
}

// Record saves r and makes it the cached latest result for its room.
func (s *Service) Record(ctx context.Context, r GameResult) error {
	if err := s.store.Save(ctx, r); err != nil {
		return err
	}
	s.cache.Add(r.RoomCode, r)
	return nil
}

func (s *Service) Latest(ctx context.Context, roomCode string) (GameResult, error) {
	if v, ok := s.cache.Get(roomCode); ok {
		return v.(GameResult), nil
	}
	r, err := s.store.Latest(ctx, roomCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return GameResult{}, err
		}
		return GameResult{}, fmt.Errorf("latest result: %w", err)
	}
	s.cache.Add(roomCode, r)
	return r, nil
}

func (s *Service) Close() error {
	s.cache.Purge()
	return s.store.Close()
}
