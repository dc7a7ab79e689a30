package kvstore

import (
	"context"
	"slices"
	"sync"
)

// Inmem implements [Store] with a map. The mutex only guards the map itself,
// it does not make read-modify-write sequences atomic.
type Inmem struct {
	mu     sync.Mutex
	items  map[string][]byte
	closed bool
}

var _ Store = (*Inmem)(nil)

func NewInmem() *Inmem {
	return &Inmem{items: make(map[string][]byte)}
}

func (s *Inmem) GetItem(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	b, ok := s.items[key]
	return slices.Clone(b), ok, nil
}

func (s *Inmem) SetItem(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.items[key] = slices.Clone(value)
	return nil
}

func (s *Inmem) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.items, key)
	return nil
}

func (s *Inmem) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
