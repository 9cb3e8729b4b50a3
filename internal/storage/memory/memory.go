// Package memory is an in-process storage.KV used by tests and throwaway runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"lifebalance/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	items  map[string]map[string]string
	closed bool
}

var _ storage.KV = (*Store)(nil)

func New() *Store {
	return &Store{items: map[string]map[string]string{}}
}

func (s *Store) GetItem(_ context.Context, ns, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, storage.ErrClosed
	}
	v, ok := s.items[ns][key]
	return v, ok, nil
}

func (s *Store) SetItem(_ context.Context, ns, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	bucket := s.items[ns]
	if bucket == nil {
		bucket = map[string]string{}
		s.items[ns] = bucket
	}
	bucket[key] = value
	return nil
}

func (s *Store) RemoveItem(_ context.Context, ns, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	delete(s.items[ns], key)
	if len(s.items[ns]) == 0 {
		delete(s.items, ns)
	}
	return nil
}

func (s *Store) Keys(_ context.Context, ns string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	return sortedKeys(s.items[ns]), nil
}

func (s *Store) Namespaces(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	return sortedKeys(s.items), nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
