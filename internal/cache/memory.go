package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a MemoryStore created with a non-positive size.
const DefaultMaxEntries = 4096

// MemoryStore is an in-process LRU store with per-entry expiry.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	lru        *list.List
	maxEntries int
	now        func() time.Time
}

type entry struct {
	key    string
	value  string
	expiry time.Time
}

// NewMemoryStore creates a store holding at most maxEntries values.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		entries:    map[string]*list.Element{},
		lru:        list.New(),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	e := el.Value.(*entry)
	if !e.expiry.IsZero() && s.now().After(e.expiry) {
		s.lru.Remove(el)
		delete(s.entries, key)
		return "", false, nil
	}
	s.lru.MoveToFront(el)
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiry time.Time
	if ttl > 0 {
		expiry = s.now().Add(ttl)
	}
	if el, ok := s.entries[key]; ok {
		e := el.Value.(*entry)
		e.value, e.expiry = value, expiry
		s.lru.MoveToFront(el)
		return nil
	}
	if s.lru.Len() >= s.maxEntries {
		if oldest := s.lru.Back(); oldest != nil {
			delete(s.entries, oldest.Value.(*entry).key)
			s.lru.Remove(oldest)
		}
	}
	s.entries[key] = s.lru.PushFront(&entry{key: key, value: value, expiry: expiry})
	return nil
}

// Len returns the number of stored values, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}
