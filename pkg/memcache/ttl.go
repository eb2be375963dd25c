package mem

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a size-bounded in-memory map whose entries expire. When full, Set
// first drops expired entries and then an arbitrary live one.
type TTL[V any] struct {
	mu      sync.RWMutex
	data    map[string]entry[V]
	maxSize int
	now     func() time.Time
}

func NewTTL[V any](maxSize int) *TTL[V] {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &TTL[V]{
		data:    make(map[string]entry[V]),
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (s *TTL[V]) Set(key string, value V, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok && len(s.data) >= s.maxSize {
		s.evictLocked()
	}
	s.data[key] = entry[V]{
		value:     value,
		expiresAt: s.now().Add(ttl),
	}
}

func (s *TTL[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()

	if !ok || s.now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (s *TTL[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *TTL[V]) evictLocked() {
	now := s.now()
	for k, e := range s.data {
		if now.After(e.expiresAt) {
			delete(s.data, k)
		}
	}
	if len(s.data) < s.maxSize {
		return
	}
	for k := range s.data {
		delete(s.data, k)
		return
	}
}
