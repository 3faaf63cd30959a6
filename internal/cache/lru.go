package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUStore keeps at most a fixed number of entries, evicting the least recently used
type LRUStore[V any] struct {
	cache *lru.Cache[string, Entry[V]]
}

// NewLRUStore creates an LRU store holding up to capacity entries
func NewLRUStore[V any](capacity int) (*LRUStore[V], error) {
	c, err := lru.New[string, Entry[V]](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru store: %w", err)
	}
	return &LRUStore[V]{cache: c}, nil
}

// Get retrieves an entry and marks it recently used
func (s *LRUStore[V]) Get(key string) (Entry[V], bool) {
	return s.cache.Get(key)
}

// Set stores an entry, evicting the oldest when full
func (s *LRUStore[V]) Set(key string, entry Entry[V]) {
	s.cache.Add(key, entry)
}

// Len returns the number of entries
func (s *LRUStore[V]) Len() int {
	return s.cache.Len()
}
