package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TTLStore keeps entries in memory until their TTL expires
type TTLStore[V any] struct {
	cache *gocache.Cache
}

// NewTTLStore creates a TTL store; expired entries are purged every cleanupInterval
func NewTTLStore[V any](ttl time.Duration, cleanupInterval time.Duration) *TTLStore[V] {
	return &TTLStore[V]{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

// NewUnboundedStore creates a store that never evicts, for process-lifetime memoization
func NewUnboundedStore[V any]() *TTLStore[V] {
	return &TTLStore[V]{
		cache: gocache.New(gocache.NoExpiration, cleanupFor(0)),
	}
}

// Get retrieves an entry from the store
func (s *TTLStore[V]) Get(key string) (Entry[V], bool) {
	if val, found := s.cache.Get(key); found {
		return val.(Entry[V]), true
	}
	return Entry[V]{}, false
}

// Set stores an entry with the store's default TTL
func (s *TTLStore[V]) Set(key string, entry Entry[V]) {
	s.cache.Set(key, entry, gocache.DefaultExpiration)
}

// Len returns the number of entries, including expired ones not yet purged
func (s *TTLStore[V]) Len() int {
	return s.cache.ItemCount()
}
