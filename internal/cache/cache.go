package cache

import (
	"fmt"
	"time"

	"github.com/ppiankov/cardset/internal/model"
)

// Entry is a settled computation: the value, or the failure it produced
type Entry[V any] struct {
	Value V
	Err   error
}

// Store holds settled entries by key. Implementations are safe for concurrent use.
type Store[V any] interface {
	Get(key string) (Entry[V], bool)
	Set(key string, entry Entry[V])
	Len() int
}

// NewStore builds the store selected by a cache policy
func NewStore[V any](cfg model.CacheConfig) (Store[V], error) {
	switch cfg.Policy {
	case model.CachePolicyUnbounded, "":
		return NewUnboundedStore[V](), nil
	case model.CachePolicyLRU:
		s, err := NewLRUStore[V](cfg.Capacity)
		if err != nil {
			return nil, err
		}
		return s, nil
	case model.CachePolicyTTL:
		if cfg.TTL <= 0 {
			return nil, fmt.Errorf("ttl cache policy needs a positive ttl, got %v", cfg.TTL)
		}
		return NewTTLStore[V](cfg.TTL, cleanupFor(cfg.TTL)), nil
	default:
		return nil, fmt.Errorf("unknown cache policy %q", cfg.Policy)
	}
}

// cleanupFor picks a janitor interval for a ttl; zero disables the janitor
func cleanupFor(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl * 2
}
