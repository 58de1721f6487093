package storage

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedBackend serves point reads from an LRU cache in front of another
// backend. Entries are refreshed only after a batch commits.
type CachedBackend struct {
	Backend
	cache *lru.Cache[string, []byte]
}

func NewCachedBackend(backend Backend, size int) (*CachedBackend, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create record cache: %w", err)
	}
	return &CachedBackend{Backend: backend, cache: cache}, nil
}

func (c *CachedBackend) Get(ctx context.Context, key []byte) ([]byte, error) {
	if v, ok := c.cache.Get(string(key)); ok {
		return append([]byte(nil), v...), nil
	}
	v, err := c.Backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(string(key), append([]byte(nil), v...))
	return v, nil
}

func (c *CachedBackend) Apply(ctx context.Context, batch *Batch) error {
	if err := c.Backend.Apply(ctx, batch); err != nil {
		return err
	}
	for _, op := range batch.Ops {
		if op.Delete {
			c.cache.Remove(string(op.Key))
			continue
		}
		c.cache.Add(string(op.Key), append([]byte(nil), op.Value...))
	}
	return nil
}

// Len reports the number of cached records.
func (c *CachedBackend) Len() int { return c.cache.Len() }
