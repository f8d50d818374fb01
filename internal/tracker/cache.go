package tracker

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
)

// CachedClient wraps a Client with a TTL read cache on GetTicket.
// Linked-ticket walks re-read the same tickets constantly; the cache is
// keyed by ticket key and entries expire rather than being invalidated.
// Search is never cached.
type CachedClient struct {
	inner Client
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCachedClient wraps inner with a ticket read cache using the given
// TTL.
func NewCachedClient(inner Client, ttl time.Duration) (*CachedClient, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedClient{inner: inner, cache: cache, ttl: ttl}, nil
}

func (c *CachedClient) GetTicket(ctx context.Context, key string) (*Ticket, error) {
	if cached, ok := c.cache.Get(key); ok {
		if t, ok := cached.(*Ticket); ok {
			return t, nil
		}
	}

	t, err := c.inner.GetTicket(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.SetWithTTL(key, t, 1, c.ttl)
	return t, nil
}

func (c *CachedClient) Search(ctx context.Context, query string) ([]Ticket, error) {
	return c.inner.Search(ctx, query)
}

// Close releases the cache's resources.
func (c *CachedClient) Close() {
	c.cache.Close()
}
