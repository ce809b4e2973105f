// Package tokencache implements the spec §4.6 token cache: a single
// cached OAuth2 bearer token, refreshed on demand and shared by every
// shipper worker. It is grounded on ClusterCockpit-cc-backend's
// pkg/lrucache.Cache — the same "store a zero-value placeholder entry,
// release the lock, compute, then broadcast to waiters" shape — narrowed
// from a general keyed LRU to the single always-one-entry case this spec
// needs, since there is exactly one token to cache.
package tokencache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/dstufft/linehaul/internal/linehaulerr"
)

// RefreshThreshold is how much of a token's remaining lifetime must be
// left for it to still be served from cache (spec §4.6: "a token with
// less than 60 seconds of remaining lifetime is treated as expired").
const RefreshThreshold = 60 * time.Second

// MintFunc mints a brand new bearer token, e.g. by signing a JWT
// assertion and exchanging it at the OAuth2 token endpoint.
type MintFunc func(ctx context.Context) (*oauth2.Token, error)

// Cache serializes concurrent refreshes: only one goroutine at a time
// calls mint; any others that arrive while a refresh is in flight block
// on the same result instead of each minting their own token.
type Cache struct {
	mint MintFunc

	mu        sync.Mutex
	cond      *sync.Cond
	token     *oauth2.Token
	computing bool
}

// New builds a Cache that calls mint to refresh its token.
func New(mint MintFunc) *Cache {
	c := &Cache{mint: mint}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Get returns a valid bearer token, minting or waiting for a mint as
// needed. Every shipper worker calls this before each delivery attempt
// (spec §4.5 step 1).
func (c *Cache) Get(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	for {
		if c.computing {
			c.cond.Wait()
			continue
		}
		if c.token != nil && time.Until(c.token.Expiry) >= RefreshThreshold {
			tok := c.token
			c.mu.Unlock()
			return tok, nil
		}

		c.computing = true
		c.mu.Unlock()

		tok, err := c.mint(ctx)

		c.mu.Lock()
		c.computing = false
		if err != nil {
			c.cond.Broadcast()
			c.mu.Unlock()
			return nil, &linehaulerr.TokenRefreshError{Err: err}
		}
		c.token = tok
		c.cond.Broadcast()
		c.mu.Unlock()
		return tok, nil
	}
}

// Invalidate discards the cached token, forcing the next Get to mint a
// fresh one. Called after the warehouse API rejects a token with 401/403
// (spec §4.5 step 3).
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}
