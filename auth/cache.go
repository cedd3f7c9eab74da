package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// CachedAuthenticator caches successful Validate results with a TTL so the
// per-message session check does not hit the identity provider every time.
// Login, Register, and Logout pass through; Logout also drops the cached
// entry.
type CachedAuthenticator struct {
	inner Authenticator
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCachedAuthenticator wraps inner with a session cache.
func NewCachedAuthenticator(inner Authenticator, ttl time.Duration) (*CachedAuthenticator, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &CachedAuthenticator{inner: inner, cache: cache, ttl: ttl}, nil
}

func (c *CachedAuthenticator) Login(ctx context.Context, identifier, secret string) (string, error) {
	return c.inner.Login(ctx, identifier, secret)
}

func (c *CachedAuthenticator) Register(ctx context.Context, name, email, secret string) (Identity, error) {
	return c.inner.Register(ctx, name, email, secret)
}

func (c *CachedAuthenticator) Validate(ctx context.Context, token string) (Identity, error) {
	if cached, ok := c.cache.Get(token); ok {
		if id, ok := cached.(Identity); ok {
			return id, nil
		}
	}

	id, err := c.inner.Validate(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	c.cache.SetWithTTL(token, id, 1, c.ttl)
	return id, nil
}

func (c *CachedAuthenticator) Logout(ctx context.Context, token string) error {
	c.cache.Del(token)
	return c.inner.Logout(ctx, token)
}

// Wait flushes pending cache writes. Intended for tests.
func (c *CachedAuthenticator) Wait() {
	c.cache.Wait()
}
