package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/relaymail/relaymail/internal/port"
)

// expiryMargin is how much remaining validity a cached token must have to be
// handed out without a refresh.
const expiryMargin = 60 * time.Second

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// TokenCache is the per-identity-tenant bearer token store shared by all
// tenant workers. Reads take a shared lock; refreshes are deduplicated per
// identity tenant via singleflight, so a slow grant for one tenant never
// blocks lookups for another.
type TokenCache struct {
	source port.TokenSource

	mu     sync.RWMutex
	tokens map[string]cachedToken
	group  singleflight.Group

	now func() time.Time
}

func NewTokenCache(source port.TokenSource) *TokenCache {
	return &TokenCache{
		source: source,
		tokens: make(map[string]cachedToken),
		now:    time.Now,
	}
}

// Token returns a usable bearer token for the identity tenant, refreshing
// only when less than the safety margin remains before expiry.
func (c *TokenCache) Token(ctx context.Context, tenantID, clientID, clientSecret string) (string, error) {
	if tok, ok := c.lookup(tenantID); ok {
		return tok, nil
	}

	v, err, _ := c.group.Do(tenantID, func() (any, error) {
		// A concurrent caller may have refreshed while we waited on the
		// flight group.
		if tok, ok := c.lookup(tenantID); ok {
			return tok, nil
		}
		granted, err := c.source.Grant(ctx, tenantID, clientID, clientSecret)
		if err != nil {
			return "", err
		}
		tokenRefreshesTotal.WithLabelValues(tenantID).Inc()
		c.store(tenantID, granted.AccessToken, c.now().Add(granted.ExpiresIn))
		return granted.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *TokenCache) lookup(tenantID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tok, ok := c.tokens[tenantID]
	if !ok || tok.expiresAt.Sub(c.now()) <= expiryMargin {
		return "", false
	}
	return tok.accessToken, true
}

func (c *TokenCache) store(tenantID, accessToken string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[tenantID] = cachedToken{accessToken: accessToken, expiresAt: expiresAt}
}

var _ port.TokenProvider = (*TokenCache)(nil)
