package wazuh

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expirySkew is subtracted from the token's own exp claim so a cached
// token is never handed out moments before the manager rejects it.
const expirySkew = 30 * time.Second

type tokenCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func newTokenCache(ttl time.Duration) *tokenCache {
	return &tokenCache{
		ttl: ttl,
		now: time.Now,
	}
}

func (tc *tokenCache) Get() (string, bool) {
	if tc.ttl <= 0 {
		return "", false
	}

	tc.mu.RLock()
	defer tc.mu.RUnlock()

	if tc.token == "" || !tc.now().Before(tc.expiresAt) {
		return "", false
	}
	return tc.token, true
}

func (tc *tokenCache) Set(token string) {
	if tc.ttl <= 0 {
		return
	}

	now := tc.now()
	expiresAt := now.Add(tc.ttl)
	if exp, ok := tokenExpiry(token); ok {
		if limit := exp.Add(-expirySkew); limit.Before(expiresAt) {
			expiresAt = limit
		}
	}
	if !now.Before(expiresAt) {
		return
	}

	tc.mu.Lock()
	tc.token = token
	tc.expiresAt = expiresAt
	tc.mu.Unlock()
}

func (tc *tokenCache) Clear() {
	tc.mu.Lock()
	tc.token = ""
	tc.expiresAt = time.Time{}
	tc.mu.Unlock()
}

// tokenExpiry reads the exp claim without verifying the signature; the
// manager is the only party that can verify it.
func tokenExpiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
