package gigachat

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"promopost/internal/observability/metrics"
	"promopost/internal/resilience/circuitbreaker"
	"promopost/internal/resilience/retry"
)

const (
	// DefaultTokenTTL matches the provider's 30-minute token lifetime.
	DefaultTokenTTL = 30 * time.Minute

	// DefaultCacheCapacity bounds the number of distinct seeds kept.
	// Seed cardinality is expected to be a handful.
	DefaultCacheCapacity = 10
)

// Issuer obtains a fresh access token for a credential seed.
type Issuer interface {
	IssueToken(ctx context.Context, seed string) (Token, error)
}

// TokenCache maps a credential seed to a short-lived access token.
//
// Expiry is lazy: an entry is checked on lookup, never actively evicted. A
// miss or an expired entry triggers a fresh issuance, which overwrites the
// entry. At most one entry exists per seed; when the bounded capacity is
// full, the least-recently-used entry is evicted. Concurrent misses for the
// same seed are collapsed into a single in-flight issuance.
//
// The issuance itself runs under the retry policy, so transient failures at
// the token endpoint never surface to lookups; a lookup either returns a
// valid token or blocks until one is obtained (or the context is cancelled).
// A circuit breaker in front of the endpoint stops the retried calls from
// hammering it while it is failing hard.
type TokenCache struct {
	issuer   Issuer
	ttl      time.Duration
	capacity int
	retryCfg retry.Config
	breaker  *circuitbreaker.CircuitBreaker

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used

	group singleflight.Group

	// now is swappable for TTL tests.
	now func() time.Time
}

type cacheEntry struct {
	seed    string
	token   Token
	expires time.Time
}

// TokenCacheOption customizes a TokenCache.
type TokenCacheOption func(*TokenCache)

// WithTTL overrides the default token TTL.
func WithTTL(ttl time.Duration) TokenCacheOption {
	return func(c *TokenCache) { c.ttl = ttl }
}

// WithCapacity overrides the default seed capacity.
func WithCapacity(n int) TokenCacheOption {
	return func(c *TokenCache) { c.capacity = n }
}

// WithRetryConfig overrides the issuance retry policy.
func WithRetryConfig(cfg retry.Config) TokenCacheOption {
	return func(c *TokenCache) { c.retryCfg = cfg }
}

// WithClock overrides the cache clock. Used by tests.
func WithClock(now func() time.Time) TokenCacheOption {
	return func(c *TokenCache) { c.now = now }
}

// WithCircuitBreaker overrides the token-endpoint circuit breaker.
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) TokenCacheOption {
	return func(c *TokenCache) { c.breaker = cb }
}

// NewTokenCache creates a token cache backed by the given issuer.
func NewTokenCache(issuer Issuer, opts ...TokenCacheOption) *TokenCache {
	c := &TokenCache{
		issuer:   issuer,
		ttl:      DefaultTokenTTL,
		capacity: DefaultCacheCapacity,
		retryCfg: retry.TokenIssueConfig(),
		breaker:  circuitbreaker.New(circuitbreaker.TokenEndpointConfig()),
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns a valid access token for the seed, fetching a new one when
// the cache has no live entry. It never returns an expired token.
func (c *TokenCache) Token(ctx context.Context, seed string) (string, error) {
	if tok, ok := c.lookup(seed); ok {
		metrics.RecordTokenCacheLookup("hit")
		return tok.AccessToken, nil
	}

	v, err, shared := c.group.Do(seed, func() (interface{}, error) {
		// Re-check under singleflight: another caller may have just refreshed.
		if tok, ok := c.lookup(seed); ok {
			return tok, nil
		}
		return c.refresh(ctx, seed)
	})
	if err != nil {
		return "", err
	}
	if shared {
		slog.Debug("token fetch shared between concurrent callers")
	}

	return v.(Token).AccessToken, nil
}

// lookup returns the cached token if present and not expired, updating the
// LRU order on a hit.
func (c *TokenCache) lookup(seed string) (Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[seed]
	if !ok {
		metrics.RecordTokenCacheLookup("miss")
		return Token{}, false
	}

	entry := el.Value.(*cacheEntry)
	if !c.now().Before(entry.expires) {
		metrics.RecordTokenCacheLookup("expired")
		return Token{}, false
	}

	c.order.MoveToFront(el)
	return entry.token, true
}

// refresh issues a fresh token under the retry policy and stores it. Each
// attempt goes through the circuit breaker; while the breaker is open,
// attempts are rejected without reaching the endpoint.
func (c *TokenCache) refresh(ctx context.Context, seed string) (Token, error) {
	tok, err := retry.DoValue(ctx, "gigachat.issue_token", c.retryCfg, func() (Token, error) {
		v, err := c.breaker.Execute(func() (interface{}, error) {
			return c.issuer.IssueToken(ctx, seed)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return Token{}, fmt.Errorf("token endpoint unavailable: %w", err)
			}
			return Token{}, err
		}
		return v.(Token), nil
	})
	if err != nil {
		return Token{}, err
	}

	c.store(seed, tok)
	slog.Info("access token refreshed",
		slog.Time("cache_expiry", c.now().Add(c.ttl)))
	return tok, nil
}

func (c *TokenCache) store(seed string, tok Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[seed]; ok {
		entry := el.Value.(*cacheEntry)
		entry.token = tok
		entry.expires = c.now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			evicted := oldest.Value.(*cacheEntry)
			delete(c.entries, evicted.seed)
			c.order.Remove(oldest)
			slog.Debug("evicted least recently used token cache entry")
		}
	}

	c.entries[seed] = c.order.PushFront(&cacheEntry{
		seed:    seed,
		token:   tok,
		expires: c.now().Add(c.ttl),
	})
}

// Len reports the number of cached seeds.
func (c *TokenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
