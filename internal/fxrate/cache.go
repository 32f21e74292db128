package fxrate

import (
	"context"
	"strings"
	"sync"
	"time"
)

// CachedProvider memoizes successful lookups of an upstream provider in memory
// for a bounded time, so rates written by another process (kasactl rates set)
// are picked up once the entry expires. Unavailable results are not cached.
type CachedProvider struct {
	upstream Provider
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
	rates    map[string]cachedRate // "USD|2024-01-15" -> rate
}

type cachedRate struct {
	rate    Rate
	expires time.Time
}

// NewCachedProvider wraps upstream with an in-memory cache whose entries live
// for ttl. A ttl of zero or less passes every lookup through to upstream.
func NewCachedProvider(upstream Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		upstream: upstream,
		ttl:      ttl,
		now:      time.Now,
		rates:    make(map[string]cachedRate),
	}
}

// GetRate returns the cached rate or asks upstream.
func (c *CachedProvider) GetRate(ctx context.Context, currency string, date time.Time) (Rate, error) {
	if c.ttl <= 0 {
		return c.upstream.GetRate(ctx, currency, date)
	}
	key := strings.ToUpper(currency) + "|" + DayKey(date)

	c.mu.RLock()
	entry, ok := c.rates[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) {
		return entry.rate, nil
	}

	rate, err := c.upstream.GetRate(ctx, currency, date)
	if err != nil {
		return Rate{}, err
	}

	c.mu.Lock()
	c.rates[key] = cachedRate{rate: rate, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return rate, nil
}

// Forget drops the cached rate for currency on date.
func (c *CachedProvider) Forget(currency string, date time.Time) {
	c.mu.Lock()
	delete(c.rates, strings.ToUpper(currency)+"|"+DayKey(date))
	c.mu.Unlock()
}
