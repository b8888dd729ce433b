package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// resultCache keeps recent scores so a resubmitted answer gets the same score.
type resultCache struct {
	entries map[string]cacheEntry
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	result    Result
	expiresAt time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(in Input) string {
	h := sha256.New()
	h.Write([]byte(in.PositionName))
	h.Write([]byte{0})
	h.Write([]byte(in.Question))
	h.Write([]byte{0})
	h.Write([]byte(in.Answer))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *resultCache) get(key string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		return Result{}, false
	}
	return entry.result, true
}

func (c *resultCache) set(key string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{result: result, expiresAt: c.now().Add(c.ttl)}
}

// sweep drops expired entries and returns how many were removed.
func (c *resultCache) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *resultCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
