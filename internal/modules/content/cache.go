package content

import (
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/Denny519/security-bot/internal/moderation"
	"github.com/Denny519/security-bot/internal/utils"
)

const cacheTTL = 5 * time.Minute

// resultCache memoizes text-analysis results per (user, text hash) so
// identical resubmissions within the TTL skip the pattern scan. Attachment
// findings are never cached.
type resultCache struct {
	mu      sync.Mutex
	clock   utils.Clock
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result   moderation.DetectionResult
	storedAt time.Time
}

func newResultCache() *resultCache {
	return &resultCache{
		clock:   utils.RealClock(),
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(userID, text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return userID + ":" + strconv.FormatUint(h.Sum64(), 16)
}

func (c *resultCache) get(userID, text string) (moderation.DetectionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(userID, text)
	entry, ok := c.entries[key]
	if !ok {
		return moderation.DetectionResult{}, false
	}
	if c.clock.Now().Sub(entry.storedAt) > cacheTTL {
		delete(c.entries, key)
		return moderation.DetectionResult{}, false
	}
	return entry.result, true
}

func (c *resultCache) put(userID, text string, result moderation.DetectionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(userID, text)] = cacheEntry{result: result, storedAt: c.clock.Now()}
}

func (c *resultCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) > cacheTTL {
			delete(c.entries, key)
		}
	}
}
