package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/magnusohlin/numba/internal/app"
	"github.com/magnusohlin/numba/internal/domain"
)

// ResultsCache caches the recent-results listing with TTL to avoid repeated
// archive reads. Single results are not cached; they are immutable and cheap.
type ResultsCache struct {
	reader app.ResultReader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[int]cachedResults
	// version is bumped on every invalidation; a fill that started under an
	// older version does not store its listing.
	version uint64
}

type cachedResults struct {
	results   []domain.GameResult
	expiresAt time.Time
}

func NewResultsCache(reader app.ResultReader, ttl time.Duration) *ResultsCache {
	return &ResultsCache{
		reader: reader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int]cachedResults),
	}
}

func (c *ResultsCache) RecentResults(ctx context.Context, limit int) ([]domain.GameResult, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[limit]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.results, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(strconv.Itoa(limit), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[limit]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.results, nil
		}
		version := c.version
		c.mu.RUnlock()

		results, err := c.reader.RecentResults(ctx, limit)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.version == version {
			c.cache[limit] = cachedResults{
				results:   results,
				expiresAt: now.Add(c.ttlWithJitter()),
			}
		}
		c.mu.Unlock()
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.GameResult), nil
}

func (c *ResultsCache) Result(ctx context.Context, id string) (domain.GameResult, error) {
	return c.reader.Result(ctx, id)
}

// RecordResult drops every cached listing; wired as a result sink so a
// finished game shows up immediately.
func (c *ResultsCache) RecordResult(_ context.Context, _ domain.GameResult) error {
	c.mu.Lock()
	c.cache = make(map[int]cachedResults)
	c.version++
	c.mu.Unlock()
	return nil
}

func (c *ResultsCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
