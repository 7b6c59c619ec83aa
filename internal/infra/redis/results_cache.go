package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/magnusohlin/numba/internal/app"
	"github.com/magnusohlin/numba/internal/domain"
)

// ResultsCache caches recent-result listings in Redis and falls back to the
// archive on a miss. Listings live in one hash so a new result clears them
// with a single DEL:
//
//	HSET numba:results:recent {limit} {json}
type ResultsCache struct {
	client *redis.Client
	reader app.ResultReader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewResultsCache(client *redis.Client, reader app.ResultReader, ttl time.Duration) *ResultsCache {
	return &ResultsCache{
		client: client,
		reader: reader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ResultsCache) RecentResults(ctx context.Context, limit int) ([]domain.GameResult, error) {
	field := strconv.Itoa(limit)
	if results, ok := c.cached(ctx, field); ok {
		return results, nil
	}

	result, err, _ := c.sf.Do(field, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if results, ok := c.cached(ctx, field); ok {
			return results, nil
		}
		return c.fill(ctx, field, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.GameResult), nil
}

// fill reads the archive under WATCH on the version key, so a listing read
// before a concurrent RecordResult is never written back.
func (c *ResultsCache) fill(ctx context.Context, field string, limit int) ([]domain.GameResult, error) {
	var (
		results []domain.GameResult
		readErr error
	)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		results, readErr = c.reader.RecentResults(ctx, limit)
		if readErr != nil {
			return readErr
		}
		raw, err := json.Marshal(results)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, recentKey, field, raw)
			if ttl := c.ttlWithJitter(); ttl > 0 {
				pipe.Expire(ctx, recentKey, ttl)
			}
			return nil
		})
		return err
	}, versionKey)

	if readErr != nil {
		return nil, readErr
	}
	switch {
	case errors.Is(err, redis.TxFailedErr):
		log.Debug().Str("field", field).Msg("results changed during fill, not caching")
	case err != nil:
		log.Warn().Err(err).Msg("failed to cache recent results")
	}
	return results, nil
}

func (c *ResultsCache) Result(ctx context.Context, id string) (domain.GameResult, error) {
	return c.reader.Result(ctx, id)
}

// RecordResult drops the cached listings so the new result is visible.
func (c *ResultsCache) RecordResult(ctx context.Context, _ domain.GameResult) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey)
		pipe.Del(ctx, recentKey)
		return nil
	})
	return err
}

const (
	recentKey  = "numba:results:recent"
	versionKey = "numba:results:version"
)

func (c *ResultsCache) cached(ctx context.Context, field string) ([]domain.GameResult, bool) {
	raw, err := c.client.HGet(ctx, recentKey, field).Bytes()
	if err != nil {
		return nil, false
	}
	var results []domain.GameResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false
	}
	return results, true
}

func (c *ResultsCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
