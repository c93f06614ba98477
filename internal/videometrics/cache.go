package videometrics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/R3E-Network/submission_review/internal/domain/engagement"
	"github.com/R3E-Network/submission_review/internal/logging"
)

// kv is the subset of *redis.Client the cache needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedProvider is a read-through Redis cache in front of another Provider.
// Cache failures degrade to direct fetches.
type CachedProvider struct {
	next Provider
	rdb  kv
	ttl  time.Duration
	log  *logging.Logger
}

// NewCachedProvider caches results of next for ttl.
func NewCachedProvider(next Provider, rdb *redis.Client, ttl time.Duration, log *logging.Logger) *CachedProvider {
	return newCachedProvider(next, rdb, ttl, log)
}

func newCachedProvider(next Provider, rdb kv, ttl time.Duration, log *logging.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = logging.NewDefault("videometrics-cache")
	}
	return &CachedProvider{next: next, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(videoID string) string { return "videometrics:" + videoID }

func (c *CachedProvider) FetchVideoMetrics(ctx context.Context, videoID string) (engagement.Metrics, error) {
	key := cacheKey(videoID)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var m engagement.Metrics
		if jsonErr := json.Unmarshal(raw, &m); jsonErr == nil {
			return m, nil
		}
		c.log.WithField("video_id", videoID).Warn("discarding corrupt cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.WithError(err).WithField("video_id", videoID).Warn("metrics cache read failed")
	}

	m, err := c.next.FetchVideoMetrics(ctx, videoID)
	if err != nil {
		return engagement.Metrics{}, err
	}

	encoded, _ := json.Marshal(m)
	if err := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("video_id", videoID).Warn("metrics cache write failed")
	}
	return m, nil
}
