package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// DashboardCache holds per-month dashboard counts. Implementations must be
// safe for concurrent use; a cache failure never fails the request.
//
// Get returns the month's generation even on a miss. Set stores counts only
// while that generation is still current, so counts read before an
// Invalidate are never cached after it.
type DashboardCache interface {
	Get(ctx context.Context, teacherID uint, year int, month time.Month) (counts map[string]int64, generation int64, ok bool)
	Set(ctx context.Context, teacherID uint, year int, month time.Month, generation int64, counts map[string]int64)
	Invalidate(ctx context.Context, teacherID uint, year int, month time.Month)
}

// NoDashboardCache is used when Redis is not available.
type NoDashboardCache struct{}

func (NoDashboardCache) Get(context.Context, uint, int, time.Month) (map[string]int64, int64, bool) {
	return nil, 0, false
}
func (NoDashboardCache) Set(context.Context, uint, int, time.Month, int64, map[string]int64) {}
func (NoDashboardCache) Invalidate(context.Context, uint, int, time.Month)                   {}

// generationGrace keeps generation keys alive past any entry they guard.
const generationGrace = time.Hour

// RedisDashboardCache stores counts as JSON under dashboard:<teacher>:<yyyy-mm>
// and bumps dashboard-gen:<teacher>:<yyyy-mm> on every invalidation.
type RedisDashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDashboardCache(client *redis.Client, ttl time.Duration) *RedisDashboardCache {
	return &RedisDashboardCache{client: client, ttl: ttl}
}

func DashboardCacheKey(teacherID uint, year int, month time.Month) string {
	return fmt.Sprintf("dashboard:%d:%04d-%02d", teacherID, year, int(month))
}

func DashboardGenerationKey(teacherID uint, year int, month time.Month) string {
	return fmt.Sprintf("dashboard-gen:%d:%04d-%02d", teacherID, year, int(month))
}

func (c *RedisDashboardCache) Get(ctx context.Context, teacherID uint, year int, month time.Month) (map[string]int64, int64, bool) {
	vals, err := c.client.MGet(ctx,
		DashboardGenerationKey(teacherID, year, month),
		DashboardCacheKey(teacherID, year, month),
	).Result()
	if err != nil {
		logrus.WithError(err).Warn("Dashboard cache read failed")
		// -1 never matches a stored generation, so the following Set is skipped.
		return nil, -1, false
	}

	generation, err := parseGeneration(vals[0])
	if err != nil {
		logrus.WithError(err).Warn("Dashboard cache generation is corrupt, ignoring")
		return nil, -1, false
	}

	raw, ok := vals[1].(string)
	if !ok {
		return nil, generation, false
	}
	var counts map[string]int64
	if err := json.Unmarshal([]byte(raw), &counts); err != nil {
		logrus.WithError(err).Warn("Dashboard cache entry is corrupt, ignoring")
		return nil, generation, false
	}
	return counts, generation, true
}

func (c *RedisDashboardCache) Set(ctx context.Context, teacherID uint, year int, month time.Month, generation int64, counts map[string]int64) {
	if c.ttl <= 0 || generation < 0 {
		return
	}
	raw, err := json.Marshal(counts)
	if err != nil {
		return
	}

	genKey := DashboardGenerationKey(teacherID, year, month)
	key := DashboardCacheKey(teacherID, year, month)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil, errors.Is(err, redis.TxFailedErr):
		// TxFailedErr means an invalidation won the race; nothing to store.
	default:
		logrus.WithError(err).Warn("Dashboard cache write failed")
	}
}

func (c *RedisDashboardCache) Invalidate(ctx context.Context, teacherID uint, year int, month time.Month) {
	genKey := DashboardGenerationKey(teacherID, year, month)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, c.ttl+generationGrace)
		pipe.Del(ctx, DashboardCacheKey(teacherID, year, month))
		return nil
	})
	if err != nil {
		logrus.WithError(err).Warn("Dashboard cache invalidation failed")
	}
}

func parseGeneration(v interface{}) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected generation value %T", v)
	}
	return strconv.ParseInt(s, 10, 64)
}
