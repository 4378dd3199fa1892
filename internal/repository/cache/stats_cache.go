package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stationhub/internal/domain"
	"go.uber.org/zap"
)

const statsKeyPrefix = "stats:"

// StatsCache keeps computed per-country statistics in redis so dashboard
// polling does not rescan the station maps on every request.
type StatsCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewStatsCache(r *Redis) *StatsCache {
	return &StatsCache{
		client: r.client,
		logger: r.logger,
	}
}

// Get returns the cached statistics for a country ("" for all), or nil on
// a miss. Cache failures degrade to a miss.
func (c *StatsCache) Get(ctx context.Context, country string) *domain.Statistics {
	data, err := c.client.Get(ctx, statsKey(country)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.logger.Warn("Stats cache read failed", zap.Error(err))
		return nil
	}

	var stats domain.Statistics
	if err := json.Unmarshal(data, &stats); err != nil {
		c.logger.Warn("Stats cache entry corrupted", zap.Error(err))
		return nil
	}

	return &stats
}

// Set stores statistics with a TTL. Failures are logged and dropped.
func (c *StatsCache) Set(ctx context.Context, country string, stats *domain.Statistics, ttl time.Duration) {
	data, err := json.Marshal(stats)
	if err != nil {
		c.logger.Warn("Failed to marshal statistics", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, statsKey(country), data, ttl).Err(); err != nil {
		c.logger.Warn("Stats cache write failed", zap.Error(err))
	}
}

func statsKey(country string) string {
	if country == "" {
		return statsKeyPrefix + "all"
	}
	return fmt.Sprintf("%s%s", statsKeyPrefix, country)
}
