// Package cache keeps building configurations in Redis so the intake path does
// not hit the database for every inbound message. The cache is best-effort:
// any Redis failure falls through to the loader.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/condohub/condo-backend/internal/domain"
)

// DefaultTTL is used when BuildingCache.TTL is unset.
const DefaultTTL = 5 * time.Minute

const keyPrefix = "building:config:"

// Loader reads a building configuration from the source of truth.
type Loader func(ctx context.Context, id string) (domain.BuildingConfig, error)

// BuildingCache is a read-through cache for domain.BuildingConfig. A nil
// Client disables caching.
type BuildingCache struct {
	Client *redis.Client
	Load   Loader
	TTL    time.Duration
	Logger *zerolog.Logger
}

// NewBuildingCache returns a cache over client that falls back to load.
func NewBuildingCache(client *redis.Client, load Loader, ttl time.Duration) *BuildingCache {
	return &BuildingCache{Client: client, Load: load, TTL: ttl}
}

// Get returns the configuration for id, from Redis when present.
func (c *BuildingCache) Get(ctx context.Context, id string) (domain.BuildingConfig, error) {
	if c.Client == nil {
		return c.Load(ctx, id)
	}

	raw, err := c.Client.Get(ctx, keyPrefix+id).Bytes()
	switch {
	case err == nil:
		var cfg domain.BuildingConfig
		if jerr := json.Unmarshal(raw, &cfg); jerr == nil {
			return cfg, nil
		}
		c.logger().Warn().Str("building_id", id).Msg("discarding unreadable cached building config")
	case !errors.Is(err, redis.Nil):
		c.logger().Warn().Err(err).Str("building_id", id).Msg("building cache read failed")
	}

	cfg, err := c.Load(ctx, id)
	if err != nil {
		return domain.BuildingConfig{}, err
	}
	if b, jerr := json.Marshal(cfg); jerr == nil {
		if serr := c.Client.Set(ctx, keyPrefix+id, b, c.ttl()).Err(); serr != nil {
			c.logger().Warn().Err(serr).Str("building_id", id).Msg("building cache write failed")
		}
	}
	return cfg, nil
}

// Invalidate drops the cached configuration for id.
func (c *BuildingCache) Invalidate(ctx context.Context, id string) error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Del(ctx, keyPrefix+id).Err()
}

func (c *BuildingCache) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return DefaultTTL
}

func (c *BuildingCache) logger() *zerolog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return &log.Logger
}
