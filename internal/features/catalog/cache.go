package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go-reporting/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const entityCacheKey = "catalog:entities"

// NewRedisClient connects to Redis when REDIS_ADDR is configured. A nil client
// disables the catalog cache and every read goes straight to the registry.
func NewRedisClient(lc fx.Lifecycle, cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}

// entityCache is a read-through cache over the registry's entity listing. It is
// invalidated only by an explicit catalog-changed event, never by data
// mutation: the whitelist is static per process, so row writes can't affect it.
type entityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (c *entityCache) get(ctx context.Context) ([]EntityDescriptor, bool) {
	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, entityCacheKey).Bytes()
	if errors.Is(err, redis.Nil) || err != nil {
		return nil, false
	}
	var entities []EntityDescriptor
	if err := json.Unmarshal(raw, &entities); err != nil {
		return nil, false
	}
	return entities, true
}

func (c *entityCache) set(ctx context.Context, entities []EntityDescriptor) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(entities)
	if err != nil {
		return
	}
	// Best effort; a failed set only costs the next reader a registry walk.
	c.client.Set(ctx, entityCacheKey, raw, c.ttl)
}

func (c *entityCache) invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, entityCacheKey).Err()
}
