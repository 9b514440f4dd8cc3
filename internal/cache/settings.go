package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const settingsKey = "preipo:platform_settings"

// SettingsCache keeps platform settings in a Redis hash with a short TTL.
type SettingsCache struct {
	logger *slog.Logger
	client redis.UniversalClient
	ttl    time.Duration
}

func NewSettingsCache(logger *slog.Logger, client redis.UniversalClient, ttl time.Duration) *SettingsCache {
	return &SettingsCache{logger: logger, client: client, ttl: ttl}
}

// Load reports ok=false on a miss.
func (c *SettingsCache) Load(ctx context.Context) (map[string]string, bool, error) {
	values, err := c.client.HGetAll(ctx, settingsKey).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read settings from redis: %w", err)
	}
	if len(values) == 0 {
		return nil, false, nil
	}
	return values, true, nil
}

// Store replaces the cached hash atomically.
func (c *SettingsCache) Store(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = v
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, settingsKey)
		pipe.HSet(ctx, settingsKey, fields)
		pipe.Expire(ctx, settingsKey, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write settings to redis: %w", err)
	}

	c.logger.Debug("Platform settings cached", "keys", len(values), "ttl", c.ttl.String())
	return nil
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}
