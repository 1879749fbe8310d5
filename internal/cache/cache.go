/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based cache for calling point lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultCallingPointsTTL bounds how stale a cached calling point list can be.
const DefaultCallingPointsTTL = 2 * time.Minute

// KeyCallingPoints prefixes cached calling point lists.
const KeyCallingPoints = "departureboard:cache:calling_points:" // + service_id

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CallingPointsTTL time.Duration

	// DisableOnError turns the cache off after the first Redis error.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:        "localhost:6379",
		CallingPointsTTL: DefaultCallingPointsTTL,
		DisableOnError:   true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
// A nil *Cache is valid and never hits.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New creates a new cache instance. An unreachable Redis is not an error;
// the cache starts disabled instead.
func New(cfg Config, logger zerolog.Logger) *Cache {
	if cfg.CallingPointsTTL <= 0 {
		cfg.CallingPointsTTL = DefaultCallingPointsTTL
	}
	logger = logger.With().Str("component", "cache").Logger()

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		_ = client.Close()
		return &Cache{logger: logger, config: cfg, disabled: true}
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{client: client, logger: logger, config: cfg}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c != nil && c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

func (c *Cache) handleError(err error, operation string) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// GetCallingPoints retrieves the cached calling points of a service.
func (c *Cache) GetCallingPoints(ctx context.Context, serviceID string) ([]string, bool) {
	var names []string
	found, err := c.get(ctx, KeyCallingPoints+serviceID, &names)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("service_id", serviceID).Int("count", len(names)).Msg("calling points cache hit")
	return names, true
}

// SetCallingPoints caches the calling points of a service.
func (c *Cache) SetCallingPoints(ctx context.Context, serviceID string, names []string) error {
	if names == nil {
		names = []string{}
	}
	return c.set(ctx, KeyCallingPoints+serviceID, names, c.config.CallingPointsTTL)
}
