package database

import (
	"context"
	"fmt"

	"pricewatch/internal/shared/config"
	"pricewatch/pkg/cache"
	"pricewatch/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// DB holds the service's backing store connections
type DB struct {
	Redis  *redis.Client
	logger *logger.Logger
}

// InitDB initializes the Redis connection. With Redis disabled it returns a
// DB without a client; callers fall back to in-process storage.
func InitDB(cfg *config.Config, l *logger.Logger) (*DB, error) {
	if l == nil {
		l = logger.GetDefault()
	}
	if !cfg.Redis.Enabled {
		l.Warn("Redis disabled, sessions and probe results stay in memory")
		return &DB{logger: l}, nil
	}

	rdb, err := initRedis(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	l.Info("Redis connected", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)

	return &DB{Redis: rdb, logger: l}, nil
}

// initRedis initializes Redis connection
func initRedis(cfg *config.Config) (*redis.Client, error) {
	redisCfg := cache.DefaultConfig(cfg.Redis.Addr)
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB

	return cache.Connect(context.Background(), redisCfg)
}

// Close closes all connections
func (db *DB) Close() error {
	if db.Redis == nil {
		return nil
	}
	if err := db.Redis.Close(); err != nil {
		return fmt.Errorf("failed to close Redis: %w", err)
	}
	db.logger.Info("Redis connection closed")
	return nil
}

// HealthCheck pings every configured connection
func (db *DB) HealthCheck(ctx context.Context) error {
	if db.Redis != nil {
		if err := db.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}
	return nil
}

// GetRedisClient returns the Redis client, nil when Redis is disabled
func (db *DB) GetRedisClient() *redis.Client {
	return db.Redis
}
