// File: database/redis.go

package database

import (
	"context"
	"time"

	"github.com/openworkshop/owapi/config"
	"github.com/openworkshop/owapi/shared/zaplogger"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis connects to Redis and pings it once.
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	zaplogger.Info(config.SingleLine)
	zaplogger.Info("Connecting to Redis")

	redisOpts, err := redis.ParseURL(cfg.RedisUrl)
	if err != nil {
		return nil, err
	}
	redisClient := redis.NewClient(redisOpts)

	// Check Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		return nil, err
	}

	zaplogger.Info("  * connected")

	return redisClient, nil
}
