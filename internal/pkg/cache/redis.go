package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/huddle-chat/huddle/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func NewRedis(cfg *config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", cfg.GetAddr()),
		zap.Int("db", cfg.DB),
	)

	return client, nil
}

// Close closes the Redis connection
func Close(client *redis.Client, logger *zap.Logger) {
	if err := client.Close(); err != nil {
		logger.Error("Error closing Redis connection", zap.Error(err))
	} else {
		logger.Info("Redis connection closed")
	}
}

// Keys shared across the service
const (
	KeyPushTokens    = "push_tokens:%s"         // push_tokens:{userID}, set maintained by the profile subsystem
	KeyUnreadCount   = "notif:unread:%s"        // notif:unread:{userID}
	KeyRateLimitUser = "ratelimit:user:%s"      // ratelimit:user:{userID}
	KeyRateLimitIP   = "ratelimit:ip:%s"        // ratelimit:ip:{ip}
)
