package repository

import (
	"context"
	"fmt"

	"github.com/huddle-chat/huddle/internal/pkg/cache"
	"github.com/redis/go-redis/v9"
)

// TokenDirectory exposes the push tokens the profile subsystem maintains
// for each user. This service only ever reads them.
type TokenDirectory interface {
	GetPushTokens(ctx context.Context, userID string) ([]string, error)
}

// RedisTokenDirectory reads the per-user token sets the profile subsystem
// keeps in Redis.
type RedisTokenDirectory struct {
	client *redis.Client
}

func NewRedisTokenDirectory(client *redis.Client) *RedisTokenDirectory {
	return &RedisTokenDirectory{client: client}
}

// GetPushTokens returns the user's registered push tokens; empty when the
// user never enabled push.
func (d *RedisTokenDirectory) GetPushTokens(ctx context.Context, userID string) ([]string, error) {
	key := fmt.Sprintf(cache.KeyPushTokens, userID)

	tokens, err := d.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read push tokens: %w", err)
	}

	return tokens, nil
}
