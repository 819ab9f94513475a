package streaming

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionTTL bounds how long a crashed instance can hold a user's slot.
const sessionTTL = 30 * time.Second

// RedisRegistry implements Registry on a shared redis instance so session
// exclusivity holds across multiple server processes.
type RedisRegistry struct {
	client *redis.Client
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func (r *RedisRegistry) key(userID uint) string {
	return fmt.Sprintf("stream:session:%d", userID)
}

func (r *RedisRegistry) Acquire(ctx context.Context, userID uint) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(userID), "1", sessionTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire session slot: %w", err)
	}
	return ok, nil
}

func (r *RedisRegistry) Touch(ctx context.Context, userID uint) error {
	return r.client.Expire(ctx, r.key(userID), sessionTTL).Err()
}

func (r *RedisRegistry) Release(ctx context.Context, userID uint) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}
