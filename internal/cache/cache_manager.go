package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// CacheManager manages the per-domain cache helpers
type CacheManager struct {
	Fast   *CacheHelper
	Upload *CacheHelper
	User   *CacheHelper

	client *redis.Client
}

// NewCacheManager creates cache manager with all cache helpers. A nil client
// yields a manager whose helpers no-op on writes and miss on reads.
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		Fast:   NewCacheHelper(client, FastCacheConfig.Prefix),
		Upload: NewCacheHelper(client, UploadCacheConfig.Prefix),
		User:   NewCacheHelper(client, UserCacheConfig.Prefix),
		client: client,
	}
}

func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return ErrCacheNotAvailable
	}
	return cm.client.Ping(ctx).Err()
}

// InvalidateUpload drops all cached state for one upload
func (cm *CacheManager) InvalidateUpload(ctx context.Context, uploadID uint) {
	SafeDelete(ctx, cm.Upload, fmt.Sprintf("id:%d", uploadID))
}

// InvalidateUser drops all cached state for one user
func (cm *CacheManager) InvalidateUser(ctx context.Context, userID uint) {
	SafeDelete(ctx, cm.User, fmt.Sprintf("id:%d", userID))
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}
