package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notifications/internal/domain"
)

const profileCachePrefix = "profile:"

// cachedProfile marks a cached miss so users without a profile are not
// re-queried on every dispatch.
type cachedProfile struct {
	Missing bool                `json:"missing,omitempty"`
	Profile *domain.UserProfile `json:"profile,omitempty"`
}

type cachedProfileRepository struct {
	base   ProfileRepository
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProfileRepository wraps base with a Redis read-through cache.
// Redis failures fall back to base; they never fail a read.
func NewCachedProfileRepository(base ProfileRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) ProfileRepository {
	if client == nil || ttl <= 0 {
		return base
	}
	return &cachedProfileRepository{
		base:   base,
		redis:  client,
		ttl:    ttl,
		logger: logger.Named("profile-cache"),
	}
}

func profileCacheKey(userID string) string {
	return profileCachePrefix + userID
}

func (c *cachedProfileRepository) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if entry, ok := c.load(ctx, userID); ok {
		if entry.Missing {
			return nil, nil
		}
		return entry.Profile, nil
	}

	profile, err := c.base.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, userID, cachedProfile{Missing: profile == nil, Profile: profile})
	return profile, nil
}

func (c *cachedProfileRepository) Upsert(ctx context.Context, profile *domain.UserProfile) error {
	if err := c.base.Upsert(ctx, profile); err != nil {
		return err
	}
	if err := c.redis.Del(ctx, profileCacheKey(profile.UserID)).Err(); err != nil {
		c.logger.Warn("evict profile", zap.String("user_id", profile.UserID), zap.Error(err))
	}
	return nil
}

func (c *cachedProfileRepository) load(ctx context.Context, userID string) (cachedProfile, bool) {
	raw, err := c.redis.Get(ctx, profileCacheKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("read profile cache", zap.String("user_id", userID), zap.Error(err))
		}
		return cachedProfile{}, false
	}
	var entry cachedProfile
	if err := json.Unmarshal(raw, &entry); err != nil {
		return cachedProfile{}, false
	}
	return entry, true
}

func (c *cachedProfileRepository) store(ctx context.Context, userID string, entry cachedProfile) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, profileCacheKey(userID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("write profile cache", zap.String("user_id", userID), zap.Error(err))
	}
}
