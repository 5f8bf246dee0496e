package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/ticket-notifications/internal/domain"
)

type stubProfiles struct {
	profiles map[string]*domain.UserProfile
	getErr   error
	gets     int
	upserts  int
}

func (s *stubProfiles) Get(_ context.Context, userID string) (*domain.UserProfile, error) {
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *stubProfiles) Upsert(_ context.Context, profile *domain.UserProfile) error {
	s.upserts++
	cp := *profile
	s.profiles[profile.UserID] = &cp
	return nil
}

func newCache(t *testing.T, base ProfileRepository) (ProfileRepository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCachedProfileRepository(base, client, time.Minute, zaptest.NewLogger(t)), mr
}

func TestCachedProfileMissThenHit(t *testing.T) {
	base := &stubProfiles{profiles: map[string]*domain.UserProfile{
		"u1": {UserID: "u1", PhoneNumber: "+15550001", NotificationsEnabled: true},
	}}
	cache, mr := newCache(t, base)
	ctx := context.Background()

	first, err := cache.Get(ctx, "u1")
	require.NoError(t, err)
	second, err := cache.Get(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, "+15550001", first.PhoneNumber)
	assert.Equal(t, first.PhoneNumber, second.PhoneNumber)
	assert.Equal(t, 1, base.gets)

	ttl := mr.TTL(profileCacheKey("u1"))
	assert.True(t, ttl > 0 && ttl <= time.Minute, "unexpected TTL %v", ttl)
}

func TestCachedProfileRemembersMissingProfile(t *testing.T) {
	base := &stubProfiles{profiles: map[string]*domain.UserProfile{}}
	cache, _ := newCache(t, base)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		profile, err := cache.Get(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, profile)
	}
	assert.Equal(t, 1, base.gets)
}

func TestCachedProfileUpsertEvicts(t *testing.T) {
	base := &stubProfiles{profiles: map[string]*domain.UserProfile{
		"u1": {UserID: "u1", PhoneNumber: "+15550001", NotificationsEnabled: true},
	}}
	cache, mr := newCache(t, base)
	ctx := context.Background()

	_, err := cache.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, mr.Exists(profileCacheKey("u1")))

	require.NoError(t, cache.Upsert(ctx, &domain.UserProfile{UserID: "u1", PhoneNumber: "+15550002"}))
	assert.False(t, mr.Exists(profileCacheKey("u1")))

	profile, err := cache.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "+15550002", profile.PhoneNumber)
	assert.False(t, profile.NotificationsEnabled)
}

func TestCachedProfileDoesNotCacheErrors(t *testing.T) {
	boom := errors.New("db down")
	base := &stubProfiles{profiles: map[string]*domain.UserProfile{}, getErr: boom}
	cache, mr := newCache(t, base)

	_, err := cache.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(profileCacheKey("u1")))
}

func TestCachedProfileFallsBackWhenRedisDown(t *testing.T) {
	base := &stubProfiles{profiles: map[string]*domain.UserProfile{
		"u1": {UserID: "u1", PhoneNumber: "+15550001", NotificationsEnabled: true},
	}}
	cache, mr := newCache(t, base)
	mr.Close()

	profile, err := cache.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "+15550001", profile.PhoneNumber)
}
