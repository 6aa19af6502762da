//go:build integration

package cache_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attestor/internal/bridge"
	"attestor/internal/bridge/cache"
	"attestor/internal/registry"
	"attestor/pkg/testutil/containers"
)

type VerifyCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestVerifyCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(VerifyCacheSuite))
}

func (s *VerifyCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *VerifyCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *VerifyCacheSuite) newCache(ttl time.Duration) *cache.VerifyCache {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return cache.New(s.redis.Client, ttl, logger)
}

func (s *VerifyCacheSuite) TestSetAndGetRoundTrip() {
	ctx := context.Background()
	c := s.newCache(time.Minute)

	status := registry.StatusActive
	stored := bridge.VerifyResponse{
		ID:                42,
		SubjectID:         "subj-1001",
		Name:              "Ada Lovelace",
		Valid:             true,
		Status:            &status,
		VerificationLevel: 4,
		Authority:         "did:gov:root",
		OnChain:           true,
	}
	c.Set(ctx, 42, stored)

	var loaded bridge.VerifyResponse
	s.Require().True(c.Get(ctx, 42, &loaded))
	s.Equal(stored.ID, loaded.ID)
	s.Equal(stored.SubjectID, loaded.SubjectID)
	s.True(loaded.Valid)
	s.Require().NotNil(loaded.Status)
	s.Equal(registry.StatusActive, *loaded.Status)
	s.True(loaded.OnChain)
}

func (s *VerifyCacheSuite) TestGetMissesUnknownID() {
	ctx := context.Background()
	c := s.newCache(time.Minute)

	var loaded bridge.VerifyResponse
	s.False(c.Get(ctx, 9999, &loaded))
}

func (s *VerifyCacheSuite) TestInvalidateDropsEntry() {
	ctx := context.Background()
	c := s.newCache(time.Minute)

	c.Set(ctx, 7, bridge.VerifyResponse{ID: 7, Valid: true})

	var loaded bridge.VerifyResponse
	s.Require().True(c.Get(ctx, 7, &loaded))

	c.Invalidate(ctx, 7)
	s.False(c.Get(ctx, 7, &loaded))
}

func (s *VerifyCacheSuite) TestEntriesExpireAfterTTL() {
	ctx := context.Background()
	c := s.newCache(time.Second)

	c.Set(ctx, 11, bridge.VerifyResponse{ID: 11, Valid: true})

	var loaded bridge.VerifyResponse
	s.Require().True(c.Get(ctx, 11, &loaded))

	time.Sleep(1500 * time.Millisecond)
	s.False(c.Get(ctx, 11, &loaded))
}

func (s *VerifyCacheSuite) TestEntriesAreIsolatedByID() {
	ctx := context.Background()
	c := s.newCache(time.Minute)

	c.Set(ctx, 1, bridge.VerifyResponse{ID: 1, Valid: true})
	c.Set(ctx, 2, bridge.VerifyResponse{ID: 2, Valid: false, Reason: bridge.ReasonExpired})

	var first, second bridge.VerifyResponse
	s.Require().True(c.Get(ctx, 1, &first))
	s.Require().True(c.Get(ctx, 2, &second))
	s.True(first.Valid)
	s.False(second.Valid)
	s.Equal(bridge.ReasonExpired, second.Reason)
}
