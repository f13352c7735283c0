//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"railalert/internal/subscription/models"
	"railalert/internal/subscription/store"
	"railalert/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *store.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.cache = store.NewRedisCache(s.redis.Client, "test:subs")
}

func (s *RedisCacheSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Health(ctx))
	s.Require().NoError(s.redis.FlushAll(ctx))
}

func (s *RedisCacheSuite) TestAddRemove() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Add(ctx, models.LineNEL, "whatsapp:+652"))
	s.Require().NoError(s.cache.Add(ctx, models.LineNEL, "whatsapp:+651"))
	s.Require().NoError(s.cache.Add(ctx, models.LineNEL, "whatsapp:+651"))

	got, err := s.cache.Recipients(ctx, models.LineNEL)
	s.Require().NoError(err)
	s.Equal([]models.Recipient{"whatsapp:+651", "whatsapp:+652"}, got)

	s.Require().NoError(s.cache.Remove(ctx, models.LineNEL, "whatsapp:+651"))
	s.Require().NoError(s.cache.Remove(ctx, models.LineNEL, "whatsapp:+651"))
	got, err = s.cache.Recipients(ctx, models.LineNEL)
	s.Require().NoError(err)
	s.Equal([]models.Recipient{"whatsapp:+652"}, got)
}

func (s *RedisCacheSuite) TestSnapshotOmitsEmptyLines() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Add(ctx, models.LineEWL, "whatsapp:+651"))
	s.Require().NoError(s.cache.Add(ctx, models.LineCCL, "whatsapp:+652"))
	s.Require().NoError(s.cache.Remove(ctx, models.LineCCL, "whatsapp:+652"))

	snap, err := s.cache.Snapshot(ctx)
	s.Require().NoError(err)
	s.Equal(map[models.LineCode][]models.Recipient{
		models.LineEWL: {"whatsapp:+651"},
	}, snap)
}

func (s *RedisCacheSuite) TestEmptySnapshot() {
	snap, err := s.cache.Snapshot(context.Background())
	s.Require().NoError(err)
	s.Empty(snap)
}

func (s *RedisCacheSuite) TestReplace() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Add(ctx, models.LineNEL, "whatsapp:+65stale"))

	s.Require().NoError(s.cache.Replace(ctx, models.LineNEL, []models.Recipient{"whatsapp:+652", "whatsapp:+651"}))
	got, err := s.cache.Recipients(ctx, models.LineNEL)
	s.Require().NoError(err)
	s.Equal([]models.Recipient{"whatsapp:+651", "whatsapp:+652"}, got)

	s.Require().NoError(s.cache.Replace(ctx, models.LineNEL, []models.Recipient{}))
	snap, err := s.cache.Snapshot(ctx)
	s.Require().NoError(err)
	s.Empty(snap)

	s.Require().NoError(s.cache.Replace(ctx, models.LineDTL, []models.Recipient{"whatsapp:+653"}))
	snap, err = s.cache.Snapshot(ctx)
	s.Require().NoError(err)
	s.Equal(map[models.LineCode][]models.Recipient{models.LineDTL: {"whatsapp:+653"}}, snap)
}
