package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/nohand/ledger"
	"github.com/cppla/nohand/models"
	"github.com/cppla/nohand/observability"
	"github.com/cppla/nohand/streak"
	"github.com/cppla/nohand/utils"
)

const (
	leaderboardCachePrefix = "cache:leaderboard:"
	// leaderboardGenKey is bumped on every write; boards are cached per generation.
	leaderboardGenKey = "cache:leaderboard:gen"
)

// LeaderboardService serves the ranked board, cache-aside over Redis.
// A board computed under an older generation is written to a key nobody reads,
// so a compute racing a write cannot pin a stale board.
type LeaderboardService struct {
	ledger *ledger.Ledger
	rc     *redis.Client
	ttl    time.Duration
}

// NewLeaderboardService creates the service. A nil client disables caching.
func NewLeaderboardService(l *ledger.Ledger, rc *redis.Client, ttl time.Duration) *LeaderboardService {
	return &LeaderboardService{ledger: l, rc: rc, ttl: ttl}
}

// Compute returns the full board. The snapshot across users is best-effort.
func (s *LeaderboardService) Compute(ctx context.Context) ([]streak.Entry, error) {
	started := time.Now()

	key, cacheable := s.cacheKey(ctx)
	if cacheable {
		var cached []streak.Entry
		if utils.CacheGetJSON(ctx, s.rc, key, &cached) {
			observability.ObserveLeaderboard("cache", started)
			return cached, nil
		}
	}

	latest, err := s.ledger.AllUsersLatest(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := streak.ComputeLeaderboard(latest, func(userID uint) ([]models.CheckinRecord, error) {
		return s.ledger.History(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	if cacheable {
		utils.CacheSetJSON(ctx, s.rc, key, entries, s.ttl)
	}
	observability.ObserveLeaderboard("store", started)
	return entries, nil
}

// Invalidate retires the cached board after a write.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s == nil || s.rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	gen, err := s.rc.Incr(ctx, leaderboardGenKey).Result()
	if err != nil {
		utils.L().Warnf("leaderboard invalidate failed: %v", err)
		return
	}
	utils.CacheDelete(ctx, s.rc, leaderboardCachePrefix+strconv.FormatInt(gen-1, 10))
}

// cacheKey returns the key of the current generation. It reports false when
// Redis is absent or the generation cannot be read.
func (s *LeaderboardService) cacheKey(ctx context.Context) (string, bool) {
	if s.rc == nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	gen, err := s.rc.Get(ctx, leaderboardGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		utils.L().Debugf("leaderboard generation read failed: %v", err)
		return "", false
	}
	return leaderboardCachePrefix + strconv.FormatInt(gen, 10), true
}
