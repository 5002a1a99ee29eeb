package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/virtulab/virtulab-api/internal/models"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
)

type leaderboardRepo interface {
	TopStudents(ctx context.Context, level, limit int) ([]models.LeaderboardEntry, error)
}

// LeaderboardCache fronts the leaderboard aggregate query. Exported so the
// composition root can pass an untyped nil when Redis is disabled.
type LeaderboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// LeaderboardService ranks students by cumulative game score, with a short
// lived cache in front of the aggregate query.
type LeaderboardService struct {
	repo         leaderboardRepo
	cache        LeaderboardCache
	cacheTTL     time.Duration
	defaultLimit int
	logger       *zap.Logger
}

// NewLeaderboardService constructs LeaderboardService.
func NewLeaderboardService(repo leaderboardRepo, cache LeaderboardCache, cacheTTL time.Duration, defaultLimit int, logger *zap.Logger) *LeaderboardService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{repo: repo, cache: cache, cacheTTL: cacheTTL, defaultLimit: defaultLimit, logger: logger}
}

// Top returns the ranked leaderboard, optionally filtered by student level.
func (s *LeaderboardService) Top(ctx context.Context, level, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = s.defaultLimit
	}
	if level < 0 || level > 5 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "level must be between 1 and 5")
	}

	key := fmt.Sprintf("leaderboard:%d:%d", level, limit)
	if s.cache != nil {
		var cached []models.LeaderboardEntry
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	entries, err := s.repo.TopStudents(ctx, level, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard")
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, entries, s.cacheTTL); err != nil {
			s.logger.Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}
