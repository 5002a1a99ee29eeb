package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/virtulab/virtulab-api/internal/models"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
)

type fakeLeaderboardRepo struct {
	entries []models.LeaderboardEntry
	err     error
	calls   int
}

func (r *fakeLeaderboardRepo) TopStudents(ctx context.Context, level, limit int) ([]models.LeaderboardEntry, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.entries, nil
}

type memoryCache struct {
	entries map[string][]models.LeaderboardEntry
	getErr  error
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	cached, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*dest.(*[]models.LeaderboardEntry) = cached
	return true, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.entries == nil {
		c.entries = map[string][]models.LeaderboardEntry{}
	}
	c.entries[key] = value.([]models.LeaderboardEntry)
	return nil
}

func TestLeaderboardAssignsRanks(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: []models.LeaderboardEntry{
		{StudentID: "student-1", TotalScore: 420},
		{StudentID: "student-2", TotalScore: 390},
		{StudentID: "student-3", TotalScore: 390},
	}}
	svc := NewLeaderboardService(repo, nil, time.Minute, 10, nil)

	entries, err := svc.Top(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, 2, entries[1].Rank)
	require.Equal(t, 3, entries[2].Rank)
}

func TestLeaderboardCacheRoundTrip(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: []models.LeaderboardEntry{
		{StudentID: "student-1", TotalScore: 420},
	}}
	cache := &memoryCache{}
	svc := NewLeaderboardService(repo, cache, time.Minute, 10, nil)

	first, err := svc.Top(context.Background(), 2, 5)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	second, err := svc.Top(context.Background(), 2, 5)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls, "second call must be served from cache")
	require.Equal(t, first, second)
}

func TestLeaderboardCacheFailureFallsThrough(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: []models.LeaderboardEntry{{StudentID: "student-1"}}}
	svc := NewLeaderboardService(repo, &memoryCache{getErr: errors.New("redis down")}, time.Minute, 10, nil)

	entries, err := svc.Top(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 1, repo.calls)
}

func TestLeaderboardLimitAndLevelValidation(t *testing.T) {
	repo := &fakeLeaderboardRepo{}
	svc := NewLeaderboardService(repo, nil, time.Minute, 10, nil)

	_, err := svc.Top(context.Background(), 9, 10)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	_, err = svc.Top(context.Background(), 0, -1)
	require.NoError(t, err)
	_, err = svc.Top(context.Background(), 0, 500)
	require.NoError(t, err)
}
