package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/virtulab/virtulab-api/internal/models"
	"github.com/virtulab/virtulab-api/pkg/jobs"
)

type fakeNotificationRepo struct {
	mu       sync.Mutex
	inserted []*models.Notification
	read     [][2]string
}

func (r *fakeNotificationRepo) Insert(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = append(r.inserted, n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.inserted {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, len(out), nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.read = append(r.read, [2]string{id, userID})
	return nil
}

func (r *fakeNotificationRepo) insertedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inserted)
}

func TestNotificationSendDeliversThroughQueue(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, jobs.QueueConfig{Workers: 1}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Send(context.Background(), "student-1", models.NotificationSimulationReady,
		"Your experiment is ready", "Go run it", models.JSONMap{"simulation_id": "sim-1"}, "/simulations/sim-1")

	require.Eventually(t, func() bool { return repo.insertedCount() == 1 }, time.Second, 5*time.Millisecond)

	repo.mu.Lock()
	delivered := repo.inserted[0]
	repo.mu.Unlock()
	require.NotEmpty(t, delivered.ID)
	require.Equal(t, "student-1", delivered.UserID)
	require.Equal(t, models.NotificationSimulationReady, delivered.Type)
	require.False(t, delivered.CreatedAt.IsZero())
}

func TestNotificationSendBeforeStartIsDropped(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, jobs.QueueConfig{}, nil)

	// Must not block or panic; the notification is logged and dropped.
	svc.Send(context.Background(), "student-1", models.NotificationSimulationReady, "t", "m", nil, "")
	require.Equal(t, 0, repo.insertedCount())
}

func TestNotificationListClampsPagination(t *testing.T) {
	repo := &fakeNotificationRepo{}
	repo.inserted = append(repo.inserted, &models.Notification{ID: "n-1", UserID: "student-1"})
	svc := NewNotificationService(repo, jobs.QueueConfig{}, nil)

	notifications, pagination, err := svc.List(context.Background(), "student-1", false, 0, -5)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, 1, pagination.Page)
	require.Equal(t, 20, pagination.PageSize)
	require.Equal(t, 1, pagination.TotalCount)
}

func TestNotificationMarkRead(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, jobs.QueueConfig{}, nil)

	require.NoError(t, svc.MarkRead(context.Background(), "n-1", "student-1"))
	require.Equal(t, [2]string{"n-1", "student-1"}, repo.read[0])
}
