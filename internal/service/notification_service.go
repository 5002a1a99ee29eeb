package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/virtulab/virtulab-api/internal/models"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
	"github.com/virtulab/virtulab-api/pkg/jobs"
)

type notificationRepo interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// NotificationService persists notifications and dispatches them through an
// in-memory worker queue. Delivery is fire-and-forget: a failure is logged
// and retried by the queue, and never propagates to the triggering operation.
type NotificationService struct {
	repo   notificationRepo
	queue  *jobs.Queue
	logger *zap.Logger
	now    func() time.Time
}

// NewNotificationService constructs the service and its dispatch queue.
func NewNotificationService(repo notificationRepo, queueCfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, queueCfg)
	return s
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() { s.queue.Stop() }

// Send enqueues a notification for asynchronous persistence and delivery.
// It never returns an error; enqueue failures are logged and dropped.
func (s *NotificationService) Send(ctx context.Context, userID string, kind models.NotificationType, title, message string, data models.JSONMap, link string) {
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Message:   message,
		Data:      data,
		Link:      link,
		CreatedAt: s.now(),
	}
	if err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: string(kind), Payload: n}); err != nil {
		s.logger.Warn("dropping notification, queue unavailable",
			zap.String("user_id", userID),
			zap.String("type", string(kind)),
			zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(*models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.repo.Insert(ctx, n)
}

// List returns a user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.Notification, *models.Pagination, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	notifications, total, err := s.repo.ListByUser(ctx, userID, unreadOnly, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}
