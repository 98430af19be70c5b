package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/internal/modules/notification/dto"
	notifRepo "codedepartament.ru/sbp/internal/modules/notification/repository"
	"codedepartament.ru/sbp/internal/modules/notification/sender"
	"codedepartament.ru/sbp/internal/worker"
	"codedepartament.ru/sbp/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Notifier is what the domain services call. It never fails the caller:
// errors are logged and dropped.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, message string, entityID *uint)
}

type JobQueue interface {
	Submit(job worker.Job) error
}

type NotificationService interface {
	Notifier
	GetNotifications(ctx context.Context, userID uuid.UUID, q dto.ListQuery) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	Broadcast(ctx context.Context, req dto.BroadcastRequest) (*dto.BroadcastResult, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
	sender      sender.Sender
	queue       JobQueue
}

// NewNotificationService accepts nil redis, sender and queue; the matching channel is then skipped.
func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client, snd sender.Sender, queue JobQueue) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
		sender:      snd,
		queue:       queue,
	}
}

func Channel(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID.String())
}

func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, kind, message string, entityID *uint) {
	// the request may finish before delivery does
	ctx = context.WithoutCancel(ctx)

	n := &entity.Notification{
		UserID:   userID,
		Type:     kind,
		Message:  message,
		EntityID: entityID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		log.Printf("❌ Failed to store notification for %s: %v", userID, err)
		return
	}

	if s.redisClient != nil {
		if payload, err := json.Marshal(n); err == nil {
			if err := s.redisClient.Publish(ctx, Channel(userID), payload).Err(); err != nil {
				log.Printf("⚠️ Failed to publish notification for %s: %v", userID, err)
			}
		}
	}

	if s.sender == nil || s.queue == nil {
		return
	}
	username, err := s.repo.TelegramUsername(ctx, userID)
	if err != nil {
		log.Printf("⚠️ Failed to look up telegram username for %s: %v", userID, err)
		return
	}
	if username == "" {
		return
	}

	err = s.queue.Submit(worker.Job{
		Name: "telegram:" + kind,
		Run: func(ctx context.Context) error {
			return s.sender.Send(ctx, username, message)
		},
	})
	if err != nil {
		log.Printf("⚠️ Telegram delivery for %s not queued: %v", userID, err)
	}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, q dto.ListQuery) ([]entity.Notification, error) {
	if q.Limit == 0 {
		q.Limit = 20
	}
	return s.repo.GetByUserID(ctx, userID, q.Limit, q.Offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	ok, err := s.repo.MarkAsRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Wrap(apperror.ErrNotFound, "notification not found")
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// Broadcast sends text to every username directly and reports per-recipient failures.
func (s *notificationService) Broadcast(ctx context.Context, req dto.BroadcastRequest) (*dto.BroadcastResult, error) {
	if s.sender == nil {
		return nil, apperror.Wrap(apperror.ErrBadRequest, "telegram delivery is not configured")
	}

	res := &dto.BroadcastResult{Sent: []string{}, Failed: map[string]string{}}
	seen := make(map[string]bool, len(req.Usernames))
	for _, raw := range req.Usernames {
		username := entity.NormalizeTelegramUsername(raw)
		if username == "" || seen[username] {
			continue
		}
		seen[username] = true

		if err := s.sender.Send(ctx, username, req.Text); err != nil {
			res.Failed[username] = err.Error()
			continue
		}
		res.Sent = append(res.Sent, username)
	}

	log.Printf("📣 Broadcast finished: %d sent, %d failed", len(res.Sent), len(res.Failed))
	return res, nil
}
