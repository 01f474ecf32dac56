package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/immxrtalbeast/debatehall/lib/logger/sl"
)

type NotificationService struct {
	notifications repository.NotificationRepository
	publisher     Publisher
	log           *slog.Logger
	now           func() time.Time
}

func NewNotificationService(notifications repository.NotificationRepository, publisher Publisher, log *slog.Logger) *NotificationService {
	if log == nil {
		log = slog.Default()
	}
	return &NotificationService{
		notifications: notifications,
		publisher:     publisher,
		log:           log,
		now:           utcNow,
	}
}

// Notify stores one notification per recipient and pushes it to any open
// notification socket. Failures are logged per recipient; the number of
// stored notifications is returned.
func (s *NotificationService) Notify(ctx context.Context, recipients []uuid.UUID, tmpl domain.NotificationTemplate) int {
	const op = "service.notification.notify"
	log := s.log.With(slog.String("op", op), slog.String("type", string(tmpl.Type)))

	now := s.now()
	seen := make(map[uuid.UUID]struct{}, len(recipients))
	stored := 0
	for _, recipient := range recipients {
		if recipient == uuid.Nil {
			continue
		}
		if _, dup := seen[recipient]; dup {
			continue
		}
		seen[recipient] = struct{}{}

		n := tmpl.For(recipient, now)
		if err := s.notifications.Create(ctx, n); err != nil {
			log.Warn("failed to store notification", slog.String("recipient", recipient.String()), sl.Err(err))
			continue
		}
		stored++
		s.push(ctx, recipient, domain.NewNotificationEvent(n))
	}

	if stored > 0 {
		log.Debug("notifications stored", slog.Int("count", stored))
	}
	return stored
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*domain.Notification, error) {
	const op = "service.notification.list"

	list, err := s.notifications.ListByRecipient(ctx, userID, unreadOnly, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	const op = "service.notification.unread_count"

	count, err := s.notifications.CountUnread(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// MarkRead marks ids (or everything when ids is empty) as read and pushes the
// new unread count to the user's sockets.
func (s *NotificationService) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	const op = "service.notification.mark_read"

	updated, err := s.notifications.MarkRead(ctx, userID, ids, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.pushUnreadCount(ctx, userID)
	return updated, nil
}

func (s *NotificationService) push(ctx context.Context, userID uuid.UUID, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.SendToUser(userID, event); err != nil {
		s.log.Debug("notification push dropped", slog.String("user_id", userID.String()), sl.Err(err))
	}
	s.pushUnreadCount(ctx, userID)
}

func (s *NotificationService) pushUnreadCount(ctx context.Context, userID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	count, err := s.notifications.CountUnread(ctx, userID, s.now())
	if err != nil {
		s.log.Warn("failed to count unread notifications", slog.String("user_id", userID.String()), sl.Err(err))
		return
	}
	_ = s.publisher.SendToUser(userID, domain.NewUnreadCountEvent(count))
}
