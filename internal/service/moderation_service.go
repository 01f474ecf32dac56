package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/immxrtalbeast/debatehall/lib/logger/sl"
)

type onlineLister interface {
	List(ctx context.Context, sessionID uuid.UUID) ([]domain.OnlineParticipant, error)
	Remove(ctx context.Context, sessionID uuid.UUID, actor domain.Principal) error
}

type ModerationService struct {
	repos     repository.Repositories
	locks     *SessionLocks
	presence  onlineLister
	notifier  Notifier
	publisher Publisher
	settings  Settings
	log       *slog.Logger
	now       func() time.Time
}

func NewModerationService(
	repos repository.Repositories,
	locks *SessionLocks,
	presence onlineLister,
	notifier Notifier,
	publisher Publisher,
	settings Settings,
	log *slog.Logger,
) *ModerationService {
	if log == nil {
		log = slog.Default()
	}
	if locks == nil {
		locks = NewSessionLocks()
	}
	return &ModerationService{
		repos:     repos,
		locks:     locks,
		presence:  presence,
		notifier:  notifier,
		publisher: publisher,
		settings:  settings,
		log:       log,
		now:       utcNow,
	}
}

func (s *ModerationService) Mute(ctx context.Context, actor domain.Principal, sessionID, targetID uuid.UUID, reason string) (*domain.Participation, error) {
	return s.apply(ctx, "service.moderation.mute", actor, sessionID, targetID, domain.ActionMute, reason, func(p *domain.Participation) {
		p.IsMuted = true
	})
}

func (s *ModerationService) Unmute(ctx context.Context, actor domain.Principal, sessionID, targetID uuid.UUID) (*domain.Participation, error) {
	return s.apply(ctx, "service.moderation.unmute", actor, sessionID, targetID, domain.ActionUnmute, "", func(p *domain.Participation) {
		p.IsMuted = false
	})
}

// Warn increments the warning counter. With auto-mute configured, reaching
// the threshold also mutes the target.
func (s *ModerationService) Warn(ctx context.Context, actor domain.Principal, sessionID, targetID uuid.UUID, reason string) (*domain.Participation, error) {
	return s.apply(ctx, "service.moderation.warn", actor, sessionID, targetID, domain.ActionWarn, reason, func(p *domain.Participation) {
		p.WarningsCount++
		if s.settings.AutoMuteWarnings > 0 && p.WarningsCount >= s.settings.AutoMuteWarnings {
			p.IsMuted = true
		}
	})
}

// Remove soft-removes the target, drops it from the online set and closes its
// sockets in the session.
func (s *ModerationService) Remove(ctx context.Context, actor domain.Principal, sessionID, targetID uuid.UUID, reason string) (*domain.Participation, error) {
	now := s.now()
	return s.apply(ctx, "service.moderation.remove", actor, sessionID, targetID, domain.ActionRemove, reason, func(p *domain.Participation) {
		p.RemovedAt = &now
	})
}

func (s *ModerationService) ListActions(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) ([]*domain.ModerationAction, error) {
	const op = "service.moderation.list"

	session, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !canManage(session, actor) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotModerator)
	}
	actions, err := s.repos.Moderation.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return actions, nil
}

func (s *ModerationService) apply(
	ctx context.Context,
	op string,
	actor domain.Principal,
	sessionID, targetID uuid.UUID,
	action domain.ModerationActionType,
	reason string,
	mutate func(p *domain.Participation),
) (*domain.Participation, error) {
	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID.String()),
		slog.String("target_id", targetID.String()),
	)

	p, err := func() (*domain.Participation, error) {
		unlock := s.locks.Lock(sessionID)
		defer unlock()

		session, err := s.repos.Sessions.GetByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if !canManage(session, actor) {
			return nil, domain.ErrNotModerator
		}
		if session.IsModerator(targetID) {
			return nil, fmt.Errorf("%w: the moderator cannot be moderated", domain.ErrValidation)
		}
		if _, err := s.repos.Users.GetByID(ctx, targetID); err != nil {
			return nil, err
		}

		p, err := s.repos.Participations.Get(ctx, sessionID, targetID)
		if err != nil {
			if !errors.Is(err, repository.ErrParticipationNotFound) {
				return nil, err
			}
			p, err = domain.NewParticipation(sessionID, targetID, domain.RoleViewer, "", s.now())
			if err != nil {
				return nil, err
			}
		}
		mutate(p)
		if err := s.repos.Participations.Upsert(ctx, p); err != nil {
			return nil, err
		}

		record := domain.NewModerationAction(sessionID, actor.UserID, &targetID, action, reason)
		record.CreatedAt = s.now()
		if err := s.repos.Moderation.Create(ctx, record); err != nil {
			return nil, err
		}
		return p, nil
	}()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("moderation action applied",
		slog.String("action", string(action)),
		slog.Bool("muted", p.IsMuted),
		slog.Int("warnings", p.WarningsCount),
	)

	target, err := s.repos.Users.GetByID(ctx, targetID)
	if err != nil {
		target = &domain.User{ID: targetID, Username: targetID.String()}
	}

	if action == domain.ActionRemove {
		s.disconnect(ctx, sessionID, target)
	}
	s.notifyTarget(ctx, actor, sessionID, target, action, reason)
	s.broadcast(ctx, actor, sessionID, target, action, reason, p.WarningsCount)
	return p, nil
}

func (s *ModerationService) disconnect(ctx context.Context, sessionID uuid.UUID, target *domain.User) {
	if s.presence != nil {
		principal := domain.Principal{UserID: target.ID, Username: target.Username, Role: target.Role}
		if err := s.presence.Remove(ctx, sessionID, principal); err != nil {
			s.log.Warn("failed to drop removed user from presence", sl.Err(err))
		}
	}
	if s.publisher != nil {
		s.publisher.Disconnect(sessionID, target.ID)
	}
}

func (s *ModerationService) notifyTarget(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, target *domain.User, action domain.ModerationActionType, reason string) {
	if s.notifier == nil {
		return
	}
	priority := domain.PriorityNormal
	if action == domain.ActionMute || action == domain.ActionRemove {
		priority = domain.PriorityHigh
	}
	message := fmt.Sprintf("The moderator applied %q to you", action)
	if reason != "" {
		message += ": " + reason
	}
	sender := actor.UserID
	s.notifier.Notify(ctx, []uuid.UUID{target.ID}, domain.NotificationTemplate{
		SenderID:  &sender,
		SessionID: &sessionID,
		Type:      domain.NotifyModerationAction,
		Title:     "Moderation action",
		Message:   message,
		Priority:  priority,
	})
}

func (s *ModerationService) broadcast(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, target *domain.User, action domain.ModerationActionType, reason string, warnings int) {
	if s.publisher == nil {
		return
	}
	var online []domain.OnlineParticipant
	if s.presence != nil {
		list, err := s.presence.List(ctx, sessionID)
		if err != nil {
			s.log.Warn("failed to list online participants", sl.Err(err))
		}
		online = list
	}
	event := domain.NewModerationEvent(action, target, actor.Username, reason, warnings, online)
	if err := s.publisher.Broadcast(sessionID, event); err != nil {
		s.log.Debug("moderation broadcast incomplete", sl.Err(err))
	}
}
