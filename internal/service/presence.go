package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/cache"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/immxrtalbeast/debatehall/lib/logger/sl"
)

const roleModerator = "moderator"

// PresenceService tracks who is connected to a session. The cache is only a
// hint; roles and moderation flags always come from the durable store.
type PresenceService struct {
	cache     PresenceCache
	repos     repository.Repositories
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewPresenceService(presence PresenceCache, repos repository.Repositories, publisher Publisher, log *slog.Logger) *PresenceService {
	if log == nil {
		log = slog.Default()
	}
	return &PresenceService{
		cache:     presence,
		repos:     repos,
		publisher: publisher,
		log:       log,
		now:       utcNow,
	}
}

// Add registers actor as online in the session and returns the role it is
// shown with.
func (s *PresenceService) Add(ctx context.Context, sessionID uuid.UUID, actor domain.Principal) (string, error) {
	const op = "service.presence.add"
	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID.String()),
		slog.String("user_id", actor.UserID.String()),
	)

	session, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if _, err := ensureUser(ctx, s.repos.Users, s.log, actor); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	role, err := s.roleOf(ctx, session, actor.UserID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	entry := cache.PresenceEntry{UserID: actor.UserID, Username: actor.Username, JoinedAt: now}
	if err := s.cache.Add(ctx, sessionID, entry); err != nil {
		log.Warn("presence cache add failed", sl.Err(err))
	}

	log.Info("user online", slog.String("role", role))
	s.announce(ctx, sessionID,
		fmt.Sprintf("%s joined as %s", actor.Username, displayRole(role)),
		func(online []domain.OnlineParticipant) domain.Event {
			return domain.NewUserJoinedEvent(actor.UserID, actor.Username, role, online, now)
		},
	)
	return role, nil
}

// Remove is idempotent; removing an absent user still announces the leave.
func (s *PresenceService) Remove(ctx context.Context, sessionID uuid.UUID, actor domain.Principal) error {
	const op = "service.presence.remove"
	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID.String()),
		slog.String("user_id", actor.UserID.String()),
	)

	if err := s.cache.Remove(ctx, sessionID, actor.UserID); err != nil {
		log.Warn("presence cache remove failed", sl.Err(err))
	}

	role := string(domain.RoleViewer)
	if session, err := s.repos.Sessions.GetByID(ctx, sessionID); err == nil {
		role = s.displayedRole(ctx, session, actor.UserID)
	}

	log.Info("user offline", slog.String("role", role))
	s.announce(ctx, sessionID,
		fmt.Sprintf("%s (%s) left the session", actor.Username, displayRole(role)),
		func(online []domain.OnlineParticipant) domain.Event {
			return domain.NewUserLeftEvent(actor.UserID, actor.Username, role, online, s.now())
		},
	)
	return nil
}

// List returns the online members ordered by join time, then username.
func (s *PresenceService) List(ctx context.Context, sessionID uuid.UUID) ([]domain.OnlineParticipant, error) {
	const op = "service.presence.list"
	log := s.log.With(slog.String("op", op), slog.String("session_id", sessionID.String()))

	entries, err := s.cache.List(ctx, sessionID)
	if err != nil {
		log.Warn("presence cache read failed, retrying", sl.Err(err))
		entries, err = s.cache.List(ctx, sessionID)
		if err != nil {
			log.Error("presence cache unavailable, reporting nobody online", sl.Err(err))
			return []domain.OnlineParticipant{}, nil
		}
	}
	if len(entries) == 0 {
		return []domain.OnlineParticipant{}, nil
	}

	session, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	parts, err := s.repos.Participations.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	byUser := make(map[uuid.UUID]*domain.Participation, len(parts))
	for _, p := range parts {
		byUser[p.UserID] = p
	}

	online := make([]domain.OnlineParticipant, 0, len(entries))
	for _, e := range entries {
		item := domain.OnlineParticipant{
			UserID:   e.UserID,
			Username: e.Username,
			Role:     string(domain.RoleViewer),
			JoinedAt: e.JoinedAt,
		}
		if p, ok := byUser[e.UserID]; ok {
			if p.IsRemoved() {
				continue
			}
			item.Role = string(p.Role)
			item.Side = p.Side
			item.IsMuted = p.IsMuted
			item.WarningsCount = p.WarningsCount
		}
		if session.IsModerator(e.UserID) {
			item.Role = roleModerator
		}
		online = append(online, item)
	}
	return online, nil
}

func (s *PresenceService) roleOf(ctx context.Context, session *domain.DebateSession, userID uuid.UUID) (string, error) {
	if session.IsModerator(userID) {
		return roleModerator, nil
	}
	p, err := s.repos.Participations.Get(ctx, session.ID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrParticipationNotFound) {
			return string(domain.RoleViewer), nil
		}
		return "", err
	}
	if p.IsRemoved() {
		return "", fmt.Errorf("%w: removed from session", domain.ErrNotEligible)
	}
	return string(p.Role), nil
}

func (s *PresenceService) displayedRole(ctx context.Context, session *domain.DebateSession, userID uuid.UUID) string {
	if session.IsModerator(userID) {
		return roleModerator
	}
	if p, err := s.repos.Participations.Get(ctx, session.ID, userID); err == nil {
		return string(p.Role)
	}
	return string(domain.RoleViewer)
}

// announce stores and broadcasts the system line, then the presence event
// built from the current online list, then the list itself.
func (s *PresenceService) announce(ctx context.Context, sessionID uuid.UUID, text string, event func([]domain.OnlineParticipant) domain.Event) {
	log := s.log.With(slog.String("session_id", sessionID.String()))

	msg := domain.NewSystemMessage(sessionID, text)
	if err := s.repos.Messages.Create(ctx, msg); err != nil {
		log.Warn("failed to store system message", sl.Err(err))
	} else {
		s.broadcast(sessionID, domain.NewMessageEvent(msg))
	}

	online, err := s.List(ctx, sessionID)
	if err != nil {
		log.Warn("failed to list online participants", sl.Err(err))
		online = nil
	}
	s.broadcast(sessionID, event(online))
	if err == nil {
		s.broadcast(sessionID, domain.NewParticipantUpdateEvent(online))
	}
}

func (s *PresenceService) broadcast(sessionID uuid.UUID, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Broadcast(sessionID, event); err != nil {
		s.log.Debug("broadcast incomplete", slog.String("event", event.EventType()), sl.Err(err))
	}
}

func displayRole(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
