package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/immxrtalbeast/debatehall/lib/logger/sl"
)

const (
	TypingStart = "start"
	TypingStop  = "stop"

	maxEmojiLength = 16
)

type ChatService struct {
	repos     repository.Repositories
	locks     *SessionLocks
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewChatService(repos repository.Repositories, locks *SessionLocks, publisher Publisher, log *slog.Logger) *ChatService {
	if log == nil {
		log = slog.Default()
	}
	if locks == nil {
		locks = NewSessionLocks()
	}
	return &ChatService{
		repos:     repos,
		locks:     locks,
		publisher: publisher,
		log:       log,
		now:       utcNow,
	}
}

func (s *ChatService) SendMessage(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, content, imageURL string, replyTo *int64) (*domain.Message, error) {
	const op = "service.chat.send"
	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID.String()),
		slog.String("user_id", actor.UserID.String()),
	)

	msg, err := domain.NewChatMessage(sessionID, actor, content, imageURL, replyTo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = func() error {
		unlock := s.locks.Lock(sessionID)
		defer unlock()

		if err := s.checkCanChat(ctx, sessionID, actor.UserID); err != nil {
			return err
		}
		if replyTo != nil {
			parent, err := s.repos.Messages.GetByID(ctx, *replyTo)
			if err != nil {
				if errors.Is(err, repository.ErrMessageNotFound) {
					return fmt.Errorf("%w: reply target does not exist", domain.ErrValidation)
				}
				return err
			}
			if parent.SessionID != sessionID {
				return fmt.Errorf("%w: reply target belongs to another session", domain.ErrValidation)
			}
		}
		msg.CreatedAt = s.now()
		return s.repos.Messages.Create(ctx, msg)
	}()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("message stored", slog.Int64("message_id", msg.ID))
	s.broadcast(sessionID, domain.NewMessageEvent(msg))
	return msg, nil
}

// Typing relays a typing indicator to everyone in the room except the
// sending connection.
func (s *ChatService) Typing(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, clientID string, action string) error {
	const op = "service.chat.typing"

	if action != TypingStart && action != TypingStop {
		return fmt.Errorf("%s: %w: unknown typing action %q", op, domain.ErrValidation, action)
	}
	if action == TypingStart {
		if err := s.checkCanChat(ctx, sessionID, actor.UserID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if s.publisher != nil {
		_ = s.publisher.Broadcast(sessionID, domain.NewTypingEvent(actor.UserID, actor.Username, action), clientID)
	}
	return nil
}

func (s *ChatService) React(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, messageID int64, emoji string) error {
	const op = "service.chat.react"

	emoji = strings.TrimSpace(emoji)
	if emoji == "" || len(emoji) > maxEmojiLength {
		return fmt.Errorf("%s: %w: invalid reaction", op, domain.ErrValidation)
	}
	msg, err := s.repos.Messages.GetByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if msg.SessionID != sessionID {
		return fmt.Errorf("%s: %w", op, repository.ErrMessageNotFound)
	}

	s.broadcast(sessionID, domain.NewReactionEvent(messageID, emoji, actor.UserID, actor.Username))
	return nil
}

func (s *ChatService) checkCanChat(ctx context.Context, sessionID, userID uuid.UUID) error {
	session, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	p, err := s.repos.Participations.Get(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrParticipationNotFound) {
			return fmt.Errorf("%w: only debaters can chat", domain.ErrNotEligible)
		}
		return err
	}

	phase := domain.DerivePhase(session, s.now())
	if !p.CanChat(phase) {
		switch {
		case p.IsMuted:
			return fmt.Errorf("%w: you are muted", domain.ErrNotEligible)
		case phase != domain.StatusOnline:
			return fmt.Errorf("%w: chat is closed while the session is %s", domain.ErrNotEligible, phase)
		}
		return fmt.Errorf("%w: only debaters can chat", domain.ErrNotEligible)
	}
	return nil
}

func (s *ChatService) broadcast(sessionID uuid.UUID, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Broadcast(sessionID, event); err != nil {
		s.log.Debug("chat broadcast incomplete", slog.String("event", event.EventType()), sl.Err(err))
	}
}
