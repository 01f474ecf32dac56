package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrTopicNotFound         = errors.New("topic not found")
	ErrSessionNotFound       = errors.New("session not found")
	ErrParticipationNotFound = errors.New("participation not found")
	ErrMessageNotFound       = errors.New("message not found")
	ErrVoteExists            = errors.New("vote already exists")
	ErrStatusConflict        = errors.New("session status changed concurrently")
	ErrTransientStore        = errors.New("store temporarily unavailable")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	ListByRole(ctx context.Context, role domain.UserRole) ([]*domain.User, error)
}

type TopicRepository interface {
	Create(ctx context.Context, topic *domain.DebateTopic) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DebateTopic, error)
	// List returns topics newest first; an empty category matches all.
	List(ctx context.Context, category string) ([]*domain.DebateTopic, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.DebateSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DebateSession, error)
	// Update persists session only if its stored status still equals expected.
	Update(ctx context.Context, session *domain.DebateSession, expected domain.SessionStatus) error
	ListActive(ctx context.Context) ([]*domain.DebateSession, error)
	// List returns sessions newest first, restricted to statuses when given.
	List(ctx context.Context, statuses []domain.SessionStatus) ([]*domain.DebateSession, error)
}

type ParticipationRepository interface {
	Upsert(ctx context.Context, p *domain.Participation) error
	Get(ctx context.Context, sessionID, userID uuid.UUID) (*domain.Participation, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Participation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Participation, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	// ListBySession returns the latest limit messages in chronological order.
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*domain.Message, error)
	CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error)
	CountByAuthor(ctx context.Context, userID uuid.UUID) (int, error)
}

type VoteRepository interface {
	// Create fails with ErrVoteExists when the user already voted in the session.
	Create(ctx context.Context, vote *domain.Vote) error
	// Upsert replaces the user's vote when it is of the same kind and fails
	// with ErrVoteExists otherwise.
	Upsert(ctx context.Context, vote *domain.Vote) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Vote, error)
	ListByUser(ctx context.Context, sessionID, userID uuid.UUID) ([]*domain.Vote, error)
}

type ModerationRepository interface {
	Create(ctx context.Context, action *domain.ModerationAction) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.ModerationAction, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	// ListByRecipient skips notifications expired at now, newest first.
	ListByRecipient(ctx context.Context, userID uuid.UUID, unreadOnly bool, now time.Time) ([]*domain.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
	// MarkRead marks the given notifications read; an empty ids marks all of them.
	MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, now time.Time) (int, error)
}

// Repositories bundles every store the services depend on.
type Repositories struct {
	Users          UserRepository
	Topics         TopicRepository
	Sessions       SessionRepository
	Participations ParticipationRepository
	Messages       MessageRepository
	Votes          VoteRepository
	Moderation     ModerationRepository
	Notifications  NotificationRepository
}
