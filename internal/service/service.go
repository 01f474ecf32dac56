package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/cache"
	"github.com/immxrtalbeast/debatehall/internal/domain"
)

// Publisher pushes events to connected sockets.
type Publisher interface {
	Broadcast(sessionID uuid.UUID, event domain.Event, exclude ...string) error
	SendToUser(userID uuid.UUID, event domain.Event) error
	Disconnect(sessionID, userID uuid.UUID)
}

// PresenceCache is the TTL-backed online set of a session.
type PresenceCache interface {
	Add(ctx context.Context, sessionID uuid.UUID, entry cache.PresenceEntry) error
	Remove(ctx context.Context, sessionID, userID uuid.UUID) error
	List(ctx context.Context, sessionID uuid.UUID) ([]cache.PresenceEntry, error)
}

// Notifier delivers persistent notifications; delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, recipients []uuid.UUID, tmpl domain.NotificationTemplate) int
}

// Settings are the timing and limit knobs of the debate lifecycle.
type Settings struct {
	JoiningWindow    time.Duration
	VotingWindow     time.Duration
	MaxPerSide       int
	ManualStart      bool
	AutoMuteWarnings int
	HistorySize      int
}

func DefaultSettings() Settings {
	return Settings{
		JoiningWindow: 5 * time.Minute,
		VotingWindow:  30 * time.Second,
		MaxPerSide:    10,
		HistorySize:   50,
	}
}

type JoinRequest struct {
	Role domain.ParticipantRole
	Side domain.Side
}

// StatusReport is the client-facing view of a session's effective phase.
type StatusReport struct {
	Phase                domain.SessionStatus  `json:"phase"`
	CanJoin              bool                  `json:"canJoin"`
	CanChat              bool                  `json:"canChat"`
	CanVote              bool                  `json:"canVote"`
	CountdownToNextPhase *int                  `json:"countdownToNextPhase"`
	NextPhaseLabel       string                `json:"nextPhaseLabel"`
	ParticipantCount     int                   `json:"participantCount"`
	ViewerCount          int                   `json:"viewerCount"`
	MessageCount         int                   `json:"messageCount"`
	SessionInfo          *domain.DebateSession `json:"sessionInfo"`
}

type Results struct {
	domain.Tally
	Finished bool           `json:"finished"`
	HasVoted bool           `json:"hasVoted"`
	UserVote *domain.Side   `json:"userVote"`
	Votes    []*domain.Vote `json:"-"`
}

type SessionInteractor interface {
	CreateSession(ctx context.Context, actor domain.Principal, topicID uuid.UUID, scheduledStart *time.Time, durationMinutes int) (*domain.DebateSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*domain.DebateSession, error)
	ListSessions(ctx context.Context, statuses []domain.SessionStatus) ([]*domain.DebateSession, error)
	Status(ctx context.Context, id uuid.UUID) (*StatusReport, error)
	Join(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, req JoinRequest) (*domain.Participation, error)
	Leave(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) error
	ListParticipations(ctx context.Context, sessionID uuid.UUID) ([]*domain.Participation, error)
	ListMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*domain.Message, error)

	StartJoiningWindow(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) (*domain.DebateSession, error)
	CloseJoiningWindow(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) (*domain.DebateSession, error)
	StartDebate(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) (*domain.DebateSession, error)
	EndDebateAndStartVoting(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) (*domain.DebateSession, error)
	FinishVoting(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) (*domain.DebateSession, error)
	Cancel(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, reason string) (*domain.DebateSession, error)
	ForcePhaseTransition(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, target domain.SessionStatus, reason string) (*domain.DebateSession, error)
}

type ModerationInteractor interface {
	Mute(ctx context.Context, actor domain.Principal, sessionID, targetID uuid.UUID, reason string) (*domain.Participation, error)
	Unmute(ctx context.Context, actor domain.Principal, sessionID, targetID uuid.UUID) (*domain.Participation, error)
	Warn(ctx context.Context, actor domain.Principal, sessionID, targetID uuid.UUID, reason string) (*domain.Participation, error)
	Remove(ctx context.Context, actor domain.Principal, sessionID, targetID uuid.UUID, reason string) (*domain.Participation, error)
	ListActions(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) ([]*domain.ModerationAction, error)
}

type VotingInteractor interface {
	CastVote(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, choice domain.VoteChoice) (*domain.Vote, error)
	Results(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) (*Results, error)
}

type ChatInteractor interface {
	SendMessage(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, content, imageURL string, replyTo *int64) (*domain.Message, error)
	Typing(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, clientID string, action string) error
	React(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, messageID int64, emoji string) error
}

type PresenceInteractor interface {
	Add(ctx context.Context, sessionID uuid.UUID, actor domain.Principal) (string, error)
	Remove(ctx context.Context, sessionID uuid.UUID, actor domain.Principal) error
	List(ctx context.Context, sessionID uuid.UUID) ([]domain.OnlineParticipant, error)
}

type NotificationInteractor interface {
	Notify(ctx context.Context, recipients []uuid.UUID, tmpl domain.NotificationTemplate) int
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error)
}

type TopicInteractor interface {
	CreateTopic(ctx context.Context, actor domain.Principal, title, description, category string) (*domain.DebateTopic, error)
	GetTopic(ctx context.Context, id uuid.UUID) (*domain.DebateTopic, error)
	ListTopics(ctx context.Context, category string) ([]*domain.DebateTopic, error)
}

type ReportInteractor interface {
	Transcript(ctx context.Context, sessionID uuid.UUID) (*Transcript, error)
	Analytics(ctx context.Context, sessionID uuid.UUID) (*SessionAnalytics, error)
	Profile(ctx context.Context, userID uuid.UUID) (*DebateProfile, error)
}

type UserInteractor interface {
	EnsureUser(ctx context.Context, actor domain.Principal) (*domain.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

func utcNow() time.Time {
	return time.Now().UTC()
}
