package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/cache"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu           sync.Mutex
	rooms        map[uuid.UUID][]domain.Event
	direct       map[uuid.UUID][]domain.Event
	excluded     map[string]int
	disconnected []uuid.UUID
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{
		rooms:    make(map[uuid.UUID][]domain.Event),
		direct:   make(map[uuid.UUID][]domain.Event),
		excluded: make(map[string]int),
	}
}

func (p *recordingPublisher) Broadcast(sessionID uuid.UUID, event domain.Event, exclude ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms[sessionID] = append(p.rooms[sessionID], event)
	for _, id := range exclude {
		p.excluded[id]++
	}
	return nil
}

func (p *recordingPublisher) SendToUser(userID uuid.UUID, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.direct[userID] = append(p.direct[userID], event)
	return nil
}

func (p *recordingPublisher) Disconnect(_ uuid.UUID, userID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnected = append(p.disconnected, userID)
}

func (p *recordingPublisher) roomEvents(sessionID uuid.UUID, eventType string) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.rooms[sessionID] {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) statusEvents(sessionID uuid.UUID) []string {
	var names []string
	for _, e := range p.roomEvents(sessionID, domain.EventSessionStatusUpdate) {
		names = append(names, e.(*domain.SessionStatusEvent).Event)
	}
	return names
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	repos repository.Repositories
	pub   *recordingPublisher
	clock *fakeClock
	cache *cache.MemoryPresenceCache

	settings      Settings
	users         *UserService
	topics        *TopicService
	notifications *NotificationService
	presence      *PresenceService
	sessions      *SessionService
	moderation    *ModerationService
	voting        *VotingService
	chat          *ChatService

	moderator domain.Principal
}

func newFixture(t *testing.T, tweak ...func(*Settings)) *fixture {
	t.Helper()

	settings := DefaultSettings()
	for _, fn := range tweak {
		fn(&settings)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := repository.NewInMemoryRepositories()
	pub := newRecordingPublisher()
	clock := newFakeClock()
	presenceCache := cache.NewMemoryPresenceCache(time.Hour)
	locks := NewSessionLocks()

	notifications := NewNotificationService(repos.Notifications, pub, log)
	presence := NewPresenceService(presenceCache, repos, pub, log)
	f := &fixture{
		t:             t,
		ctx:           context.Background(),
		repos:         repos,
		pub:           pub,
		clock:         clock,
		cache:         presenceCache,
		settings:      settings,
		users:         NewUserService(repos.Users, log),
		topics:        NewTopicService(repos.Topics, repos.Users, log),
		notifications: notifications,
		presence:      presence,
		sessions:      NewSessionService(repos, locks, notifications, pub, settings, log),
		moderation:    NewModerationService(repos, locks, presence, notifications, pub, settings, log),
		voting:        NewVotingService(repos, locks, pub, log),
		chat:          NewChatService(repos, locks, pub, log),
		moderator:     newPrincipal("moderator", domain.UserRoleModerator),
	}
	f.notifications.now = clock.Now
	f.presence.now = clock.Now
	f.sessions.now = clock.Now
	f.moderation.now = clock.Now
	f.voting.now = clock.Now
	f.chat.now = clock.Now
	return f
}

func newPrincipal(name string, role domain.UserRole) domain.Principal {
	return domain.Principal{UserID: uuid.New(), Username: name, Role: role}
}

func (f *fixture) student(name string) domain.Principal {
	f.t.Helper()
	p := newPrincipal(name, domain.UserRoleStudent)
	_, err := f.users.EnsureUser(f.ctx, p)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) newSession() *domain.DebateSession {
	f.t.Helper()
	topic, err := f.topics.CreateTopic(f.ctx, f.moderator, "Should homework be abolished?", "", "education")
	require.NoError(f.t, err)
	session, err := f.sessions.CreateSession(f.ctx, f.moderator, topic.ID, nil, 30)
	require.NoError(f.t, err)
	return session
}

func (f *fixture) openSession() *domain.DebateSession {
	f.t.Helper()
	session := f.newSession()
	_, err := f.sessions.StartJoiningWindow(f.ctx, f.moderator, session.ID)
	require.NoError(f.t, err)
	return session
}

func (f *fixture) join(user domain.Principal, sessionID uuid.UUID, role domain.ParticipantRole, side domain.Side) *domain.Participation {
	f.t.Helper()
	p, err := f.sessions.Join(f.ctx, user, sessionID, JoinRequest{Role: role, Side: side})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) notificationsOf(userID uuid.UUID) []*domain.Notification {
	f.t.Helper()
	list, err := f.repos.Notifications.ListByRecipient(f.ctx, userID, false, f.clock.Now())
	require.NoError(f.t, err)
	return list
}

func hasNotification(list []*domain.Notification, kind domain.NotificationType) bool {
	for _, n := range list {
		if n.Type == kind {
			return true
		}
	}
	return false
}
