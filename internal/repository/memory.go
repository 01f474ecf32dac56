package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
)

func NewInMemoryRepositories() Repositories {
	return Repositories{
		Users:          NewInMemoryUserRepository(),
		Topics:         NewInMemoryTopicRepository(),
		Sessions:       NewInMemorySessionRepository(),
		Participations: NewInMemoryParticipationRepository(),
		Messages:       NewInMemoryMessageRepository(),
		Votes:          NewInMemoryVoteRepository(),
		Moderation:     NewInMemoryModerationRepository(),
		Notifications:  NewInMemoryNotificationRepository(),
	}
}

type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.User
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{users: make(map[uuid.UUID]domain.User)}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[user.ID] = *user
	return nil
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (r *InMemoryUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	r.users[user.ID] = *user
	return nil
}

func (r *InMemoryUserRepository) ListByRole(ctx context.Context, role domain.UserRole) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.User, 0)
	for _, user := range r.users {
		if user.Role == role {
			u := user
			result = append(result, &u)
		}
	}
	return result, nil
}

type InMemoryTopicRepository struct {
	mu     sync.RWMutex
	topics map[uuid.UUID]domain.DebateTopic
}

func NewInMemoryTopicRepository() *InMemoryTopicRepository {
	return &InMemoryTopicRepository{topics: make(map[uuid.UUID]domain.DebateTopic)}
}

func (r *InMemoryTopicRepository) Create(ctx context.Context, topic *domain.DebateTopic) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.topics[topic.ID] = *topic
	return nil
}

func (r *InMemoryTopicRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DebateTopic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	topic, ok := r.topics[id]
	if !ok {
		return nil, ErrTopicNotFound
	}
	return &topic, nil
}

func (r *InMemoryTopicRepository) List(ctx context.Context, category string) ([]*domain.DebateTopic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.DebateTopic, 0, len(r.topics))
	for _, topic := range r.topics {
		if category == "" || topic.Category == category {
			t := topic
			result = append(result, &t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

type InMemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.DebateSession
}

func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{sessions: make(map[uuid.UUID]*domain.DebateSession)}
}

func (r *InMemorySessionRepository) Create(ctx context.Context, session *domain.DebateSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = session.Clone()
	return nil
}

func (r *InMemorySessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DebateSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (r *InMemorySessionRepository) Update(ctx context.Context, session *domain.DebateSession, expected domain.SessionStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[session.ID]
	if !ok {
		return ErrSessionNotFound
	}
	if stored.Status != expected {
		return ErrStatusConflict
	}
	r.sessions[session.ID] = session.Clone()
	return nil
}

func (r *InMemorySessionRepository) ListActive(ctx context.Context) ([]*domain.DebateSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.DebateSession, 0, len(r.sessions))
	for _, session := range r.sessions {
		if !session.Status.Terminal() {
			result = append(result, session.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *InMemorySessionRepository) List(ctx context.Context, statuses []domain.SessionStatus) ([]*domain.DebateSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.DebateSession, 0, len(r.sessions))
	for _, session := range r.sessions {
		if len(statuses) == 0 || slices.Contains(statuses, session.Status) {
			result = append(result, session.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

type participationKey struct {
	sessionID uuid.UUID
	userID    uuid.UUID
}

type InMemoryParticipationRepository struct {
	mu    sync.RWMutex
	items map[participationKey]*domain.Participation
}

func NewInMemoryParticipationRepository() *InMemoryParticipationRepository {
	return &InMemoryParticipationRepository{items: make(map[participationKey]*domain.Participation)}
}

func (r *InMemoryParticipationRepository) Upsert(ctx context.Context, p *domain.Participation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := participationKey{sessionID: p.SessionID, userID: p.UserID}
	if existing, ok := r.items[key]; ok {
		p.ID = existing.ID
	}
	r.items[key] = p.Clone()
	return nil
}

func (r *InMemoryParticipationRepository) Get(ctx context.Context, sessionID, userID uuid.UUID) (*domain.Participation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[participationKey{sessionID: sessionID, userID: userID}]
	if !ok {
		return nil, ErrParticipationNotFound
	}
	return p.Clone(), nil
}

func (r *InMemoryParticipationRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Participation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Participation, 0)
	for key, p := range r.items {
		if key.sessionID == sessionID {
			result = append(result, p.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].JoinedAt.Before(result[j].JoinedAt)
	})
	return result, nil
}

func (r *InMemoryParticipationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Participation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Participation, 0)
	for key, p := range r.items {
		if key.userID == userID {
			result = append(result, p.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].JoinedAt.Before(result[j].JoinedAt)
	})
	return result, nil
}

type InMemoryMessageRepository struct {
	mu       sync.RWMutex
	nextID   int64
	messages []*domain.Message
}

func NewInMemoryMessageRepository() *InMemoryMessageRepository {
	return &InMemoryMessageRepository{}
}

func (r *InMemoryMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	msg.ID = r.nextID
	stored := *msg
	r.messages = append(r.messages, &stored)
	return nil
}

func (r *InMemoryMessageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, msg := range r.messages {
		if msg.ID == id {
			m := *msg
			return &m, nil
		}
	}
	return nil, ErrMessageNotFound
}

func (r *InMemoryMessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Message, 0)
	for i := len(r.messages) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		msg := r.messages[i]
		if msg.SessionID == sessionID && !msg.IsDeleted {
			m := *msg
			result = append(result, &m)
		}
	}
	slices.Reverse(result)
	return result, nil
}

func (r *InMemoryMessageRepository) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, msg := range r.messages {
		if msg.SessionID == sessionID && !msg.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryMessageRepository) CountByAuthor(ctx context.Context, userID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, msg := range r.messages {
		if msg.AuthorID != nil && *msg.AuthorID == userID && !msg.IsDeleted {
			count++
		}
	}
	return count, nil
}

type voteKey struct {
	sessionID uuid.UUID
	userID    uuid.UUID
}

type InMemoryVoteRepository struct {
	mu    sync.RWMutex
	votes map[voteKey]domain.Vote
}

func NewInMemoryVoteRepository() *InMemoryVoteRepository {
	return &InMemoryVoteRepository{votes: make(map[voteKey]domain.Vote)}
}

func (r *InMemoryVoteRepository) Create(ctx context.Context, vote *domain.Vote) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := voteKey{sessionID: vote.SessionID, userID: vote.UserID}
	if _, ok := r.votes[key]; ok {
		return ErrVoteExists
	}
	r.votes[key] = *vote
	return nil
}

func (r *InMemoryVoteRepository) Upsert(ctx context.Context, vote *domain.Vote) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := voteKey{sessionID: vote.SessionID, userID: vote.UserID}
	if existing, ok := r.votes[key]; ok {
		if existing.Kind != vote.Kind {
			return ErrVoteExists
		}
		vote.ID = existing.ID
		vote.CreatedAt = existing.CreatedAt
	}
	r.votes[key] = *vote
	return nil
}

func (r *InMemoryVoteRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Vote, error) {
	return r.list(ctx, func(v domain.Vote) bool { return v.SessionID == sessionID })
}

func (r *InMemoryVoteRepository) ListByUser(ctx context.Context, sessionID, userID uuid.UUID) ([]*domain.Vote, error) {
	return r.list(ctx, func(v domain.Vote) bool { return v.SessionID == sessionID && v.UserID == userID })
}

func (r *InMemoryVoteRepository) list(ctx context.Context, match func(domain.Vote) bool) ([]*domain.Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Vote, 0)
	for _, vote := range r.votes {
		if match(vote) {
			v := vote
			result = append(result, &v)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

type InMemoryModerationRepository struct {
	mu      sync.RWMutex
	actions []domain.ModerationAction
}

func NewInMemoryModerationRepository() *InMemoryModerationRepository {
	return &InMemoryModerationRepository{}
}

func (r *InMemoryModerationRepository) Create(ctx context.Context, action *domain.ModerationAction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.actions = append(r.actions, *action)
	return nil
}

func (r *InMemoryModerationRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.ModerationAction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.ModerationAction, 0)
	for _, action := range r.actions {
		if action.SessionID == sessionID {
			a := action
			result = append(result, &a)
		}
	}
	return result, nil
}

type InMemoryNotificationRepository struct {
	mu            sync.RWMutex
	notifications []*domain.Notification
}

func NewInMemoryNotificationRepository() *InMemoryNotificationRepository {
	return &InMemoryNotificationRepository{}
}

func (r *InMemoryNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *n
	r.notifications = append(r.notifications, &stored)
	return nil
}

func (r *InMemoryNotificationRepository) ListByRecipient(ctx context.Context, userID uuid.UUID, unreadOnly bool, now time.Time) ([]*domain.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Notification, 0)
	for i := len(r.notifications) - 1; i >= 0; i-- {
		n := r.notifications[i]
		if n.RecipientID != userID || n.Expired(now) || (unreadOnly && n.IsRead) {
			continue
		}
		c := *n
		result = append(result, &c)
	}
	return result, nil
}

func (r *InMemoryNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	list, err := r.ListByRecipient(ctx, userID, true, now)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

func (r *InMemoryNotificationRepository) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	updated := 0
	for _, n := range r.notifications {
		if n.RecipientID != userID || n.IsRead {
			continue
		}
		if len(ids) > 0 && !slices.Contains(ids, n.ID) {
			continue
		}
		n.MarkRead(now)
		updated++
	}
	return updated, nil
}
