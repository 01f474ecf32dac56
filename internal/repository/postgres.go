package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewPostgresRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:          NewPostgresUserRepository(db),
		Topics:         NewPostgresTopicRepository(db),
		Sessions:       NewPostgresSessionRepository(db),
		Participations: NewPostgresParticipationRepository(db),
		Messages:       NewPostgresMessageRepository(db),
		Votes:          NewPostgresVoteRepository(db),
		Moderation:     NewPostgresModerationRepository(db),
		Notifications:  NewPostgresNotificationRepository(db),
	}
}

// translateError marks connectivity failures as transient so callers can
// answer with a retryable status.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	return err
}

type PostgresUserRepository struct {
	db *gorm.DB
}

func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return errors.New("user is nil")
	}

	return translateError(r.db.WithContext(ctx).Create(toModelUser(user)).Error)
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, translateError(err)
	}

	return toDomainUser(&user), nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return errors.New("user is nil")
	}

	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"username":   user.Username,
		"role":       string(user.Role),
		"updated_at": user.UpdatedAt,
	})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresUserRepository) ListByRole(ctx context.Context, role domain.UserRole) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var users []model.User
	if err := r.db.WithContext(ctx).Where("role = ?", string(role)).Order("created_at").Find(&users).Error; err != nil {
		return nil, translateError(err)
	}

	result := make([]*domain.User, 0, len(users))
	for i := range users {
		result = append(result, toDomainUser(&users[i]))
	}
	return result, nil
}

type PostgresTopicRepository struct {
	db *gorm.DB
}

func NewPostgresTopicRepository(db *gorm.DB) *PostgresTopicRepository {
	return &PostgresTopicRepository{db: db}
}

func (r *PostgresTopicRepository) Create(ctx context.Context, topic *domain.DebateTopic) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == nil {
		return errors.New("topic is nil")
	}

	return translateError(r.db.WithContext(ctx).Create(toModelTopic(topic)).Error)
}

func (r *PostgresTopicRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DebateTopic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var topic model.DebateTopic
	err := r.db.WithContext(ctx).First(&topic, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, translateError(err)
	}

	return toDomainTopic(&topic), nil
}

func (r *PostgresTopicRepository) List(ctx context.Context, category string) ([]*domain.DebateTopic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Order("created_at DESC")
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var topics []model.DebateTopic
	if err := query.Find(&topics).Error; err != nil {
		return nil, translateError(err)
	}

	result := make([]*domain.DebateTopic, 0, len(topics))
	for i := range topics {
		result = append(result, toDomainTopic(&topics[i]))
	}
	return result, nil
}

type PostgresSessionRepository struct {
	db *gorm.DB
}

func NewPostgresSessionRepository(db *gorm.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) Create(ctx context.Context, session *domain.DebateSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session == nil {
		return errors.New("session is nil")
	}

	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Create(toModelSession(session)).Error)
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DebateSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var session model.DebateSession
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, translateError(err)
	}

	return toDomainSession(&session), nil
}

func (r *PostgresSessionRepository) Update(ctx context.Context, session *domain.DebateSession, expected domain.SessionStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session == nil {
		return errors.New("session is nil")
	}

	m := toModelSession(session)
	updates := map[string]any{
		"status":             m.Status,
		"scheduled_start":    nullable(m.ScheduledStart),
		"joining_started_at": nullable(m.JoiningStartedAt),
		"joining_window_end": nullable(m.JoiningWindowEnd),
		"debate_started_at":  nullable(m.DebateStartedAt),
		"debate_end_time":    nullable(m.DebateEndTime),
		"voting_started_at":  nullable(m.VotingStartedAt),
		"voting_end_time":    nullable(m.VotingEndTime),
		"total_votes":        m.TotalVotes,
		"cancel_reason":      m.CancelReason,
		"updated_at":         m.UpdatedAt,
	}
	if m.WinnerSide == nil {
		updates["winner_side"] = gorm.Expr("NULL")
	} else {
		updates["winner_side"] = *m.WinnerSide
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.DebateSession{}).
			Where("id = ? AND status = ?", m.ID, string(expected)).
			Updates(updates)
		if res.Error != nil {
			return translateError(res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}

		var count int64
		if err := tx.Model(&model.DebateSession{}).Where("id = ?", m.ID).Count(&count).Error; err != nil {
			return translateError(err)
		}
		if count == 0 {
			return ErrSessionNotFound
		}
		return ErrStatusConflict
	})
}

func (r *PostgresSessionRepository) ListActive(ctx context.Context) ([]*domain.DebateSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sessions []model.DebateSession
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", []string{string(domain.StatusFinished), string(domain.StatusCancelled)}).
		Order("created_at").
		Find(&sessions).Error
	if err != nil {
		return nil, translateError(err)
	}

	result := make([]*domain.DebateSession, 0, len(sessions))
	for i := range sessions {
		result = append(result, toDomainSession(&sessions[i]))
	}
	return result, nil
}

func (r *PostgresSessionRepository) List(ctx context.Context, statuses []domain.SessionStatus) ([]*domain.DebateSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Order("created_at DESC")
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, status := range statuses {
			values = append(values, string(status))
		}
		query = query.Where("status IN ?", values)
	}

	var sessions []model.DebateSession
	if err := query.Find(&sessions).Error; err != nil {
		return nil, translateError(err)
	}

	result := make([]*domain.DebateSession, 0, len(sessions))
	for i := range sessions {
		result = append(result, toDomainSession(&sessions[i]))
	}
	return result, nil
}

type PostgresParticipationRepository struct {
	db *gorm.DB
}

func NewPostgresParticipationRepository(db *gorm.DB) *PostgresParticipationRepository {
	return &PostgresParticipationRepository{db: db}
}

func (r *PostgresParticipationRepository) Upsert(ctx context.Context, p *domain.Participation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil {
		return errors.New("participation is nil")
	}

	m := toModelParticipation(p)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"role", "side", "is_muted", "warnings_count", "joined_at", "left_at", "removed_at",
			}),
		}).Create(m).Error
		if err != nil {
			return translateError(err)
		}

		var stored model.Participation
		if err := tx.Select("id").First(&stored, "session_id = ? AND user_id = ?", m.SessionID, m.UserID).Error; err != nil {
			return translateError(err)
		}
		p.ID = stored.ID
		return nil
	})
}

func (r *PostgresParticipationRepository) Get(ctx context.Context, sessionID, userID uuid.UUID) (*domain.Participation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var p model.Participation
	err := r.db.WithContext(ctx).First(&p, "session_id = ? AND user_id = ?", sessionID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipationNotFound
		}
		return nil, translateError(err)
	}

	return toDomainParticipation(&p), nil
}

func (r *PostgresParticipationRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Participation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []model.Participation
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("joined_at").Find(&items).Error; err != nil {
		return nil, translateError(err)
	}

	result := make([]*domain.Participation, 0, len(items))
	for i := range items {
		result = append(result, toDomainParticipation(&items[i]))
	}
	return result, nil
}

func (r *PostgresParticipationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Participation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []model.Participation
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("joined_at").Find(&items).Error; err != nil {
		return nil, translateError(err)
	}

	result := make([]*domain.Participation, 0, len(items))
	for i := range items {
		result = append(result, toDomainParticipation(&items[i]))
	}
	return result, nil
}

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewPostgresMessageRepository(db *gorm.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil {
		return errors.New("message is nil")
	}

	m := toModelMessage(msg)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err)
	}
	msg.ID = m.ID
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var m model.Message
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, translateError(err)
	}

	return toDomainMessage(&m), nil
}

func (r *PostgresMessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Where("session_id = ? AND is_deleted = ?", sessionID, false).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []model.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, translateError(err)
	}

	result := make([]*domain.Message, 0, len(messages))
	for i := range messages {
		result = append(result, toDomainMessage(&messages[i]))
	}
	slices.Reverse(result)
	return result, nil
}

func (r *PostgresMessageRepository) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("session_id = ? AND is_deleted = ?", sessionID, false).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return int(count), nil
}

func (r *PostgresMessageRepository) CountByAuthor(ctx context.Context, userID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("author_id = ? AND is_deleted = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return int(count), nil
}

type PostgresVoteRepository struct {
	db *gorm.DB
}

func NewPostgresVoteRepository(db *gorm.DB) *PostgresVoteRepository {
	return &PostgresVoteRepository{db: db}
}

func (r *PostgresVoteRepository) Create(ctx context.Context, vote *domain.Vote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if vote == nil {
		return errors.New("vote is nil")
	}

	if err := r.db.WithContext(ctx).Create(toModelVote(vote)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrVoteExists
		}
		return translateError(err)
	}
	return nil
}

func (r *PostgresVoteRepository) Upsert(ctx context.Context, vote *domain.Vote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if vote == nil {
		return errors.New("vote is nil")
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "user_id"}},
		Where:     clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "votes.kind = excluded.kind"}}},
		DoUpdates: clause.AssignmentColumns([]string{"side", "vote_type", "updated_at"}),
	}).Create(toModelVote(vote))
	if res.Error != nil {
		return translateError(res.Error)
	}
	// The conflict update is skipped when the stored vote is of the other kind.
	if res.RowsAffected == 0 {
		return ErrVoteExists
	}
	return nil
}

func (r *PostgresVoteRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Vote, error) {
	return r.list(ctx, r.db.Where("session_id = ?", sessionID))
}

func (r *PostgresVoteRepository) ListByUser(ctx context.Context, sessionID, userID uuid.UUID) ([]*domain.Vote, error) {
	return r.list(ctx, r.db.Where("session_id = ? AND user_id = ?", sessionID, userID))
}

func (r *PostgresVoteRepository) list(ctx context.Context, query *gorm.DB) ([]*domain.Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var votes []model.Vote
	if err := query.WithContext(ctx).Order("created_at").Find(&votes).Error; err != nil {
		return nil, translateError(err)
	}

	result := make([]*domain.Vote, 0, len(votes))
	for i := range votes {
		result = append(result, toDomainVote(&votes[i]))
	}
	return result, nil
}

type PostgresModerationRepository struct {
	db *gorm.DB
}

func NewPostgresModerationRepository(db *gorm.DB) *PostgresModerationRepository {
	return &PostgresModerationRepository{db: db}
}

func (r *PostgresModerationRepository) Create(ctx context.Context, action *domain.ModerationAction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if action == nil {
		return errors.New("moderation action is nil")
	}

	return translateError(r.db.WithContext(ctx).Create(toModelModerationAction(action)).Error)
}

func (r *PostgresModerationRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.ModerationAction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var actions []model.ModerationAction
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at").Find(&actions).Error; err != nil {
		return nil, translateError(err)
	}

	result := make([]*domain.ModerationAction, 0, len(actions))
	for i := range actions {
		result = append(result, toDomainModerationAction(&actions[i]))
	}
	return result, nil
}

type PostgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n == nil {
		return errors.New("notification is nil")
	}

	return translateError(r.db.WithContext(ctx).Create(toModelNotification(n)).Error)
}

func (r *PostgresNotificationRepository) ListByRecipient(ctx context.Context, userID uuid.UUID, unreadOnly bool, now time.Time) ([]*domain.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := r.visible(ctx, userID, now)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var items []model.Notification
	if err := query.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, translateError(err)
	}

	result := make([]*domain.Notification, 0, len(items))
	for i := range items {
		result = append(result, toDomainNotification(&items[i]))
	}
	return result, nil
}

func (r *PostgresNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	if err := r.visible(ctx, userID, now).Where("is_read = ?", false).Count(&count).Error; err != nil {
		return 0, translateError(err)
	}
	return int(count), nil
}

func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	query := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	res := query.Updates(map[string]any{"is_read": true, "read_at": now.UTC()})
	if res.Error != nil {
		return 0, translateError(res.Error)
	}
	return int(res.RowsAffected), nil
}

func (r *PostgresNotificationRepository) visible(ctx context.Context, userID uuid.UUID, now time.Time) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ?", userID).
		Where("(expires_at IS NULL OR expires_at > ?)", now.UTC())
}

func nullable(t *time.Time) any {
	if t == nil {
		return gorm.Expr("NULL")
	}
	return *t
}
