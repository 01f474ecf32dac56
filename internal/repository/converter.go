package repository

import (
	"time"

	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository/model"
)

func toModelUser(user *domain.User) *model.User {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := user.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	return &model.User{
		ID:        user.ID,
		Username:  user.Username,
		Role:      string(user.Role),
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
	}
}

func toDomainUser(user *model.User) *domain.User {
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Role:      domain.UserRole(user.Role),
		CreatedAt: user.CreatedAt.UTC(),
		UpdatedAt: user.UpdatedAt.UTC(),
	}
}

func toModelTopic(topic *domain.DebateTopic) *model.DebateTopic {
	return &model.DebateTopic{
		ID:          topic.ID,
		Title:       topic.Title,
		Description: topic.Description,
		Category:    topic.Category,
		CreatedBy:   topic.CreatedBy,
		CreatedAt:   topic.CreatedAt.UTC(),
	}
}

func toDomainTopic(topic *model.DebateTopic) *domain.DebateTopic {
	return &domain.DebateTopic{
		ID:          topic.ID,
		Title:       topic.Title,
		Description: topic.Description,
		Category:    topic.Category,
		CreatedBy:   topic.CreatedBy,
		CreatedAt:   topic.CreatedAt.UTC(),
	}
}

func toModelSession(s *domain.DebateSession) *model.DebateSession {
	m := &model.DebateSession{
		ID:               s.ID,
		TopicID:          s.TopicID,
		ModeratorID:      s.ModeratorID,
		ScheduledStart:   utcPtr(s.ScheduledStart),
		DurationMinutes:  s.DurationMinutes,
		Status:           string(s.Status),
		JoiningStartedAt: utcPtr(s.JoiningStartedAt),
		JoiningWindowEnd: utcPtr(s.JoiningWindowEnd),
		DebateStartedAt:  utcPtr(s.DebateStartedAt),
		DebateEndTime:    utcPtr(s.DebateEndTime),
		VotingStartedAt:  utcPtr(s.VotingStartedAt),
		VotingEndTime:    utcPtr(s.VotingEndTime),
		TotalVotes:       s.TotalVotes,
		CancelReason:     s.CancelReason,
		CreatedAt:        s.CreatedAt.UTC(),
		UpdatedAt:        s.UpdatedAt.UTC(),
	}
	if s.WinnerSide != nil {
		side := string(*s.WinnerSide)
		m.WinnerSide = &side
	}
	return m
}

func toDomainSession(m *model.DebateSession) *domain.DebateSession {
	s := &domain.DebateSession{
		ID:               m.ID,
		TopicID:          m.TopicID,
		ModeratorID:      m.ModeratorID,
		ScheduledStart:   utcPtr(m.ScheduledStart),
		DurationMinutes:  m.DurationMinutes,
		Status:           domain.SessionStatus(m.Status),
		JoiningStartedAt: utcPtr(m.JoiningStartedAt),
		JoiningWindowEnd: utcPtr(m.JoiningWindowEnd),
		DebateStartedAt:  utcPtr(m.DebateStartedAt),
		DebateEndTime:    utcPtr(m.DebateEndTime),
		VotingStartedAt:  utcPtr(m.VotingStartedAt),
		VotingEndTime:    utcPtr(m.VotingEndTime),
		TotalVotes:       m.TotalVotes,
		CancelReason:     m.CancelReason,
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
	if m.WinnerSide != nil {
		side := domain.Side(*m.WinnerSide)
		s.WinnerSide = &side
	}
	return s
}

func toModelParticipation(p *domain.Participation) *model.Participation {
	return &model.Participation{
		ID:            p.ID,
		SessionID:     p.SessionID,
		UserID:        p.UserID,
		Role:          string(p.Role),
		Side:          string(p.Side),
		IsMuted:       p.IsMuted,
		WarningsCount: p.WarningsCount,
		JoinedAt:      p.JoinedAt.UTC(),
		LeftAt:        utcPtr(p.LeftAt),
		RemovedAt:     utcPtr(p.RemovedAt),
	}
}

func toDomainParticipation(p *model.Participation) *domain.Participation {
	return &domain.Participation{
		ID:            p.ID,
		SessionID:     p.SessionID,
		UserID:        p.UserID,
		Role:          domain.ParticipantRole(p.Role),
		Side:          domain.Side(p.Side),
		IsMuted:       p.IsMuted,
		WarningsCount: p.WarningsCount,
		JoinedAt:      p.JoinedAt.UTC(),
		LeftAt:        utcPtr(p.LeftAt),
		RemovedAt:     utcPtr(p.RemovedAt),
	}
}

func toModelMessage(msg *domain.Message) *model.Message {
	return &model.Message{
		ID:            msg.ID,
		SessionID:     msg.SessionID,
		AuthorID:      msg.AuthorID,
		AuthorName:    msg.AuthorName,
		Content:       msg.Content,
		MessageType:   string(msg.Type),
		ImageURL:      msg.ImageURL,
		ReplyToID:     msg.ReplyToID,
		IsDeleted:     msg.IsDeleted,
		IsFlagged:     msg.IsFlagged,
		FlaggedReason: msg.FlaggedReason,
		IsHidden:      msg.IsHidden,
		CreatedAt:     msg.CreatedAt.UTC(),
	}
}

func toDomainMessage(m *model.Message) *domain.Message {
	return &domain.Message{
		ID:            m.ID,
		SessionID:     m.SessionID,
		AuthorID:      m.AuthorID,
		AuthorName:    m.AuthorName,
		Content:       m.Content,
		Type:          domain.MessageType(m.MessageType),
		ImageURL:      m.ImageURL,
		ReplyToID:     m.ReplyToID,
		IsDeleted:     m.IsDeleted,
		IsFlagged:     m.IsFlagged,
		FlaggedReason: m.FlaggedReason,
		IsHidden:      m.IsHidden,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

func toModelVote(v *domain.Vote) *model.Vote {
	return &model.Vote{
		ID:        v.ID,
		SessionID: v.SessionID,
		UserID:    v.UserID,
		Kind:      string(v.Kind),
		Side:      string(v.Side),
		VoteType:  string(v.VoteType),
		CreatedAt: v.CreatedAt.UTC(),
		UpdatedAt: v.UpdatedAt.UTC(),
	}
}

func toDomainVote(v *model.Vote) *domain.Vote {
	return &domain.Vote{
		ID:        v.ID,
		SessionID: v.SessionID,
		UserID:    v.UserID,
		Kind:      domain.VoteKind(v.Kind),
		Side:      domain.Side(v.Side),
		VoteType:  domain.VoteType(v.VoteType),
		CreatedAt: v.CreatedAt.UTC(),
		UpdatedAt: v.UpdatedAt.UTC(),
	}
}

func toModelModerationAction(a *domain.ModerationAction) *model.ModerationAction {
	return &model.ModerationAction{
		ID:           a.ID,
		SessionID:    a.SessionID,
		ModeratorID:  a.ModeratorID,
		TargetUserID: a.TargetUserID,
		Action:       string(a.Action),
		Reason:       a.Reason,
		CreatedAt:    a.CreatedAt.UTC(),
	}
}

func toDomainModerationAction(a *model.ModerationAction) *domain.ModerationAction {
	return &domain.ModerationAction{
		ID:           a.ID,
		SessionID:    a.SessionID,
		ModeratorID:  a.ModeratorID,
		TargetUserID: a.TargetUserID,
		Action:       domain.ModerationActionType(a.Action),
		Reason:       a.Reason,
		CreatedAt:    a.CreatedAt.UTC(),
	}
}

func toModelNotification(n *domain.Notification) *model.Notification {
	return &model.Notification{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		SenderID:    n.SenderID,
		SessionID:   n.SessionID,
		Type:        string(n.Type),
		Title:       n.Title,
		Message:     n.Message,
		Priority:    string(n.Priority),
		IsRead:      n.IsRead,
		ReadAt:      utcPtr(n.ReadAt),
		ExpiresAt:   utcPtr(n.ExpiresAt),
		CreatedAt:   n.CreatedAt.UTC(),
	}
}

func toDomainNotification(n *model.Notification) *domain.Notification {
	return &domain.Notification{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		SenderID:    n.SenderID,
		SessionID:   n.SessionID,
		Type:        domain.NotificationType(n.Type),
		Title:       n.Title,
		Message:     n.Message,
		Priority:    domain.NotificationPriority(n.Priority),
		IsRead:      n.IsRead,
		ReadAt:      utcPtr(n.ReadAt),
		ExpiresAt:   utcPtr(n.ExpiresAt),
		CreatedAt:   n.CreatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
