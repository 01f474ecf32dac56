package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifyJoiningOpened    NotificationType = "joining_opened"
	NotifyDebateStarted    NotificationType = "debate_started"
	NotifyVotingStarted    NotificationType = "voting_started"
	NotifySessionFinished  NotificationType = "session_finished"
	NotifySessionCancelled NotificationType = "session_cancelled"
	NotifySessionInvite    NotificationType = "session_invite"
	NotifyModerationAction NotificationType = "moderation_action"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

type Notification struct {
	ID          uuid.UUID            `json:"id"`
	RecipientID uuid.UUID            `json:"recipient_id"`
	SenderID    *uuid.UUID           `json:"sender_id,omitempty"`
	SessionID   *uuid.UUID           `json:"session_id,omitempty"`
	Type        NotificationType     `json:"notification_type"`
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	Priority    NotificationPriority `json:"priority"`
	IsRead      bool                 `json:"is_read"`
	ReadAt      *time.Time           `json:"read_at,omitempty"`
	ExpiresAt   *time.Time           `json:"expires_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// NotificationTemplate is the recipient-independent part of a notification.
type NotificationTemplate struct {
	SenderID  *uuid.UUID
	SessionID *uuid.UUID
	Type      NotificationType
	Title     string
	Message   string
	Priority  NotificationPriority
	ExpiresIn time.Duration
}

func (t NotificationTemplate) For(recipient uuid.UUID, now time.Time) *Notification {
	priority := t.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	n := &Notification{
		ID:          uuid.New(),
		RecipientID: recipient,
		SenderID:    t.SenderID,
		SessionID:   t.SessionID,
		Type:        t.Type,
		Title:       t.Title,
		Message:     t.Message,
		Priority:    priority,
		CreatedAt:   now.UTC(),
	}
	if t.ExpiresIn > 0 {
		exp := now.UTC().Add(t.ExpiresIn)
		n.ExpiresAt = &exp
	}
	return n
}

func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !now.Before(*n.ExpiresAt)
}

func (n *Notification) MarkRead(now time.Time) {
	if n.IsRead {
		return
	}
	now = now.UTC()
	n.IsRead = true
	n.ReadAt = &now
}
