package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ModerationActionType string

const (
	ActionMute                 ModerationActionType = "mute"
	ActionUnmute               ModerationActionType = "unmute"
	ActionWarn                 ModerationActionType = "warn"
	ActionRemove               ModerationActionType = "remove"
	ActionCancel               ModerationActionType = "cancel"
	ActionForcePhaseTransition ModerationActionType = "force_phase_transition"
)

// ModerationAction is an append-only audit record.
type ModerationAction struct {
	ID           uuid.UUID            `json:"id"`
	SessionID    uuid.UUID            `json:"session_id"`
	ModeratorID  uuid.UUID            `json:"moderator_id"`
	TargetUserID *uuid.UUID           `json:"target_user_id,omitempty"`
	Action       ModerationActionType `json:"action"`
	Reason       string               `json:"reason,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

func NewModerationAction(sessionID, moderatorID uuid.UUID, target *uuid.UUID, action ModerationActionType, reason string) *ModerationAction {
	return &ModerationAction{
		ID:           uuid.New(),
		SessionID:    sessionID,
		ModeratorID:  moderatorID,
		TargetUserID: target,
		Action:       action,
		Reason:       strings.TrimSpace(reason),
		CreatedAt:    time.Now().UTC(),
	}
}
