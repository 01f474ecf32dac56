package domain

import (
	"time"

	"github.com/google/uuid"
)

type ParticipantRole string

const (
	RoleParticipant ParticipantRole = "participant"
	RoleViewer      ParticipantRole = "viewer"
)

type Side string

const (
	SideProposition Side = "proposition"
	SideOpposition  Side = "opposition"
)

func (s Side) Valid() bool {
	return s == SideProposition || s == SideOpposition
}

func (r ParticipantRole) Valid() bool {
	return r == RoleParticipant || r == RoleViewer
}

// Participation links a user to a session. Participants always carry a side,
// viewers never do.
type Participation struct {
	ID            uuid.UUID       `json:"id"`
	SessionID     uuid.UUID       `json:"session_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Role          ParticipantRole `json:"role"`
	Side          Side            `json:"side,omitempty"`
	IsMuted       bool            `json:"is_muted"`
	WarningsCount int             `json:"warnings_count"`
	JoinedAt      time.Time       `json:"joined_at"`
	LeftAt        *time.Time      `json:"left_at,omitempty"`
	RemovedAt     *time.Time      `json:"removed_at,omitempty"`
}

func NewParticipation(sessionID, userID uuid.UUID, role ParticipantRole, side Side, now time.Time) (*Participation, error) {
	if err := ValidateRoleSide(role, side); err != nil {
		return nil, err
	}
	return &Participation{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Side:      side,
		JoinedAt:  now.UTC(),
	}, nil
}

func ValidateRoleSide(role ParticipantRole, side Side) error {
	switch role {
	case RoleParticipant:
		if !side.Valid() {
			return validationError("participants must pick proposition or opposition")
		}
	case RoleViewer:
		if side != "" {
			return validationError("viewers cannot pick a side")
		}
	default:
		return validationError("unknown participation role")
	}
	return nil
}

func (p *Participation) Clone() *Participation {
	if p == nil {
		return nil
	}
	c := *p
	c.LeftAt = cloneTime(p.LeftAt)
	c.RemovedAt = cloneTime(p.RemovedAt)
	return &c
}

func (p *Participation) IsRemoved() bool {
	return p.RemovedAt != nil
}

func (p *Participation) IsActive() bool {
	return p.RemovedAt == nil && p.LeftAt == nil
}

// Rejoin resets a left participation with the new role and side.
func (p *Participation) Rejoin(role ParticipantRole, side Side, now time.Time) error {
	if err := ValidateRoleSide(role, side); err != nil {
		return err
	}
	p.Role = role
	p.Side = side
	p.LeftAt = nil
	p.JoinedAt = now.UTC()
	return nil
}

func (p *Participation) DemoteToViewer() {
	p.Role = RoleViewer
	p.Side = ""
}

// CanChat is the chat eligibility gate for a session in the given phase.
func (p *Participation) CanChat(phase SessionStatus) bool {
	return p != nil &&
		p.Role == RoleParticipant &&
		!p.IsMuted &&
		p.IsActive() &&
		phase == StatusOnline
}
