package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	StatusOffline   SessionStatus = "offline"
	StatusOpen      SessionStatus = "open"
	StatusClosed    SessionStatus = "closed"
	StatusOnline    SessionStatus = "online"
	StatusVoting    SessionStatus = "voting"
	StatusFinished  SessionStatus = "finished"
	StatusCancelled SessionStatus = "cancelled"
)

const (
	MinDurationMinutes = 20
	MaxDurationMinutes = 180
)

var phaseOrder = map[SessionStatus]int{
	StatusOffline:  0,
	StatusOpen:     1,
	StatusClosed:   2,
	StatusOnline:   3,
	StatusVoting:   4,
	StatusFinished: 5,
}

func (s SessionStatus) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

func (s SessionStatus) Valid() bool {
	_, ok := phaseOrder[s]
	return ok || s == StatusCancelled
}

// DebateSession is a single scheduled debate. Lifecycle timestamps are filled
// in order; a later pair is never set while an earlier one is empty.
type DebateSession struct {
	ID              uuid.UUID     `json:"id"`
	TopicID         uuid.UUID     `json:"topic_id"`
	ModeratorID     uuid.UUID     `json:"moderator_id"`
	ScheduledStart  *time.Time    `json:"scheduled_start,omitempty"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          SessionStatus `json:"status"`

	JoiningStartedAt *time.Time `json:"joining_started_at,omitempty"`
	JoiningWindowEnd *time.Time `json:"joining_window_end,omitempty"`
	DebateStartedAt  *time.Time `json:"debate_started_at,omitempty"`
	DebateEndTime    *time.Time `json:"debate_end_time,omitempty"`
	VotingStartedAt  *time.Time `json:"voting_started_at,omitempty"`
	VotingEndTime    *time.Time `json:"voting_end_time,omitempty"`

	WinnerSide   *Side  `json:"winner_side,omitempty"`
	TotalVotes   int    `json:"total_votes"`
	CancelReason string `json:"cancel_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewDebateSession(topicID, moderatorID uuid.UUID, scheduledStart *time.Time, durationMinutes int) (*DebateSession, error) {
	if topicID == uuid.Nil {
		return nil, validationError("topic is required")
	}
	if moderatorID == uuid.Nil {
		return nil, validationError("moderator is required")
	}
	if durationMinutes < MinDurationMinutes || durationMinutes > MaxDurationMinutes {
		return nil, validationError(fmt.Sprintf("duration must be between %d and %d minutes", MinDurationMinutes, MaxDurationMinutes))
	}

	now := time.Now().UTC()
	session := &DebateSession{
		ID:              uuid.New(),
		TopicID:         topicID,
		ModeratorID:     moderatorID,
		DurationMinutes: durationMinutes,
		Status:          StatusOffline,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if scheduledStart != nil {
		start := scheduledStart.UTC()
		session.ScheduledStart = &start
	}

	return session, nil
}

// Clone returns a deep copy so callers can mutate without racing readers.
func (s *DebateSession) Clone() *DebateSession {
	if s == nil {
		return nil
	}
	c := *s
	c.ScheduledStart = cloneTime(s.ScheduledStart)
	c.JoiningStartedAt = cloneTime(s.JoiningStartedAt)
	c.JoiningWindowEnd = cloneTime(s.JoiningWindowEnd)
	c.DebateStartedAt = cloneTime(s.DebateStartedAt)
	c.DebateEndTime = cloneTime(s.DebateEndTime)
	c.VotingStartedAt = cloneTime(s.VotingStartedAt)
	c.VotingEndTime = cloneTime(s.VotingEndTime)
	if s.WinnerSide != nil {
		side := *s.WinnerSide
		c.WinnerSide = &side
	}
	return &c
}

func (s *DebateSession) IsModerator(userID uuid.UUID) bool {
	return s.ModeratorID == userID
}

func (s *DebateSession) StartJoiningWindow(now time.Time, window time.Duration) error {
	if s.Status != StatusOffline {
		return transitionError(s.Status, StatusOpen)
	}
	now = now.UTC()
	end := now.Add(window)
	s.Status = StatusOpen
	s.JoiningStartedAt = &now
	s.JoiningWindowEnd = &end
	s.UpdatedAt = now
	return nil
}

// CloseJoiningWindow moves the session to closed. The caller is responsible
// for demoting participants that joined after JoiningWindowEnd.
func (s *DebateSession) CloseJoiningWindow(now time.Time) error {
	if s.Status != StatusOpen {
		return transitionError(s.Status, StatusClosed)
	}
	s.Status = StatusClosed
	s.UpdatedAt = now.UTC()
	return nil
}

func (s *DebateSession) StartDebate(now time.Time) error {
	if s.Status != StatusOpen && s.Status != StatusClosed {
		return transitionError(s.Status, StatusOnline)
	}
	now = now.UTC()
	end := now.Add(time.Duration(s.DurationMinutes) * time.Minute)
	s.Status = StatusOnline
	s.DebateStartedAt = &now
	s.DebateEndTime = &end
	s.UpdatedAt = now
	return nil
}

func (s *DebateSession) EndDebateAndStartVoting(now time.Time, window time.Duration) error {
	if s.Status != StatusOnline {
		return transitionError(s.Status, StatusVoting)
	}
	now = now.UTC()
	end := now.Add(window)
	s.Status = StatusVoting
	s.VotingStartedAt = &now
	s.VotingEndTime = &end
	s.UpdatedAt = now
	return nil
}

// FinishVoting freezes the tally into the session. It must be computed from the
// votes present at the moment of the transition.
func (s *DebateSession) FinishVoting(now time.Time, result Tally) error {
	if s.Status != StatusVoting {
		return transitionError(s.Status, StatusFinished)
	}
	s.Status = StatusFinished
	s.WinnerSide = result.Winner
	s.TotalVotes = result.Total
	s.UpdatedAt = now.UTC()
	return nil
}

func (s *DebateSession) Cancel(now time.Time, reason string) error {
	if s.Status.Terminal() {
		return transitionError(s.Status, StatusCancelled)
	}
	s.Status = StatusCancelled
	s.CancelReason = strings.TrimSpace(reason)
	s.UpdatedAt = now.UTC()
	return nil
}

// ScheduledStartDue reports whether an offline session has reached its start time.
func (s *DebateSession) ScheduledStartDue(now time.Time) bool {
	return s.Status == StatusOffline && s.ScheduledStart != nil && !now.Before(*s.ScheduledStart)
}

// DerivePhase computes the effective phase from the latest lifecycle timestamp
// that is set, so a phase whose deadline passed is reported even before the
// scheduler persists the transition.
func DerivePhase(s *DebateSession, now time.Time) SessionStatus {
	if s.Status.Terminal() {
		return s.Status
	}

	switch {
	case s.VotingStartedAt != nil:
		if s.VotingEndTime != nil && !now.Before(*s.VotingEndTime) {
			return StatusFinished
		}
		return StatusVoting
	case s.DebateStartedAt != nil:
		if s.DebateEndTime != nil && !now.Before(*s.DebateEndTime) {
			return StatusVoting
		}
		return StatusOnline
	case s.JoiningStartedAt != nil:
		if s.Status == StatusClosed || (s.JoiningWindowEnd != nil && !now.Before(*s.JoiningWindowEnd)) {
			return StatusClosed
		}
		return StatusOpen
	}

	return StatusOffline
}

// NextPhase returns the phase that follows phase and, when it is timed, the
// moment it begins.
func NextPhase(s *DebateSession, phase SessionStatus) (SessionStatus, *time.Time) {
	switch phase {
	case StatusOffline:
		return StatusOpen, cloneTime(s.ScheduledStart)
	case StatusOpen:
		return StatusClosed, cloneTime(s.JoiningWindowEnd)
	case StatusClosed:
		return StatusOnline, nil
	case StatusOnline:
		return StatusVoting, cloneTime(s.DebateEndTime)
	case StatusVoting:
		return StatusFinished, cloneTime(s.VotingEndTime)
	}
	return "", nil
}

// PhaseBefore reports whether a precedes b in the forward lifecycle.
func PhaseBefore(a, b SessionStatus) bool {
	ai, aok := phaseOrder[a]
	bi, bok := phaseOrder[b]
	return aok && bok && ai < bi
}

func transitionError(from, to SessionStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
