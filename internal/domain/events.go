package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventConnectionEstablished = "connection_established"
	EventUserJoined            = "user_joined"
	EventUserLeft              = "user_left"
	EventParticipantUpdate     = "participant_update"
	EventMessage               = "message"
	EventTyping                = "typing_notification"
	EventReaction              = "message_reaction"
	EventModerationAction      = "moderation_action"
	EventSessionStatusUpdate   = "session_status_update"
	EventVoteUpdate            = "vote_update"
	EventError                 = "error"
	EventPong                  = "pong"
	EventUnreadCount           = "unread_count"
	EventNewNotification       = "new_notification"
)

// Event is anything pushed to a socket. The JSON form always carries "type".
type Event interface {
	EventType() string
}

type header struct {
	Type string `json:"type"`
}

func (h header) EventType() string { return h.Type }

// OnlineParticipant is a registry entry enriched with durable moderation state.
type OnlineParticipant struct {
	UserID        uuid.UUID `json:"user_id"`
	Username      string    `json:"username"`
	Role          string    `json:"role"`
	Side          Side      `json:"side,omitempty"`
	IsMuted       bool      `json:"is_muted"`
	WarningsCount int       `json:"warnings_count"`
	JoinedAt      time.Time `json:"joined_at"`
}

type ConnectionEstablishedEvent struct {
	header
	Message      string              `json:"message"`
	SessionID    uuid.UUID           `json:"session_id"`
	UserID       uuid.UUID           `json:"user_id"`
	Username     string              `json:"username"`
	Role         string              `json:"role"`
	Phase        SessionStatus       `json:"phase"`
	Participants []OnlineParticipant `json:"participants"`
	Messages     []*Message          `json:"messages"`
}

func NewConnectionEstablishedEvent(sessionID uuid.UUID, user Principal, role string, phase SessionStatus, participants []OnlineParticipant, messages []*Message) *ConnectionEstablishedEvent {
	if participants == nil {
		participants = []OnlineParticipant{}
	}
	if messages == nil {
		messages = []*Message{}
	}
	return &ConnectionEstablishedEvent{
		header:       header{Type: EventConnectionEstablished},
		Message:      "Connected to debate session " + sessionID.String(),
		SessionID:    sessionID,
		UserID:       user.UserID,
		Username:     user.Username,
		Role:         role,
		Phase:        phase,
		Participants: participants,
		Messages:     messages,
	}
}

// PresenceEvent announces a join or a leave together with who is online
// right after it.
type PresenceEvent struct {
	header
	UserID       uuid.UUID           `json:"user_id"`
	Username     string              `json:"username"`
	Role         string              `json:"role"`
	Participants []OnlineParticipant `json:"participants"`
	Timestamp    time.Time           `json:"timestamp"`
}

func NewUserJoinedEvent(userID uuid.UUID, username, role string, participants []OnlineParticipant, at time.Time) *PresenceEvent {
	return newPresenceEvent(EventUserJoined, userID, username, role, participants, at)
}

func NewUserLeftEvent(userID uuid.UUID, username, role string, participants []OnlineParticipant, at time.Time) *PresenceEvent {
	return newPresenceEvent(EventUserLeft, userID, username, role, participants, at)
}

func newPresenceEvent(kind string, userID uuid.UUID, username, role string, participants []OnlineParticipant, at time.Time) *PresenceEvent {
	if participants == nil {
		participants = []OnlineParticipant{}
	}
	return &PresenceEvent{
		header:       header{Type: kind},
		UserID:       userID,
		Username:     username,
		Role:         role,
		Participants: participants,
		Timestamp:    at.UTC(),
	}
}

type ParticipantUpdateEvent struct {
	header
	Participants []OnlineParticipant `json:"participants"`
}

func NewParticipantUpdateEvent(participants []OnlineParticipant) *ParticipantUpdateEvent {
	return &ParticipantUpdateEvent{header: header{Type: EventParticipantUpdate}, Participants: participants}
}

// MessageEvent is a chat line flattened for the socket. System lines carry
// no author.
type MessageEvent struct {
	header
	ID          int64       `json:"id"`
	Message     string      `json:"message"`
	UserID      *uuid.UUID  `json:"user_id"`
	Username    string      `json:"username"`
	Timestamp   time.Time   `json:"timestamp"`
	MessageType MessageType `json:"message_type"`
	ImageURL    string      `json:"image_url,omitempty"`
	ReplyTo     *int64      `json:"reply_to,omitempty"`
}

func NewMessageEvent(msg *Message) *MessageEvent {
	return &MessageEvent{
		header:      header{Type: EventMessage},
		ID:          msg.ID,
		Message:     msg.Content,
		UserID:      msg.AuthorID,
		Username:    msg.AuthorName,
		Timestamp:   msg.CreatedAt,
		MessageType: msg.Type,
		ImageURL:    msg.ImageURL,
		ReplyTo:     msg.ReplyToID,
	}
}

type TypingEvent struct {
	header
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Action   string    `json:"action"`
}

func NewTypingEvent(userID uuid.UUID, username, action string) *TypingEvent {
	return &TypingEvent{header: header{Type: EventTyping}, UserID: userID, Username: username, Action: action}
}

type ReactionEvent struct {
	header
	MessageID int64     `json:"message_id"`
	Emoji     string    `json:"emoji"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
}

func NewReactionEvent(messageID int64, emoji string, userID uuid.UUID, username string) *ReactionEvent {
	return &ReactionEvent{header: header{Type: EventReaction}, MessageID: messageID, Emoji: emoji, UserID: userID, Username: username}
}

type ModerationEvent struct {
	header
	Action         ModerationActionType `json:"action"`
	TargetUserID   uuid.UUID            `json:"target_user_id"`
	TargetUsername string               `json:"target_username"`
	Moderator      string               `json:"moderator"`
	Reason         string               `json:"reason,omitempty"`
	WarningsCount  int                  `json:"warnings_count"`
	Participants   []OnlineParticipant  `json:"participants"`
}

func NewModerationEvent(action ModerationActionType, target *User, moderator string, reason string, warnings int, participants []OnlineParticipant) *ModerationEvent {
	return &ModerationEvent{
		header:         header{Type: EventModerationAction},
		Action:         action,
		TargetUserID:   target.ID,
		TargetUsername: target.Username,
		Moderator:      moderator,
		Reason:         reason,
		WarningsCount:  warnings,
		Participants:   participants,
	}
}

type SessionStatusEvent struct {
	header
	Event            string        `json:"event_type"`
	SessionStatus    SessionStatus `json:"session_status"`
	Timestamp        time.Time     `json:"timestamp"`
	JoiningWindowEnd *time.Time    `json:"joining_window_end,omitempty"`
	DebateEndTime    *time.Time    `json:"debate_end_time,omitempty"`
	VotingEndTime    *time.Time    `json:"voting_end_time,omitempty"`
	Winner           *Side         `json:"winner,omitempty"`
	TotalVotes       *int          `json:"total_votes,omitempty"`
	Reason           string        `json:"reason,omitempty"`
}

// NewSessionStatusEvent snapshots the fields of s that are relevant to the
// transition named by event.
func NewSessionStatusEvent(event string, s *DebateSession, at time.Time) *SessionStatusEvent {
	e := &SessionStatusEvent{
		header:        header{Type: EventSessionStatusUpdate},
		Event:         event,
		SessionStatus: s.Status,
		Timestamp:     at.UTC(),
	}
	switch s.Status {
	case StatusOpen:
		e.JoiningWindowEnd = cloneTime(s.JoiningWindowEnd)
	case StatusOnline:
		e.DebateEndTime = cloneTime(s.DebateEndTime)
	case StatusVoting:
		e.VotingEndTime = cloneTime(s.VotingEndTime)
	case StatusFinished:
		e.Winner = s.WinnerSide
		total := s.TotalVotes
		e.TotalVotes = &total
	case StatusCancelled:
		e.Reason = s.CancelReason
	}
	return e
}

type VoteUpdateEvent struct {
	header
	SessionID  uuid.UUID    `json:"session_id"`
	SideCounts map[Side]int `json:"side_counts"`
	TotalVotes int          `json:"total_votes"`
	NewVote    *Vote        `json:"new_vote"`
}

func NewVoteUpdateEvent(sessionID uuid.UUID, tally Tally, vote *Vote) *VoteUpdateEvent {
	return &VoteUpdateEvent{
		header:    header{Type: EventVoteUpdate},
		SessionID: sessionID,
		SideCounts: map[Side]int{
			SideProposition: tally.Proposition,
			SideOpposition:  tally.Opposition,
		},
		TotalVotes: tally.Total,
		NewVote:    vote,
	}
}

type ErrorEvent struct {
	header
	Message string `json:"message"`
}

func NewErrorEvent(msg string) *ErrorEvent {
	return &ErrorEvent{header: header{Type: EventError}, Message: msg}
}

type PongEvent struct {
	header
	Timestamp time.Time `json:"timestamp"`
}

func NewPongEvent(at time.Time) *PongEvent {
	return &PongEvent{header: header{Type: EventPong}, Timestamp: at.UTC()}
}

type UnreadCountEvent struct {
	header
	Count int `json:"count"`
}

func NewUnreadCountEvent(count int) *UnreadCountEvent {
	return &UnreadCountEvent{header: header{Type: EventUnreadCount}, Count: count}
}

type NotificationEvent struct {
	header
	Notification *Notification `json:"notification"`
}

func NewNotificationEvent(n *Notification) *NotificationEvent {
	return &NotificationEvent{header: header{Type: EventNewNotification}, Notification: n}
}
