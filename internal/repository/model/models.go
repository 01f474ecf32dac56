package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username  string    `gorm:"size:150;not null"`
	Role      string    `gorm:"size:20;index;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type DebateTopic struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title       string    `gorm:"size:255;not null"`
	Description string    `gorm:"type:text"`
	Category    string    `gorm:"size:100"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

type DebateSession struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TopicID         uuid.UUID  `gorm:"type:uuid;index;not null"`
	ModeratorID     uuid.UUID  `gorm:"type:uuid;index;not null"`
	ScheduledStart  *time.Time `gorm:"index"`
	DurationMinutes int        `gorm:"not null"`
	Status          string     `gorm:"size:20;index;not null"`

	JoiningStartedAt *time.Time
	JoiningWindowEnd *time.Time
	DebateStartedAt  *time.Time
	DebateEndTime    *time.Time
	VotingStartedAt  *time.Time
	VotingEndTime    *time.Time

	WinnerSide   *string `gorm:"size:20"`
	TotalVotes   int     `gorm:"not null;default:0"`
	CancelReason string  `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Participations    []Participation    `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	Messages          []Message          `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	Votes             []Vote             `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	ModerationActions []ModerationAction `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

type Participation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_participation_session_user"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_participation_session_user"`
	Role          string    `gorm:"size:20;not null"`
	Side          string    `gorm:"size:20"`
	IsMuted       bool      `gorm:"not null;default:false"`
	WarningsCount int       `gorm:"not null;default:0"`
	JoinedAt      time.Time `gorm:"not null"`
	LeftAt        *time.Time
	RemovedAt     *time.Time
}

type Message struct {
	ID            int64      `gorm:"primaryKey;autoIncrement"`
	SessionID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_message_session_created"`
	AuthorID      *uuid.UUID `gorm:"type:uuid"`
	AuthorName    string     `gorm:"size:150"`
	Content       string     `gorm:"type:text;not null"`
	MessageType   string     `gorm:"size:20;not null"`
	ImageURL      string     `gorm:"size:2048"`
	ReplyToID     *int64
	IsDeleted     bool      `gorm:"not null;default:false"`
	IsFlagged     bool      `gorm:"not null;default:false"`
	FlaggedReason string    `gorm:"size:255"`
	IsHidden      bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"not null;index:idx_message_session_created"`
}

type Vote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_vote_session_user"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_vote_session_user"`
	Kind      string    `gorm:"size:10;not null"`
	Side      string    `gorm:"size:20"`
	VoteType  string    `gorm:"size:20"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type ModerationAction struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SessionID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ModeratorID  uuid.UUID  `gorm:"type:uuid;not null"`
	TargetUserID *uuid.UUID `gorm:"type:uuid"`
	Action       string     `gorm:"size:30;not null"`
	Reason       string     `gorm:"type:text"`
	CreatedAt    time.Time  `gorm:"not null;index"`
}

type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;index:idx_notification_recipient_read"`
	SenderID    *uuid.UUID `gorm:"type:uuid"`
	SessionID   *uuid.UUID `gorm:"type:uuid;index"`
	Type        string     `gorm:"size:30;not null"`
	Title       string     `gorm:"size:200;not null"`
	Message     string     `gorm:"type:text;not null"`
	Priority    string     `gorm:"size:10;not null"`
	IsRead      bool       `gorm:"not null;default:false;index:idx_notification_recipient_read"`
	ReadAt      *time.Time
	ExpiresAt   *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"not null;index"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&DebateTopic{},
		&DebateSession{},
		&Participation{},
		&Message{},
		&Vote{},
		&ModerationAction{},
		&Notification{},
	}
}
