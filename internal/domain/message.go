package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxMessageLength = 4000

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
	MessageImage  MessageType = "image"
)

// Message is a chat line. ID is a serial assigned by the store and breaks
// ordering ties between messages created in the same instant.
type Message struct {
	ID            int64       `json:"id"`
	SessionID     uuid.UUID   `json:"session_id"`
	AuthorID      *uuid.UUID  `json:"author_id,omitempty"`
	AuthorName    string      `json:"author_name,omitempty"`
	Content       string      `json:"content"`
	Type          MessageType `json:"message_type"`
	ImageURL      string      `json:"image_url,omitempty"`
	ReplyToID     *int64      `json:"reply_to,omitempty"`
	IsDeleted     bool        `json:"is_deleted"`
	IsFlagged     bool        `json:"is_flagged"`
	FlaggedReason string      `json:"flagged_reason,omitempty"`
	IsHidden      bool        `json:"is_hidden"`
	CreatedAt     time.Time   `json:"created_at"`
}

func NewChatMessage(sessionID uuid.UUID, author Principal, content, imageURL string, replyTo *int64) (*Message, error) {
	content = strings.TrimSpace(content)
	imageURL = strings.TrimSpace(imageURL)
	if content == "" && imageURL == "" {
		return nil, validationError("message cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, validationError("message is too long")
	}

	authorID := author.UserID
	msg := &Message{
		SessionID:  sessionID,
		AuthorID:   &authorID,
		AuthorName: author.Username,
		Content:    content,
		Type:       MessageText,
		ImageURL:   imageURL,
		ReplyToID:  replyTo,
		CreatedAt:  time.Now().UTC(),
	}
	if imageURL != "" {
		msg.Type = MessageImage
	}
	return msg, nil
}

func NewSystemMessage(sessionID uuid.UUID, content string) *Message {
	return &Message{
		SessionID: sessionID,
		Content:   content,
		Type:      MessageSystem,
		CreatedAt: time.Now().UTC(),
	}
}

func (m *Message) IsSystem() bool {
	return m.AuthorID == nil
}
