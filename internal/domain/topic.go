package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxTopicTitleLength = 255

type DebateTopic struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewDebateTopic(title, description, category string, createdBy uuid.UUID) (*DebateTopic, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("topic title is required")
	}
	if utf8.RuneCountInString(title) > maxTopicTitleLength {
		return nil, validationError("topic title is too long")
	}

	return &DebateTopic{
		ID:          uuid.New(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Category:    strings.TrimSpace(category),
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
