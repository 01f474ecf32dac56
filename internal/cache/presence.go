package cache

import (
	"time"

	"github.com/google/uuid"
)

const keyPrefix = "debate_participants:"

// PresenceEntry is the cached record of one online user in a session.
type PresenceEntry struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

func presenceKey(sessionID uuid.UUID) string {
	return keyPrefix + sessionID.String()
}
