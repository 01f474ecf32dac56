package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleStudent   UserRole = "student"
	UserRoleModerator UserRole = "moderator"
	UserRoleAdmin     UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleStudent, UserRoleModerator, UserRoleAdmin:
		return true
	}
	return false
}

// User is the durable profile behind an authenticated principal.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUser(id uuid.UUID, username string, role UserRole) *User {
	now := time.Now().UTC()
	return &User{
		ID:        id,
		Username:  strings.TrimSpace(username),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Principal is the identity resolved from a bearer credential.
type Principal struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Role     UserRole  `json:"role"`
}

func (p Principal) IsStudent() bool {
	return p.Role == UserRoleStudent
}

func (p Principal) CanModerate() bool {
	return p.Role == UserRoleModerator || p.Role == UserRoleAdmin
}

func (p Principal) User() *User {
	return NewUser(p.UserID, p.Username, p.Role)
}
