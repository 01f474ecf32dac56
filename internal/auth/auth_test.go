package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_RoundTrip(t *testing.T) {
	svc := NewService("secret", "debatehall", time.Hour)
	principal := domain.Principal{UserID: uuid.New(), Username: "alice", Role: domain.UserRoleStudent}

	token, err := svc.IssueToken(principal)
	require.NoError(t, err)

	got, err := svc.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, principal, got)
}

func TestService_Resolve_Errors(t *testing.T) {
	svc := NewService("secret", "debatehall", time.Hour)
	principal := domain.Principal{UserID: uuid.New(), Username: "alice", Role: domain.UserRoleModerator}

	otherKey, err := NewService("other", "debatehall", time.Hour).IssueToken(principal)
	require.NoError(t, err)
	otherIssuer, err := NewService("secret", "someone-else", time.Hour).IssueToken(principal)
	require.NoError(t, err)
	expired, err := NewService("secret", "debatehall", -time.Minute).IssueToken(principal)
	require.NoError(t, err)

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           uuid.NewString(),
		Role:             "janitor",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "debatehall"},
	})
	badRoleToken, err := badRole.SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "  ", want: ErrMissingToken},
		{name: "garbage", token: "not-a-token", want: ErrInvalidToken},
		{name: "wrong key", token: otherKey, want: ErrInvalidToken},
		{name: "wrong issuer", token: otherIssuer, want: ErrInvalidToken},
		{name: "expired", token: expired, want: ErrInvalidToken},
		{name: "unknown role", token: badRoleToken, want: ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Resolve(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
