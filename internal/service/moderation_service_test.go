package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onlineSession(t *testing.T, f *fixture, debaters ...domain.Principal) *domain.DebateSession {
	t.Helper()
	session := f.openSession()
	sides := []domain.Side{domain.SideProposition, domain.SideOpposition}
	for i, d := range debaters {
		f.join(d, session.ID, domain.RoleParticipant, sides[i%2])
	}
	_, err := f.sessions.StartDebate(f.ctx, f.moderator, session.ID)
	require.NoError(t, err)
	return session
}

func TestModerationService_MuteGatesChat(t *testing.T) {
	f := newFixture(t)
	alice := f.student("alice")
	session := onlineSession(t, f, alice)

	_, err := f.chat.SendMessage(f.ctx, alice, session.ID, "first", "", nil)
	require.NoError(t, err)

	p, err := f.moderation.Mute(f.ctx, f.moderator, session.ID, alice.UserID, "too loud")
	require.NoError(t, err)
	assert.True(t, p.IsMuted)

	_, err = f.chat.SendMessage(f.ctx, alice, session.ID, "second", "", nil)
	require.ErrorIs(t, err, domain.ErrNotEligible)

	_, err = f.moderation.Unmute(f.ctx, f.moderator, session.ID, alice.UserID)
	require.NoError(t, err)

	_, err = f.chat.SendMessage(f.ctx, alice, session.ID, "third", "", nil)
	require.NoError(t, err)

	msgs, err := f.repos.Messages.ListBySession(f.ctx, session.ID, 10)
	require.NoError(t, err)
	var contents []string
	for _, m := range msgs {
		if !m.IsSystem() {
			contents = append(contents, m.Content)
		}
	}
	assert.Equal(t, []string{"first", "third"}, contents)

	notes := f.notificationsOf(alice.UserID)
	assert.True(t, hasNotification(notes, domain.NotifyModerationAction))
	for _, n := range notes {
		if n.Type == domain.NotifyModerationAction && n.Message == `The moderator applied "mute" to you: too loud` {
			assert.Equal(t, domain.PriorityHigh, n.Priority)
		}
	}

	events := f.pub.roomEvents(session.ID, domain.EventModerationAction)
	require.Len(t, events, 2)
	first := events[0].(*domain.ModerationEvent)
	assert.Equal(t, domain.ActionMute, first.Action)
	assert.Equal(t, "alice", first.TargetUsername)
	assert.Equal(t, "moderator", first.Moderator)
}

func TestModerationService_Warn(t *testing.T) {
	f := newFixture(t)
	alice := f.student("alice")
	session := onlineSession(t, f, alice)

	for i := 1; i <= 3; i++ {
		p, err := f.moderation.Warn(f.ctx, f.moderator, session.ID, alice.UserID, "off topic")
		require.NoError(t, err)
		assert.Equal(t, i, p.WarningsCount)
		assert.False(t, p.IsMuted, "warnings never escalate by default")
	}

	actions, err := f.moderation.ListActions(f.ctx, f.moderator, session.ID)
	require.NoError(t, err)
	assert.Len(t, actions, 3)
}

func TestModerationService_WarnAutoMute(t *testing.T) {
	f := newFixture(t, func(s *Settings) { s.AutoMuteWarnings = 2 })
	alice := f.student("alice")
	session := onlineSession(t, f, alice)

	p, err := f.moderation.Warn(f.ctx, f.moderator, session.ID, alice.UserID, "")
	require.NoError(t, err)
	assert.False(t, p.IsMuted)

	p, err = f.moderation.Warn(f.ctx, f.moderator, session.ID, alice.UserID, "")
	require.NoError(t, err)
	assert.True(t, p.IsMuted)
}

func TestModerationService_Remove(t *testing.T) {
	f := newFixture(t)
	alice := f.student("alice")
	session := onlineSession(t, f, alice)

	_, err := f.presence.Add(f.ctx, session.ID, alice)
	require.NoError(t, err)

	p, err := f.moderation.Remove(f.ctx, f.moderator, session.ID, alice.UserID, "abuse")
	require.NoError(t, err)
	assert.NotNil(t, p.RemovedAt)

	assert.Contains(t, f.pub.disconnected, alice.UserID)
	online, err := f.presence.List(f.ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, online)

	_, err = f.chat.SendMessage(f.ctx, alice, session.ID, "let me back", "", nil)
	require.ErrorIs(t, err, domain.ErrNotEligible)

	_, err = f.presence.Add(f.ctx, session.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotEligible)
}

func TestModerationService_Permissions(t *testing.T) {
	f := newFixture(t)
	alice := f.student("alice")
	bob := f.student("bob")
	session := onlineSession(t, f, alice)

	_, err := f.moderation.Mute(f.ctx, bob, session.ID, alice.UserID, "")
	require.ErrorIs(t, err, domain.ErrNotEligible)

	_, err = f.moderation.ListActions(f.ctx, bob, session.ID)
	require.ErrorIs(t, err, domain.ErrNotEligible)

	_, err = f.moderation.Mute(f.ctx, f.moderator, session.ID, f.moderator.UserID, "")
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.moderation.Mute(f.ctx, f.moderator, session.ID, uuid.New(), "")
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestModerationService_MuteCreatesParticipation(t *testing.T) {
	f := newFixture(t)
	alice := f.student("alice")
	dave := f.student("dave")
	session := onlineSession(t, f, alice)

	p, err := f.moderation.Mute(f.ctx, f.moderator, session.ID, dave.UserID, "pre-emptive")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleViewer, p.Role)
	assert.True(t, p.IsMuted)

	stored, err := f.repos.Participations.Get(f.ctx, session.ID, dave.UserID)
	require.NoError(t, err)
	assert.True(t, stored.IsMuted)
}
