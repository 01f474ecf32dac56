package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_NotifyAndMarkRead(t *testing.T) {
	f := newFixture(t)
	alice := uuid.New()
	bob := uuid.New()

	stored := f.notifications.Notify(f.ctx, []uuid.UUID{alice, bob, alice, uuid.Nil}, domain.NotificationTemplate{
		Type:    domain.NotifyDebateStarted,
		Title:   "Debate started",
		Message: "go",
	})
	assert.Equal(t, 2, stored, "duplicates and nil recipients are skipped")

	pushed := f.pub.direct[alice]
	require.Len(t, pushed, 2)
	assert.Equal(t, domain.EventNewNotification, pushed[0].EventType())
	assert.Equal(t, 1, pushed[1].(*domain.UnreadCountEvent).Count)

	f.notifications.Notify(f.ctx, []uuid.UUID{alice}, domain.NotificationTemplate{Type: domain.NotifySessionInvite, Title: "invite"})

	count, err := f.notifications.UnreadCount(f.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	list, err := f.notifications.List(f.ctx, alice, true)
	require.NoError(t, err)
	require.Len(t, list, 2)

	updated, err := f.notifications.MarkRead(f.ctx, alice, []uuid.UUID{list[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	last := f.pub.direct[alice][len(f.pub.direct[alice])-1]
	assert.Equal(t, 1, last.(*domain.UnreadCountEvent).Count)

	updated, err = f.notifications.MarkRead(f.ctx, alice, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	count, err = f.notifications.UnreadCount(f.ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	all, err := f.notifications.List(f.ctx, alice, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNotificationService_ExpiredAreHidden(t *testing.T) {
	f := newFixture(t)
	alice := uuid.New()

	f.notifications.Notify(f.ctx, []uuid.UUID{alice}, domain.NotificationTemplate{
		Type:      domain.NotifyVotingStarted,
		Title:     "Vote now",
		ExpiresIn: time.Minute,
	})
	count, err := f.notifications.UnreadCount(f.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	f.clock.Advance(time.Minute)

	count, err = f.notifications.UnreadCount(f.ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	list, err := f.notifications.List(f.ctx, alice, false)
	require.NoError(t, err)
	assert.Empty(t, list)
}
