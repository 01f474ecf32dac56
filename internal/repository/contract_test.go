package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runContract exercises behaviour every Repositories implementation must share.
func runContract(t *testing.T, newRepos func(t *testing.T) repository.Repositories) {
	t.Run("users", func(t *testing.T) { testUsers(t, newRepos(t)) })
	t.Run("session status compare and swap", func(t *testing.T) { testSessionCAS(t, newRepos(t)) })
	t.Run("participation upsert", func(t *testing.T) { testParticipations(t, newRepos(t)) })
	t.Run("messages", func(t *testing.T) { testMessages(t, newRepos(t)) })
	t.Run("votes", func(t *testing.T) { testVotes(t, newRepos(t)) })
	t.Run("concurrent type votes", func(t *testing.T) { testVotesConcurrentCreate(t, newRepos(t)) })
	t.Run("notifications", func(t *testing.T) { testNotifications(t, newRepos(t)) })
	t.Run("moderation log", func(t *testing.T) { testModeration(t, newRepos(t)) })
	t.Run("listings", func(t *testing.T) { testListings(t, newRepos(t)) })
}

func seedSession(t *testing.T, repos repository.Repositories) *domain.DebateSession {
	t.Helper()
	ctx := context.Background()

	moderator := domain.NewUser(uuid.New(), "moderator", domain.UserRoleModerator)
	require.NoError(t, repos.Users.Create(ctx, moderator))

	topic, err := domain.NewDebateTopic("School uniforms", "", "education", moderator.ID)
	require.NoError(t, err)
	require.NoError(t, repos.Topics.Create(ctx, topic))

	session, err := domain.NewDebateSession(topic.ID, moderator.ID, nil, 30)
	require.NoError(t, err)
	require.NoError(t, repos.Sessions.Create(ctx, session))
	return session
}

func testUsers(t *testing.T, repos repository.Repositories) {
	ctx := context.Background()

	student := domain.NewUser(uuid.New(), "alice", domain.UserRoleStudent)
	require.NoError(t, repos.Users.Create(ctx, student))
	require.NoError(t, repos.Users.Create(ctx, domain.NewUser(uuid.New(), "mod", domain.UserRoleModerator)))

	got, err := repos.Users.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	students, err := repos.Users.ListByRole(ctx, domain.UserRoleStudent)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, student.ID, students[0].ID)

	_, err = repos.Users.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	assert.ErrorIs(t, repos.Users.Update(ctx, domain.NewUser(uuid.New(), "ghost", domain.UserRoleStudent)), repository.ErrUserNotFound)
}

func testSessionCAS(t *testing.T, repos repository.Repositories) {
	ctx := context.Background()
	session := seedSession(t, repos)

	opened := session.Clone()
	require.NoError(t, opened.StartJoiningWindow(time.Now(), 5*time.Minute))
	require.NoError(t, repos.Sessions.Update(ctx, opened, domain.StatusOffline))

	stale := session.Clone()
	require.NoError(t, stale.Cancel(time.Now(), "late"))
	assert.ErrorIs(t, repos.Sessions.Update(ctx, stale, domain.StatusOffline), repository.ErrStatusConflict)

	got, err := repos.Sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, got.Status)
	require.NotNil(t, got.JoiningWindowEnd)
	assert.WithinDuration(t, *opened.JoiningWindowEnd, *got.JoiningWindowEnd, time.Millisecond)

	active, err := repos.Sessions.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	missing := session.Clone()
	missing.ID = uuid.New()
	assert.ErrorIs(t, repos.Sessions.Update(ctx, missing, domain.StatusOffline), repository.ErrSessionNotFound)
}

func testParticipations(t *testing.T, repos repository.Repositories) {
	ctx := context.Background()
	session := seedSession(t, repos)
	userID := uuid.New()

	p, err := domain.NewParticipation(session.ID, userID, domain.RoleParticipant, domain.SideProposition, time.Now())
	require.NoError(t, err)
	require.NoError(t, repos.Participations.Upsert(ctx, p))
	firstID := p.ID

	again, err := domain.NewParticipation(session.ID, userID, domain.RoleViewer, "", time.Now())
	require.NoError(t, err)
	again.IsMuted = true
	require.NoError(t, repos.Participations.Upsert(ctx, again))
	assert.Equal(t, firstID, again.ID)

	got, err := repos.Participations.Get(ctx, session.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleViewer, got.Role)
	assert.True(t, got.IsMuted)

	list, err := repos.Participations.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repos.Participations.Get(ctx, session.ID, uuid.New())
	assert.ErrorIs(t, err, repository.ErrParticipationNotFound)
}

func testMessages(t *testing.T, repos repository.Repositories) {
	ctx := context.Background()
	session := seedSession(t, repos)

	var ids []int64
	for _, text := range []string{"first", "second", "third"} {
		msg := domain.NewSystemMessage(session.ID, text)
		require.NoError(t, repos.Messages.Create(ctx, msg))
		ids = append(ids, msg.ID)
	}
	assert.Less(t, ids[0], ids[1])
	assert.Less(t, ids[1], ids[2])

	latest, err := repos.Messages.ListBySession(ctx, session.ID, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "second", latest[0].Content)
	assert.Equal(t, "third", latest[1].Content)

	count, err := repos.Messages.CountBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	got, err := repos.Messages.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.SessionID)
	assert.True(t, got.IsSystem())

	_, err = repos.Messages.GetByID(ctx, 999999)
	assert.ErrorIs(t, err, repository.ErrMessageNotFound)
}

func testVotes(t *testing.T, repos repository.Repositories) {
	ctx := context.Background()
	session := seedSession(t, repos)
	voter := uuid.New()

	typeVote, err := domain.NewVote(session.ID, voter, domain.VoteChoice{VoteType: domain.VoteBestArgument}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repos.Votes.Create(ctx, typeVote))

	dup, err := domain.NewVote(session.ID, voter, domain.VoteChoice{VoteType: domain.VoteWinningSide}, time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, repos.Votes.Create(ctx, dup), repository.ErrVoteExists)

	sideAfterType, err := domain.NewVote(session.ID, voter, domain.VoteChoice{Side: domain.SideProposition}, time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, repos.Votes.Upsert(ctx, sideAfterType), repository.ErrVoteExists)

	viewer := uuid.New()
	first, err := domain.NewVote(session.ID, viewer, domain.VoteChoice{Side: domain.SideProposition}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repos.Votes.Upsert(ctx, first))
	changed, err := domain.NewVote(session.ID, viewer, domain.VoteChoice{Side: domain.SideOpposition}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repos.Votes.Upsert(ctx, changed))

	typeAfterSide, err := domain.NewVote(session.ID, viewer, domain.VoteChoice{VoteType: domain.VoteWinningSide}, time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, repos.Votes.Create(ctx, typeAfterSide), repository.ErrVoteExists)

	votes, err := repos.Votes.ListByUser(ctx, session.ID, viewer)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, domain.SideOpposition, votes[0].Side)

	all, err := repos.Votes.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	tally := domain.TallyVotes(all)
	assert.Equal(t, 1, tally.Opposition)
	assert.Equal(t, 0, tally.Proposition)
	assert.Equal(t, 1, tally.TypeCounts[domain.VoteBestArgument])
}

func testVotesConcurrentCreate(t *testing.T, repos repository.Repositories) {
	ctx := context.Background()
	session := seedSession(t, repos)
	voter := uuid.New()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := domain.NewVote(session.ID, voter, domain.VoteChoice{VoteType: domain.VoteWinningSide}, time.Now())
			errs <- repos.Votes.Create(ctx, v)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrVoteExists)
	}
	assert.Equal(t, 1, succeeded)
}

func testNotifications(t *testing.T, repos repository.Repositories) {
	ctx := context.Background()
	now := time.Now().UTC()
	recipient := uuid.New()

	tmpl := domain.NotificationTemplate{Type: domain.NotifyDebateStarted, Title: "Debate started", Message: "go"}
	first := tmpl.For(recipient, now.Add(-time.Minute))
	second := tmpl.For(recipient, now)
	expired := domain.NotificationTemplate{Type: domain.NotifyJoiningOpened, Title: "old", Message: "old", ExpiresIn: time.Second}.
		For(recipient, now.Add(-time.Hour))
	other := tmpl.For(uuid.New(), now)

	for _, n := range []*domain.Notification{first, second, expired, other} {
		require.NoError(t, repos.Notifications.Create(ctx, n))
	}

	list, err := repos.Notifications.ListByRecipient(ctx, recipient, false, now)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	count, err := repos.Notifications.CountUnread(ctx, recipient, now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	updated, err := repos.Notifications.MarkRead(ctx, recipient, []uuid.UUID{first.ID}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	unread, err := repos.Notifications.ListByRecipient(ctx, recipient, true, now)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, second.ID, unread[0].ID)

	updated, err = repos.Notifications.MarkRead(ctx, recipient, nil, now)
	require.NoError(t, err)
	assert.Equal(t, 2, updated, "expired notifications are marked too")

	count, err = repos.Notifications.CountUnread(ctx, recipient, now)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func testModeration(t *testing.T, repos repository.Repositories) {
	ctx := context.Background()
	session := seedSession(t, repos)
	target := uuid.New()

	require.NoError(t, repos.Moderation.Create(ctx, domain.NewModerationAction(session.ID, session.ModeratorID, &target, domain.ActionWarn, "tone")))
	require.NoError(t, repos.Moderation.Create(ctx, domain.NewModerationAction(session.ID, session.ModeratorID, nil, domain.ActionCancel, "")))

	actions, err := repos.Moderation.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, domain.ActionWarn, actions[0].Action)
	require.NotNil(t, actions[0].TargetUserID)
	assert.Equal(t, target, *actions[0].TargetUserID)
	assert.Nil(t, actions[1].TargetUserID)
}

func testListings(t *testing.T, repos repository.Repositories) {
	ctx := context.Background()
	first := seedSession(t, repos)
	second := seedSession(t, repos)

	opened := second.Clone()
	require.NoError(t, opened.StartJoiningWindow(time.Now(), 5*time.Minute))
	require.NoError(t, repos.Sessions.Update(ctx, opened, domain.StatusOffline))

	all, err := repos.Sessions.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := repos.Sessions.List(ctx, []domain.SessionStatus{domain.StatusOpen})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	topics, err := repos.Topics.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, topics, 2)
	topics, err = repos.Topics.List(ctx, "sports")
	require.NoError(t, err)
	assert.Empty(t, topics)

	alice := uuid.New()
	for _, session := range []*domain.DebateSession{first, second} {
		p, err := domain.NewParticipation(session.ID, alice, domain.RoleParticipant, domain.SideProposition, time.Now())
		require.NoError(t, err)
		require.NoError(t, repos.Participations.Upsert(ctx, p))
	}
	mine, err := repos.Participations.ListByUser(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	author := domain.Principal{UserID: alice, Username: "alice", Role: domain.UserRoleStudent}
	for _, text := range []string{"one", "two"} {
		msg, err := domain.NewChatMessage(first.ID, author, text, "", nil)
		require.NoError(t, err)
		require.NoError(t, repos.Messages.Create(ctx, msg))
	}
	require.NoError(t, repos.Messages.Create(ctx, domain.NewSystemMessage(first.ID, "alice joined as Participant")))

	sent, err := repos.Messages.CountByAuthor(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}
