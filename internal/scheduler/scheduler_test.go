package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/immxrtalbeast/debatehall/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubAdvancer struct {
	mu       sync.Mutex
	sessions []*domain.DebateSession
	results  map[uuid.UUID]error
	applied  int
	calls    []uuid.UUID
	listErr  error
}

func (s *stubAdvancer) ActiveSessions(context.Context) ([]*domain.DebateSession, error) {
	return s.sessions, s.listErr
}

func (s *stubAdvancer) AdvanceSession(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, id)
	if err := s.results[id]; err != nil {
		return 0, err
	}
	return s.applied, nil
}

func sessions(n int) []*domain.DebateSession {
	out := make([]*domain.DebateSession, n)
	for i := range out {
		out[i] = &domain.DebateSession{ID: uuid.New(), Status: domain.StatusOnline}
	}
	return out
}

func TestTick_AdvancesEverySession(t *testing.T) {
	stub := &stubAdvancer{sessions: sessions(10), applied: 1}
	s := New(stub, time.Second, 3, discard)

	applied, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, applied)
	assert.Len(t, stub.calls, 10)
}

func TestTick_CollectsFailures(t *testing.T) {
	all := sessions(3)
	boom := errors.New("db down")
	stub := &stubAdvancer{
		sessions: all,
		applied:  1,
		results: map[uuid.UUID]error{
			all[0].ID: boom,
			all[1].ID: domain.ErrInvalidTransition,
		},
	}
	s := New(stub, time.Second, 2, discard)

	applied, err := s.Tick(context.Background())
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 1, applied)
}

func TestTick_ListFailure(t *testing.T) {
	stub := &stubAdvancer{listErr: repository.ErrTransientStore}
	s := New(stub, time.Second, 2, discard)

	_, err := s.Tick(context.Background())
	require.ErrorIs(t, err, repository.ErrTransientStore)
}

func TestRun_StopsWithContext(t *testing.T) {
	stub := &stubAdvancer{sessions: sessions(1)}
	s := New(stub, 10*time.Millisecond, 1, discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		return len(stub.calls) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestTick_OpensScheduledSession(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewInMemoryRepositories()
	svc := service.NewSessionService(repos, service.NewSessionLocks(), nil, nil, service.DefaultSettings(), discard)

	start := time.Now().UTC().Add(-time.Minute)
	due, err := domain.NewDebateSession(uuid.New(), uuid.New(), &start, 30)
	require.NoError(t, err)
	require.NoError(t, repos.Sessions.Create(ctx, due))

	later := time.Now().UTC().Add(time.Hour)
	notYet, err := domain.NewDebateSession(uuid.New(), uuid.New(), &later, 30)
	require.NoError(t, err)
	require.NoError(t, repos.Sessions.Create(ctx, notYet))

	applied, err := New(svc, time.Second, 2, discard).Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	got, err := repos.Sessions.GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, got.Status)

	got, err = repos.Sessions.GetByID(ctx, notYet.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOffline, got.Status)
}
