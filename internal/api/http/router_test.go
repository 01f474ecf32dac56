package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/api/http/mocks"
	"github.com/immxrtalbeast/debatehall/internal/auth"
	"github.com/immxrtalbeast/debatehall/internal/cache"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/realtime"
	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/immxrtalbeast/debatehall/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	auth   *auth.Service
	hub    *realtime.Hub
	repos  repository.Repositories

	moderator domain.Principal
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithChat(t, nil)
}

// newTestServerWithChat lets a test wrap the chat service seen by sockets.
func newTestServerWithChat(t *testing.T, wrap func(service.ChatInteractor) service.ChatInteractor) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := repository.NewInMemoryRepositories()
	hub := realtime.NewHub(log)
	locks := service.NewSessionLocks()
	settings := service.DefaultSettings()
	authService := auth.NewService("test-secret", "debatehall-test", time.Hour)

	notifications := service.NewNotificationService(repos.Notifications, hub, log)
	presence := service.NewPresenceService(cache.NewMemoryPresenceCache(time.Hour), repos, hub, log)
	sessions := service.NewSessionService(repos, locks, notifications, hub, settings, log)
	var chat service.ChatInteractor = service.NewChatService(repos, locks, hub, log)
	if wrap != nil {
		chat = wrap(chat)
	}

	router, err := SetupRouter(RouterConfig{AllowOrigins: []string{"http://localhost:3000"}}, authService, Controllers{
		Users:         NewUserController(service.NewUserService(repos.Users, log), log),
		Topics:        NewTopicController(service.NewTopicService(repos.Topics, repos.Users, log), log),
		Sessions:      NewSessionController(sessions, presence, log),
		Moderation:    NewModerationController(service.NewModerationService(repos, locks, presence, notifications, hub, settings, log), log),
		Votes:         NewVoteController(service.NewVotingService(repos, locks, hub, log), log),
		Notifications: NewNotificationController(notifications, log),
		Reports:       NewReportController(service.NewReportService(repos, log), log),
		Sockets: NewSocketController(SocketConfig{TypingTimeout: 50 * time.Millisecond},
			authService, sessions, presence, chat, notifications, hub, log),
	})
	require.NoError(t, err)

	return &testServer{
		t:         t,
		router:    router,
		auth:      authService,
		hub:       hub,
		repos:     repos,
		moderator: domain.Principal{UserID: uuid.New(), Username: "moderator", Role: domain.UserRoleModerator},
	}
}

func (s *testServer) token(p domain.Principal) string {
	s.t.Helper()
	token, err := s.auth.IssueToken(p)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(p *domain.Principal, method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(*p))
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) expect(p *domain.Principal, method, path string, body any, status int) map[string]any {
	s.t.Helper()
	rec := s.do(p, method, path, body)
	require.Equal(s.t, status, rec.Code, rec.Body.String())

	var out map[string]any
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *testServer) student(name string) domain.Principal {
	p := domain.Principal{UserID: uuid.New(), Username: name, Role: domain.UserRoleStudent}
	s.expect(&p, http.MethodGet, "/api/users/me", nil, http.StatusOK)
	return p
}

// createSession returns the id of a fresh offline session owned by the moderator.
func (s *testServer) createSession() string {
	s.t.Helper()
	topic := s.expect(&s.moderator, http.MethodPost, "/api/topics", gin.H{
		"title":    "Should exams be abolished?",
		"category": "education",
	}, http.StatusCreated)
	topicID := topic["topic"].(map[string]any)["id"].(string)

	created := s.expect(&s.moderator, http.MethodPost, "/api/sessions", gin.H{
		"topic_id":         topicID,
		"duration_minutes": 30,
	}, http.StatusCreated)
	return created["session"].(map[string]any)["id"].(string)
}

func (s *testServer) move(sessionID, command string) map[string]any {
	s.t.Helper()
	return s.expect(&s.moderator, http.MethodPost, "/api/sessions/"+sessionID+"/"+command, nil, http.StatusOK)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(nil, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockPrincipalResolver(ctrl)

	alice := domain.Principal{UserID: uuid.New(), Username: "alice", Role: domain.UserRoleStudent}
	resolver.EXPECT().Resolve(gomock.Any(), "good").Return(alice, nil)
	resolver.EXPECT().Resolve(gomock.Any(), "").Return(domain.Principal{}, auth.ErrMissingToken)
	resolver.EXPECT().Resolve(gomock.Any(), "bad").Return(domain.Principal{}, auth.ErrInvalidToken)

	router := gin.New()
	router.GET("/whoami", AuthMiddleware(resolver), func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"username": principalFrom(ctx).Username})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid bearer", header: "Bearer good", status: http.StatusOK},
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "invalid token", header: "bearer bad", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("BEARER  abc "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("Bearer"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("op: %w", domain.ErrInvalidTransition), http.StatusConflict},
		{domain.ErrAlreadyVoted, http.StatusConflict},
		{domain.ErrSessionNotVoting, http.StatusConflict},
		{domain.ErrNotModerator, http.StatusForbidden},
		{repository.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: bad", domain.ErrValidation), http.StatusBadRequest},
		{auth.ErrInvalidToken, http.StatusUnauthorized},
		{repository.ErrTransientStore, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), tt.err.Error())
	}
}

func TestRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(nil, http.MethodGet, "/api/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), auth.ErrMissingToken.Error())
}

func TestDebateLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	sessionID := s.createSession()
	pro := s.student("pro")
	viewer := s.student("viewer")
	base := "/api/sessions/" + sessionID

	s.expect(&pro, http.MethodPost, base+"/join", gin.H{"role": "participant", "side": "proposition"}, http.StatusForbidden)

	opened := s.move(sessionID, "start-joining-window")
	assert.Equal(t, "open", opened["session"].(map[string]any)["phase"])

	s.expect(&pro, http.MethodPost, base+"/join", gin.H{"role": "participant", "side": "proposition"}, http.StatusOK)
	s.expect(&viewer, http.MethodPost, base+"/join", gin.H{"role": "viewer"}, http.StatusOK)

	status := s.expect(&viewer, http.MethodGet, base+"/status", nil, http.StatusOK)
	assert.Equal(t, "open", status["phase"])
	assert.Equal(t, true, status["canJoin"])
	assert.Equal(t, "Joining window closes", status["nextPhaseLabel"])
	assert.EqualValues(t, 1, status["participantCount"])
	assert.EqualValues(t, 1, status["viewerCount"])

	s.move(sessionID, "close-joining-window")
	s.move(sessionID, "start-debate")

	s.expect(&viewer, http.MethodPost, base+"/votes", gin.H{"side": "proposition"}, http.StatusConflict)

	s.move(sessionID, "end-debate-start-voting")
	s.expect(&viewer, http.MethodPost, base+"/votes", gin.H{"side": "proposition"}, http.StatusOK)
	s.expect(&pro, http.MethodPost, base+"/votes", gin.H{"vote_type": "BEST_ARGUMENT"}, http.StatusOK)
	s.expect(&pro, http.MethodPost, base+"/votes", gin.H{"vote_type": "BEST_ARGUMENT"}, http.StatusConflict)

	finished := s.move(sessionID, "finish-voting")
	assert.Equal(t, "finished", finished["session"].(map[string]any)["status"])

	results := s.expect(&viewer, http.MethodGet, base+"/results", nil, http.StatusOK)
	assert.Equal(t, true, results["finished"])
	assert.Equal(t, true, results["hasVoted"])
	assert.Equal(t, "proposition", results["userVote"])

	s.expect(&s.moderator, http.MethodPost, base+"/start-debate", nil, http.StatusConflict)

	parts := s.expect(&s.moderator, http.MethodGet, base+"/participants", nil, http.StatusOK)
	assert.EqualValues(t, 1, parts["proposition"])
	assert.EqualValues(t, 1, parts["viewers"])
}

func TestSessionErrors(t *testing.T) {
	s := newTestServer(t)
	sessionID := s.createSession()
	student := s.student("student")

	s.expect(&student, http.MethodGet, "/api/sessions/not-a-uuid", nil, http.StatusBadRequest)
	s.expect(&student, http.MethodGet, "/api/sessions/"+uuid.NewString(), nil, http.StatusNotFound)
	s.expect(&student, http.MethodPost, "/api/sessions/"+sessionID+"/start-joining-window", nil, http.StatusForbidden)
	s.expect(&s.moderator, http.MethodPost, "/api/sessions/"+sessionID+"/start-debate", nil, http.StatusConflict)
	s.expect(&student, http.MethodPost, "/api/sessions/"+sessionID+"/join", gin.H{"role": "judge"}, http.StatusBadRequest)
	s.expect(&s.moderator, http.MethodPost, "/api/sessions", gin.H{
		"topic_id":         uuid.NewString(),
		"duration_minutes": 5,
	}, http.StatusBadRequest)
	s.expect(&s.moderator, http.MethodPost, "/api/sessions/"+sessionID+"/force-phase-transition",
		gin.H{"target_phase": "someday"}, http.StatusBadRequest)
}

func TestCancelWithoutBody(t *testing.T) {
	s := newTestServer(t)
	sessionID := s.createSession()

	cancelled := s.move(sessionID, "cancel")
	assert.Equal(t, "cancelled", cancelled["session"].(map[string]any)["status"])
	s.expect(&s.moderator, http.MethodPost, "/api/sessions/"+sessionID+"/start-joining-window", nil, http.StatusConflict)
}

func TestForcePhaseTransition(t *testing.T) {
	s := newTestServer(t)
	sessionID := s.createSession()

	forced := s.expect(&s.moderator, http.MethodPost, "/api/sessions/"+sessionID+"/force-phase-transition",
		gin.H{"target_phase": "online", "reason": "everyone is here"}, http.StatusOK)
	assert.Equal(t, "online", forced["session"].(map[string]any)["status"])

	actions := s.expect(&s.moderator, http.MethodGet, "/api/sessions/"+sessionID+"/moderation-actions", nil, http.StatusOK)
	assert.NotEmpty(t, actions["actions"])
}

func TestModerationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	sessionID := s.createSession()
	student := s.student("loud")
	base := "/api/sessions/" + sessionID

	s.move(sessionID, "start-joining-window")
	s.expect(&student, http.MethodPost, base+"/join", gin.H{"role": "participant", "side": "opposition"}, http.StatusOK)

	target := base + "/participants/" + student.UserID.String()
	s.expect(&student, http.MethodPost, target+"/mute", nil, http.StatusForbidden)

	muted := s.expect(&s.moderator, http.MethodPost, target+"/mute", gin.H{"reason": "shouting"}, http.StatusOK)
	assert.Equal(t, true, muted["participation"].(map[string]any)["is_muted"])

	warned := s.expect(&s.moderator, http.MethodPost, target+"/warn", nil, http.StatusOK)
	assert.EqualValues(t, 1, warned["participation"].(map[string]any)["warnings_count"])

	unmuted := s.expect(&s.moderator, http.MethodPost, target+"/unmute", nil, http.StatusOK)
	assert.Equal(t, false, unmuted["participation"].(map[string]any)["is_muted"])

	s.expect(&s.moderator, http.MethodPost, base+"/participants/not-a-uuid/warn", nil, http.StatusBadRequest)

	list := s.expect(&student, http.MethodGet, "/api/notifications?unread=true", nil, http.StatusOK)
	items := list["notifications"].([]any)
	moderationNotices := 0
	for _, item := range items {
		if item.(map[string]any)["notification_type"] == string(domain.NotifyModerationAction) {
			moderationNotices++
		}
	}
	assert.Equal(t, 3, moderationNotices)

	count := s.expect(&student, http.MethodGet, "/api/notifications/unread-count", nil, http.StatusOK)
	assert.EqualValues(t, len(items), count["count"])

	marked := s.expect(&student, http.MethodPost, "/api/notifications/mark-read", nil, http.StatusOK)
	assert.EqualValues(t, len(items), marked["updated"])
	count = s.expect(&student, http.MethodGet, "/api/notifications/unread-count", nil, http.StatusOK)
	assert.EqualValues(t, 0, count["count"])
}

func TestUsers(t *testing.T) {
	s := newTestServer(t)
	student := s.student("ana")

	got := s.expect(&s.moderator, http.MethodGet, "/api/users/"+student.UserID.String(), nil, http.StatusOK)
	assert.Equal(t, "ana", got["user"].(map[string]any)["username"])

	s.expect(&s.moderator, http.MethodGet, "/api/users/"+uuid.NewString(), nil, http.StatusNotFound)
}

func TestTopics(t *testing.T) {
	s := newTestServer(t)
	student := s.student("ana")

	s.expect(&student, http.MethodPost, "/api/topics", gin.H{"title": "Cats or dogs"}, http.StatusForbidden)
	s.expect(&s.moderator, http.MethodPost, "/api/topics", gin.H{}, http.StatusBadRequest)

	created := s.expect(&s.moderator, http.MethodPost, "/api/topics", gin.H{"title": "Cats or dogs"}, http.StatusCreated)
	id := created["topic"].(map[string]any)["id"].(string)
	got := s.expect(&student, http.MethodGet, "/api/topics/"+id, nil, http.StatusOK)
	assert.Equal(t, "Cats or dogs", got["topic"].(map[string]any)["title"])
}

func TestMessagesHistory(t *testing.T) {
	s := newTestServer(t)
	sessionID := s.createSession()
	student := s.student("ana")

	require.NoError(t, s.repos.Messages.Create(context.Background(),
		domain.NewSystemMessage(uuid.MustParse(sessionID), "welcome")))

	history := s.expect(&student, http.MethodGet, "/api/sessions/"+sessionID+"/messages?limit=10", nil, http.StatusOK)
	assert.Len(t, history["messages"], 1)

	s.expect(&student, http.MethodGet, "/api/sessions/"+sessionID+"/messages?limit=-1", nil, http.StatusBadRequest)
	s.expect(&student, http.MethodGet, "/api/sessions/"+uuid.NewString()+"/messages", nil, http.StatusNotFound)
}

func TestListingsAndReports(t *testing.T) {
	s := newTestServer(t)
	sessionID := s.createSession()
	pro := s.student("pro")
	viewer := s.student("viewer")
	base := "/api/sessions/" + sessionID

	s.move(sessionID, "start-joining-window")
	s.expect(&pro, http.MethodPost, base+"/join", gin.H{"role": "participant", "side": "proposition"}, http.StatusOK)
	s.expect(&viewer, http.MethodPost, base+"/join", gin.H{"role": "viewer"}, http.StatusOK)
	s.move(sessionID, "close-joining-window")
	s.move(sessionID, "start-debate")
	s.move(sessionID, "end-debate-start-voting")
	s.expect(&viewer, http.MethodPost, base+"/votes", gin.H{"side": "proposition"}, http.StatusOK)
	s.move(sessionID, "finish-voting")

	finished := s.expect(&viewer, http.MethodGet, "/api/sessions?status=finished", nil, http.StatusOK)
	require.Len(t, finished["sessions"], 1)
	assert.Equal(t, sessionID, finished["sessions"].([]any)[0].(map[string]any)["id"])

	online := s.expect(&viewer, http.MethodGet, "/api/sessions?status=online&status=open", nil, http.StatusOK)
	assert.Empty(t, online["sessions"])
	s.expect(&viewer, http.MethodGet, "/api/sessions?status=someday", nil, http.StatusBadRequest)

	topics := s.expect(&viewer, http.MethodGet, "/api/topics?category=education", nil, http.StatusOK)
	assert.Len(t, topics["topics"], 1)
	none := s.expect(&viewer, http.MethodGet, "/api/topics?category=sports", nil, http.StatusOK)
	assert.Empty(t, none["topics"])

	transcript := s.expect(&viewer, http.MethodGet, base+"/transcript", nil, http.StatusOK)
	assert.Equal(t, sessionID, transcript["session_id"])
	assert.Equal(t, "Should exams be abolished?", transcript["topic"])
	assert.Contains(t, transcript, "transcript")

	analytics := s.expect(&s.moderator, http.MethodGet, base+"/analytics", nil, http.StatusOK)
	assert.Equal(t, "finished", analytics["status"])
	votes := analytics["votes"].(map[string]any)
	assert.EqualValues(t, 1, votes["pro_votes"])
	assert.EqualValues(t, 100, votes["participation_rate"])
	participants := analytics["participants"].(map[string]any)
	assert.EqualValues(t, 1, participants["total_participants"])
	assert.EqualValues(t, 1, participants["total_viewers"])

	profile := s.expect(&viewer, http.MethodGet, "/api/users/"+pro.UserID.String()+"/profile", nil, http.StatusOK)
	got := profile["profile"].(map[string]any)
	assert.EqualValues(t, 1, got["debates_participated"])
	assert.EqualValues(t, 1, got["debates_won"])
	assert.EqualValues(t, 100, got["win_rate"])

	s.expect(&viewer, http.MethodGet, "/api/users/"+uuid.NewString()+"/profile", nil, http.StatusNotFound)
	s.expect(&viewer, http.MethodGet, "/api/sessions/"+uuid.NewString()+"/transcript", nil, http.StatusNotFound)
}
