package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/api/http/converter"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/service"
)

type SessionController struct {
	sessions service.SessionInteractor
	presence service.PresenceInteractor
	log      *slog.Logger
}

func NewSessionController(sessions service.SessionInteractor, presence service.PresenceInteractor, log *slog.Logger) *SessionController {
	if log == nil {
		log = slog.Default()
	}
	return &SessionController{sessions: sessions, presence: presence, log: log}
}

func (c *SessionController) CreateSession(ctx *gin.Context) {
	type request struct {
		TopicID         string     `json:"topic_id" binding:"required,uuid"`
		ScheduledStart  *time.Time `json:"scheduled_start"`
		DurationMinutes int        `json:"duration_minutes" binding:"required,min=20,max=180"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	session, err := c.sessions.CreateSession(ctx.Request.Context(), principalFrom(ctx), uuid.MustParse(req.TopicID), req.ScheduledStart, req.DurationMinutes)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"session": converter.SessionToApi(session, time.Now())})
}

// ListSessions accepts repeated ?status= filters.
func (c *SessionController) ListSessions(ctx *gin.Context) {
	var statuses []domain.SessionStatus
	for _, raw := range ctx.QueryArray("status") {
		statuses = append(statuses, domain.SessionStatus(raw))
	}

	sessions, err := c.sessions.ListSessions(ctx.Request.Context(), statuses)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}

	now := time.Now()
	out := make([]*converter.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, converter.SessionToApi(session, now))
	}
	ctx.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (c *SessionController) GetSession(ctx *gin.Context) {
	sessionID, ok := sessionParam(ctx)
	if !ok {
		return
	}

	session, err := c.sessions.GetSession(ctx.Request.Context(), sessionID)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"session": converter.SessionToApi(session, time.Now())})
}

func (c *SessionController) Status(ctx *gin.Context) {
	sessionID, ok := sessionParam(ctx)
	if !ok {
		return
	}

	report, err := c.sessions.Status(ctx.Request.Context(), sessionID)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, report)
}

func (c *SessionController) Join(ctx *gin.Context) {
	type request struct {
		Role string `json:"role" binding:"required,debate_role"`
		Side string `json:"side" binding:"omitempty,debate_side"`
	}

	sessionID, ok := sessionParam(ctx)
	if !ok {
		return
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	p, err := c.sessions.Join(ctx.Request.Context(), principalFrom(ctx), sessionID, service.JoinRequest{
		Role: domain.ParticipantRole(req.Role),
		Side: domain.Side(req.Side),
	})
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"participation": p})
}

func (c *SessionController) Leave(ctx *gin.Context) {
	sessionID, ok := sessionParam(ctx)
	if !ok {
		return
	}

	if err := c.sessions.Leave(ctx.Request.Context(), principalFrom(ctx), sessionID); err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "left"})
}

func (c *SessionController) Participants(ctx *gin.Context) {
	sessionID, ok := sessionParam(ctx)
	if !ok {
		return
	}

	parts, err := c.sessions.ListParticipations(ctx.Request.Context(), sessionID)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	online, err := c.presence.List(ctx.Request.Context(), sessionID)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, converter.ParticipantsToApi(parts, online))
}

func (c *SessionController) Messages(ctx *gin.Context) {
	sessionID, ok := sessionParam(ctx)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	if _, err := c.sessions.GetSession(ctx.Request.Context(), sessionID); err != nil {
		writeError(ctx, c.log, err)
		return
	}
	msgs, err := c.sessions.ListMessages(ctx.Request.Context(), sessionID, limit)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (c *SessionController) StartJoiningWindow(ctx *gin.Context) {
	c.transition(ctx, c.sessions.StartJoiningWindow)
}

func (c *SessionController) CloseJoiningWindow(ctx *gin.Context) {
	c.transition(ctx, c.sessions.CloseJoiningWindow)
}

func (c *SessionController) StartDebate(ctx *gin.Context) {
	c.transition(ctx, c.sessions.StartDebate)
}

func (c *SessionController) EndDebateAndStartVoting(ctx *gin.Context) {
	c.transition(ctx, c.sessions.EndDebateAndStartVoting)
}

func (c *SessionController) FinishVoting(ctx *gin.Context) {
	c.transition(ctx, c.sessions.FinishVoting)
}

func (c *SessionController) Cancel(ctx *gin.Context) {
	type request struct {
		Reason string `json:"reason" binding:"max=500"`
	}
	var req request
	if err := bindOptionalJSON(ctx, &req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	c.transition(ctx, func(rctx context.Context, actor domain.Principal, id uuid.UUID) (*domain.DebateSession, error) {
		return c.sessions.Cancel(rctx, actor, id, req.Reason)
	})
}

func (c *SessionController) ForcePhaseTransition(ctx *gin.Context) {
	type request struct {
		TargetPhase string `json:"target_phase" binding:"required,session_phase"`
		Reason      string `json:"reason" binding:"max=500"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	c.transition(ctx, func(rctx context.Context, actor domain.Principal, id uuid.UUID) (*domain.DebateSession, error) {
		return c.sessions.ForcePhaseTransition(rctx, actor, id, domain.SessionStatus(req.TargetPhase), req.Reason)
	})
}

type transitionHandler func(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) (*domain.DebateSession, error)

func (c *SessionController) transition(ctx *gin.Context, fn transitionHandler) {
	sessionID, ok := sessionParam(ctx)
	if !ok {
		return
	}

	session, err := fn(ctx.Request.Context(), principalFrom(ctx), sessionID)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"session": converter.SessionToApi(session, time.Now())})
}

func sessionParam(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

func userParam(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("userID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(ctx *gin.Context, dst any) error {
	if ctx.Request.ContentLength == 0 {
		return binding.Validator.ValidateStruct(dst)
	}
	return ctx.ShouldBindJSON(dst)
}
