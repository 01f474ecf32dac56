package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/service"
)

type ModerationController struct {
	moderation service.ModerationInteractor
	log        *slog.Logger
}

func NewModerationController(moderation service.ModerationInteractor, log *slog.Logger) *ModerationController {
	if log == nil {
		log = slog.Default()
	}
	return &ModerationController{moderation: moderation, log: log}
}

type moderationRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type moderationHandler func(ctx context.Context, actor domain.Principal, sessionID, targetID uuid.UUID, reason string) (*domain.Participation, error)

func (c *ModerationController) Mute(ctx *gin.Context) {
	c.apply(ctx, c.moderation.Mute)
}

func (c *ModerationController) Unmute(ctx *gin.Context) {
	c.apply(ctx, func(rctx context.Context, actor domain.Principal, sessionID, targetID uuid.UUID, _ string) (*domain.Participation, error) {
		return c.moderation.Unmute(rctx, actor, sessionID, targetID)
	})
}

func (c *ModerationController) Warn(ctx *gin.Context) {
	c.apply(ctx, c.moderation.Warn)
}

func (c *ModerationController) Remove(ctx *gin.Context) {
	c.apply(ctx, c.moderation.Remove)
}

func (c *ModerationController) ListActions(ctx *gin.Context) {
	sessionID, ok := sessionParam(ctx)
	if !ok {
		return
	}

	actions, err := c.moderation.ListActions(ctx.Request.Context(), principalFrom(ctx), sessionID)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"actions": actions})
}

func (c *ModerationController) apply(ctx *gin.Context, fn moderationHandler) {
	sessionID, ok := sessionParam(ctx)
	if !ok {
		return
	}
	targetID, ok := userParam(ctx)
	if !ok {
		return
	}
	var req moderationRequest
	if err := bindOptionalJSON(ctx, &req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	p, err := fn(ctx.Request.Context(), principalFrom(ctx), sessionID, targetID, req.Reason)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"participation": p})
}
