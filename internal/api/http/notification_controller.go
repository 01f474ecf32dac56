package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/service"
)

type NotificationController struct {
	notifications service.NotificationInteractor
	log           *slog.Logger
}

func NewNotificationController(notifications service.NotificationInteractor, log *slog.Logger) *NotificationController {
	if log == nil {
		log = slog.Default()
	}
	return &NotificationController{notifications: notifications, log: log}
}

func (c *NotificationController) List(ctx *gin.Context) {
	unreadOnly, err := strconv.ParseBool(ctx.DefaultQuery("unread", "false"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid unread flag"})
		return
	}

	items, err := c.notifications.List(ctx.Request.Context(), principalFrom(ctx).UserID, unreadOnly)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"notifications": items})
}

func (c *NotificationController) UnreadCount(ctx *gin.Context) {
	count, err := c.notifications.UnreadCount(ctx.Request.Context(), principalFrom(ctx).UserID)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"count": count})
}

func (c *NotificationController) MarkRead(ctx *gin.Context) {
	type request struct {
		NotificationIDs []uuid.UUID `json:"notification_ids"`
	}

	var req request
	if err := bindOptionalJSON(ctx, &req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	updated, err := c.notifications.MarkRead(ctx.Request.Context(), principalFrom(ctx).UserID, req.NotificationIDs)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"updated": updated})
}
