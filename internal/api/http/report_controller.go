package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/debatehall/internal/service"
)

type ReportController struct {
	reports service.ReportInteractor
	log     *slog.Logger
}

func NewReportController(reports service.ReportInteractor, log *slog.Logger) *ReportController {
	if log == nil {
		log = slog.Default()
	}
	return &ReportController{reports: reports, log: log}
}

func (c *ReportController) Transcript(ctx *gin.Context) {
	sessionID, ok := sessionParam(ctx)
	if !ok {
		return
	}

	transcript, err := c.reports.Transcript(ctx.Request.Context(), sessionID)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, transcript)
}

func (c *ReportController) Analytics(ctx *gin.Context) {
	sessionID, ok := sessionParam(ctx)
	if !ok {
		return
	}

	analytics, err := c.reports.Analytics(ctx.Request.Context(), sessionID)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, analytics)
}

func (c *ReportController) Profile(ctx *gin.Context) {
	userID, ok := userParam(ctx)
	if !ok {
		return
	}

	profile, err := c.reports.Profile(ctx.Request.Context(), userID)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"profile": profile})
}
