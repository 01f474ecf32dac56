package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/service"
)

type VoteController struct {
	voting service.VotingInteractor
	log    *slog.Logger
}

func NewVoteController(voting service.VotingInteractor, log *slog.Logger) *VoteController {
	if log == nil {
		log = slog.Default()
	}
	return &VoteController{voting: voting, log: log}
}

func (c *VoteController) CastVote(ctx *gin.Context) {
	type request struct {
		Side     string `json:"side" binding:"omitempty,debate_side"`
		VoteType string `json:"vote_type" binding:"omitempty,vote_type"`
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

	vote, err := c.voting.CastVote(ctx.Request.Context(), principalFrom(ctx), sessionID, domain.VoteChoice{
		Side:     domain.Side(req.Side),
		VoteType: domain.VoteType(req.VoteType),
	})
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"vote": vote})
}

func (c *VoteController) Results(ctx *gin.Context) {
	sessionID, ok := sessionParam(ctx)
	if !ok {
		return
	}

	res, err := c.voting.Results(ctx.Request.Context(), principalFrom(ctx), sessionID)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}
