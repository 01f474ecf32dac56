package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/service"
)

type TopicController struct {
	topics service.TopicInteractor
	log    *slog.Logger
}

func NewTopicController(topics service.TopicInteractor, log *slog.Logger) *TopicController {
	if log == nil {
		log = slog.Default()
	}
	return &TopicController{topics: topics, log: log}
}

func (c *TopicController) CreateTopic(ctx *gin.Context) {
	type request struct {
		Title       string `json:"title" binding:"required,max=200"`
		Description string `json:"description" binding:"max=2000"`
		Category    string `json:"category" binding:"max=64"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	topic, err := c.topics.CreateTopic(ctx.Request.Context(), principalFrom(ctx), req.Title, req.Description, req.Category)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"topic": topic})
}

func (c *TopicController) GetTopic(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid topic id"})
		return
	}

	topic, err := c.topics.GetTopic(ctx.Request.Context(), id)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"topic": topic})
}

func (c *TopicController) ListTopics(ctx *gin.Context) {
	topics, err := c.topics.ListTopics(ctx.Request.Context(), ctx.Query("category"))
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"topics": topics})
}
