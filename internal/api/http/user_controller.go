package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/debatehall/internal/service"
)

type UserController struct {
	users service.UserInteractor
	log   *slog.Logger
}

func NewUserController(users service.UserInteractor, log *slog.Logger) *UserController {
	if log == nil {
		log = slog.Default()
	}
	return &UserController{users: users, log: log}
}

// Me registers the caller on first sight and returns the stored profile.
func (c *UserController) Me(ctx *gin.Context) {
	user, err := c.users.EnsureUser(ctx.Request.Context(), principalFrom(ctx))
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": user})
}

func (c *UserController) GetUser(ctx *gin.Context) {
	id, ok := userParam(ctx)
	if !ok {
		return
	}

	user, err := c.users.GetUser(ctx.Request.Context(), id)
	if err != nil {
		writeError(ctx, c.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": user})
}
