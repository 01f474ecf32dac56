package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/debatehall/internal/auth"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/immxrtalbeast/debatehall/lib/logger/sl"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotEligible):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrTopicNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrParticipationNotFound),
		errors.Is(err, repository.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyVoted),
		errors.Is(err, domain.ErrSessionNotVoting),
		errors.Is(err, repository.ErrVoteExists):
		return http.StatusConflict
	case errors.Is(err, repository.ErrTransientStore):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(ctx *gin.Context, log *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			slog.String("method", ctx.Request.Method),
			slog.String("path", ctx.FullPath()),
			sl.Err(err),
		)
		if status == http.StatusInternalServerError {
			ctx.JSON(status, gin.H{"error": "internal error"})
			return
		}
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}
