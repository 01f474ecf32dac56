package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/debatehall/internal/domain"
)

const principalKey = "principal"

// AuthMiddleware requires a valid "Authorization: Bearer" credential.
func AuthMiddleware(resolver PrincipalResolver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		principal, err := resolver.Resolve(ctx.Request.Context(), bearerToken(ctx.GetHeader("Authorization")))
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		ctx.Set(principalKey, principal)
		ctx.Next()
	}
}

func principalFrom(ctx *gin.Context) domain.Principal {
	principal, _ := ctx.MustGet(principalKey).(domain.Principal)
	return principal
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
