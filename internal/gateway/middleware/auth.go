package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"emirates-backoffice/internal/utils"
)

type Authorizer interface {
	Authorize(ctx context.Context, actor utils.Actor, roles ...string) bool
}

func abortWith(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
		"error":   code,
	})
}

// JWTAuth validates the bearer token and puts the actor on the request
// context.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		claims, err := utils.ParseToken(strings.TrimSpace(token))
		if err != nil {
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		actor := claims.Actor()
		c.Set("user_id", actor.UserID)
		c.Set("role", actor.Role)
		c.Request = c.Request.WithContext(utils.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireRoles rejects actors the authorizer does not grant one of roles.
// It must run after JWTAuth.
func RequireRoles(auth Authorizer, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := utils.ActorFromContext(c.Request.Context())
		if !ok || !auth.Authorize(c.Request.Context(), actor, roles...) {
			abortWith(c, http.StatusForbidden, "FORBIDDEN", "insufficient role")
			return
		}
		c.Next()
	}
}
