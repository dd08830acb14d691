package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"esports-scheduler/internal/domain/user"
	"esports-scheduler/internal/pkg/response"
)

// RequireRole must run after JWTAuth.
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			return
		}

		if role != requiredRole {
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Administrator access required")
			return
		}

		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRole(user.RoleAdmin)
}
