package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"esports-scheduler/internal/pkg/response"
)

const CronSecretHeader = "X-Cron-Secret"

// CronSecret guards scheduler-triggered endpoints with a shared secret taken
// from the X-Cron-Secret header or the secret query parameter.
func CronSecret(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			logAuthFailure(logger, c, http.StatusInternalServerError, "secret_not_configured")
			response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Cron secret is not configured")
			return
		}

		provided := c.GetHeader(CronSecretHeader)
		if provided == "" {
			provided = c.Query("secret")
		}
		if provided == "" {
			logAuthFailure(logger, c, http.StatusUnauthorized, "missing_secret")
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Cron secret is required")
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			logAuthFailure(logger, c, http.StatusUnauthorized, "invalid_secret")
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid cron secret")
			return
		}

		c.Next()
	}
}

func logAuthFailure(logger *zap.Logger, c *gin.Context, status int, reason string) {
	logger.Warn("cron auth rejected",
		zap.Int("status", status),
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
		zap.String("client_ip", c.ClientIP()),
		zap.String("request_id", requestID(c)),
	)
}
