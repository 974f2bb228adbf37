package server

import (
	"context"
	"time"

	"secured-auction/internal/security"
	"secured-auction/services/auction/helpers"
	"secured-auction/utils"

	"github.com/gin-gonic/gin"
)

// Authenticator is the identity and integrity gate for protected routes
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (int64, error)
	VerifyRequest(ctx context.Context, userID int64, env security.Envelope) error
}

// RequestLoggerMiddleware tags each request with an id and logs it with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	requestID := c.GetHeader(utils.RequestIDHeader)
	if requestID == "" {
		requestID = utils.GenerateRequestID()
	}
	c.Header(utils.RequestIDHeader, requestID)

	c.Next() // process request

	fields := map[string]any{
		"request_id": requestID,
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"status":     c.Writer.Status(),
		"latency":    time.Since(start).String(),
	}
	if userID, ok := c.Get(helpers.UserIDKey); ok {
		fields["user_id"] = userID
	}
	utils.Info("HTTP Request", fields)
}

// BearerAuth resolves the Authorization header to a live identity
func BearerAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := auth.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			helpers.WriteError(c, err)
			utils.Warn("BearerAuth: request rejected", map[string]any{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			return
		}
		c.Set(helpers.UserIDKey, userID)
		c.Next()
	}
}

// VerifySignature checks the request envelope against the caller's registered key.
// It must run after BearerAuth.
func VerifySignature(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var env security.Envelope
		if err := c.ShouldBindJSON(&env); err != nil {
			helpers.HandleBindError(c, "VerifySignature", err)
			return
		}

		userID := helpers.UserID(c)
		if err := auth.VerifyRequest(c.Request.Context(), userID, env); err != nil {
			helpers.WriteError(c, err)
			utils.Warn("VerifySignature: request rejected", map[string]any{
				"path":    c.Request.URL.Path,
				"user_id": userID,
				"error":   err.Error(),
			})
			return
		}
		c.Set(helpers.MessageKey, env.Message)
		c.Next()
	}
}
