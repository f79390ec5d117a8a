package middleware

import (
	"net/http"

	"pricewatch/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"

	// Context keys
	ContextRequestID = "request_id"
	ContextSessionID = "session_id"
)

// RequestID propagates the caller's X-Request-ID or assigns a fresh one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}

		c.Set(ContextRequestID, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// RequireSessionID validates the :id path parameter as a session UUID and
// stores it in the context
func RequireSessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid session ID", nil, err.Error())
			c.Abort()
			return
		}

		c.Set(ContextSessionID, sessionID.String())
		c.Next()
	}
}

// SessionID returns the session id stored by RequireSessionID
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
