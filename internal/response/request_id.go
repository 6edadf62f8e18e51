package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKeyRequestID is the Gin context key for the request ID.
const ContextKeyRequestID = "request_id"

// requestIDHeader is honored from the client when present so a frontend can
// correlate its own traces with the API's metadata envelope.
const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every request with an ID and echoes it back in
// the response header. The ID also lands in the response metadata block.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, reqID)
		c.Header(requestIDHeader, reqID)
		c.Next()
	}
}
