package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"asset-tracker/pkg/utils"
)

const IngestTokenHeader = "X-Ingest-Token"

// IngestTokenMiddleware guards the ingest endpoint with the shared token
// the event router presents. An empty configured token disables the check
// (local development).
func IngestTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		presented := c.GetHeader(IngestTokenHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid ingest token")
			c.Abort()
			return
		}

		c.Next()
	}
}
