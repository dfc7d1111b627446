package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodySize bounds embedder request bodies. The largest legitimate body is
// a child insertion request, well under this.
const MaxBodySize = 1 << 20

// BodyLimit rejects request bodies larger than max bytes
func BodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > max {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"error":   "request body too large",
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
