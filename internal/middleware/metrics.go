package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/indyforge/groupindustry/internal/services"
)

// RequestMetrics records request latency by route template, so /projects/1
// and /projects/2 share a series. Unmatched routes are grouped together.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		services.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
