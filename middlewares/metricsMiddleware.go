package middlewares

import (
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request count and latency per route.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.TrackDuration(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), start)
	}
}
