package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/manabi-api/internal/service"
)

// Metrics returns middleware that captures request metrics using the provided service.
// Streaming routes are skipped so long-lived connections do not skew latency histograms.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.GetHeader("Accept") == "text/event-stream" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
