package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPRecorder receives per-request measurements.
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
	HTTPInFlight(delta float64)
}

// Metrics returns a middleware that records request counts and latency by route template.
func Metrics(rec HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rec == nil {
			c.Next()
			return
		}
		start := time.Now()
		rec.HTTPInFlight(1)
		defer rec.HTTPInFlight(-1)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		rec.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
