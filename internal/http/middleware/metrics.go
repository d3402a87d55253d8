package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestRecorder is the slice of the metrics collector the middleware uses.
type RequestRecorder interface {
	RecordRequest(method, route, status string, duration time.Duration)
}

// Metrics records request count and latency per matched route. Unmatched
// paths share one label.
func Metrics(recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.RecordRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
