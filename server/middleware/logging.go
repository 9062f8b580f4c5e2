package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/observability"
)

var probePaths = map[string]bool{
	"/health": true,
	"/ready":  true,
}

// RequestLogger logs each request and records it on counters, which may be
// nil. Probe paths are neither logged nor counted.
func RequestLogger(log *logger.Logger, counters *observability.Counters) gin.HandlerFunc {
	return func(c *gin.Context) {
		if probePaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		counters.RecordRequest(c.Request.Context(), c.Request.Method, route, status, latency)

		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}
		fields := map[string]interface{}{
			"method":             c.Request.Method,
			"path":               path,
			"status":             status,
			logger.FieldDuration: latency.Milliseconds(),
			"client":             c.ClientIP(),
		}
		if latency > 500*time.Millisecond {
			fields["slow"] = true
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		logByStatus(log.WithContext(c.Request.Context()), fields, status)
	}
}

// logByStatus logs at error for 5xx, warn for 4xx and debug otherwise.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
