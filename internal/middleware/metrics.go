package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tutorfinder/tutorfinder-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route so arbitrary
// URLs cannot grow the label set.
const unmatchedRoute = "unmatched"

// Metrics returns middleware that captures request metrics using the provided
// service. Paths listed in skip (such as the scrape endpoint) are not observed.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		if _, ok := skipped[path]; ok {
			return
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
