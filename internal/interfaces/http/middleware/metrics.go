package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts and latencies per route template, so
// /ingestions/:id is one series regardless of the id.
func Metrics(m *prometheus.IngestMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		prometheus.RecordHTTPRequest(m, c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

//Personal.AI order the ending
