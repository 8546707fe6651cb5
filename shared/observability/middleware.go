package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics records request counts and latencies per route
func HTTPMetrics() gin.HandlerFunc {
	meter := otel.Meter("dreamui/backend/http")
	requests, _ := meter.Int64Counter("http_server_requests_total",
		metric.WithDescription("HTTP requests served"))
	latency, _ := meter.Float64Histogram("http_server_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"))

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
			attribute.String("status", strconv.Itoa(c.Writer.Status())),
		)
		ctx := c.Request.Context()
		requests.Add(ctx, 1, attrs)
		latency.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
