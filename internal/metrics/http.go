package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetricsMiddleware counts and times every request by method, route and status code.
// Unmatched routes share the "unknown" path label so probing random URLs cannot grow the
// series count. When the instruments cannot be registered the middleware only calls c.Next.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	requests, err := newInstruments(
		meterProvider.Meter(namespace),
		namespace+"_http_requests_total",
		namespace+"_http_request_duration_seconds",
		"HTTP request",
		"{request}",
	)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requests.record(c.Request.Context(), time.Since(start),
			attribute.String("method", c.Request.Method),
			attribute.String("path", routeLabel(c.FullPath())),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)
	}
}

func routeLabel(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}
