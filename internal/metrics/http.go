package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Surfaces of the control plane as reported in the "surface" label.
const (
	SurfaceAdmin     = "admin"
	SurfaceIntake    = "intake"
	SurfaceHealth    = "health"
	SurfaceUnmatched = "unmatched"
)

// HTTPMetricsMiddleware returns a Gin middleware recording request counts, latency and
// in-flight requests. Requests are labelled by route pattern (never the raw path, which
// carries verifier names and CA ids), status class and surface.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	meter := meterProvider.Meter(namespace)

	requests, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return passthrough
	}

	latency, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return passthrough
	}

	inFlight, err := meter.Int64UpDownCounter(
		fmt.Sprintf("%s_http_requests_in_flight", namespace),
		metric.WithDescription("HTTP requests currently being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return passthrough
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		surface := attribute.String("surface", RouteSurface(route))
		ctx := c.Request.Context()

		inFlight.Add(ctx, 1, metric.WithAttributes(surface))
		start := time.Now()

		c.Next()

		inFlight.Add(ctx, -1, metric.WithAttributes(surface))

		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", routeLabel(route)),
			attribute.String("status_class", StatusClass(c.Writer.Status())),
			surface,
		)
		requests.Add(ctx, 1, attrs)
		latency.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}

// RouteSurface classifies a Gin route pattern.
func RouteSurface(route string) string {
	switch {
	case route == "":
		return SurfaceUnmatched
	case route == "/health" || route == "/ready":
		return SurfaceHealth
	case strings.HasPrefix(route, "/events/"):
		return SurfaceIntake
	default:
		return SurfaceAdmin
	}
}

// StatusClass collapses a status code into 1xx..5xx.
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return fmt.Sprintf("%dxx", code/100)
}

func routeLabel(route string) string {
	if route == "" {
		return "unknown"
	}
	return route
}

func passthrough(c *gin.Context) {
	c.Next()
}
