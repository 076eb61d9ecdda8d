package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/roastery/backend/internal/infrastructure/telemetry"
)

// httpDurationBuckets cover fast reads up to provider round trips
var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

type httpMetrics struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

// HTTPMetrics records request count, latency and in-flight requests per
// route pattern and API area (fulfillment, catalog, admin). A nil meter
// or a failed registration turns it into a pass-through.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	if meter == nil {
		return passThrough
	}
	in := telemetry.NewInstruments(meter)
	m := &httpMetrics{
		requests: in.Counter("http_server_request_total", "HTTP requests served", "{request}"),
		duration: in.Seconds("http_server_request_duration_seconds", "HTTP request latency", httpDurationBuckets),
		inFlight: in.Gauge("http_server_active_requests", "HTTP requests in progress", "{request}"),
	}
	if in.Err() != nil {
		return passThrough
	}
	return m.handle
}

func (m *httpMetrics) handle(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()
	m.inFlight.Add(ctx, 1)
	defer m.inFlight.Add(ctx, -1)

	c.Next()

	route := c.FullPath()
	area := controllerFromRoute(route)
	if route == "" {
		route, area = "unknown", "unknown"
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", route),
		attribute.String("api.area", area),
	}
	m.duration.Observe(ctx, time.Since(start), attrs...)
	m.requests.Inc(ctx, append(attrs, attribute.Int("http.status_code", c.Writer.Status()))...)
}

func passThrough(c *gin.Context) {
	c.Next()
}
