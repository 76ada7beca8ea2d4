package resources

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TracerMiddleware opens a server span per request and propagates inbound
// trace context, so the repository spans hang off the HTTP span instead of
// becoming roots.
func TracerMiddleware(name string) gin.HandlerFunc {
	return otelgin.Middleware(name)
}

type HTTPMetrics struct {
	service string
	reqs    metric.Int64Counter
	latency metric.Float64Histogram
}

func NewHTTPMetrics(name string) *HTTPMetrics {
	meter := otel.Meter(name)

	reqs, _ := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("HTTP requests"),
	)
	latency, _ := meter.Float64Histogram(
		"http.server.duration.ms",
		metric.WithDescription("HTTP request duration in milliseconds"),
	)

	return &HTTPMetrics{service: name, reqs: reqs, latency: latency}
}

// Middleware records a count and a latency sample per request, labeled by
// matched route rather than raw path to keep cardinality bounded.
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		attrs := m.requestAttrs(c)

		m.reqs.Add(c.Request.Context(), 1, metric.WithAttributes(attrs...))
		m.latency.Record(
			c.Request.Context(),
			float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attrs...),
		)
	}
}

func (m *HTTPMetrics) requestAttrs(c *gin.Context) []attribute.KeyValue {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}

	status := c.Writer.Status()

	return []attribute.KeyValue{
		attribute.String("service.name", m.service),
		attribute.String("http.route", route),
		attribute.String("http.method", c.Request.Method),
		attribute.Int("http.status_code", status),
		attribute.String("http.status_class", strconv.Itoa(status/100)+"xx"),
	}
}
