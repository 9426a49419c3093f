package observability

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/storeops/api/internal/platform/observability"

// RequestMetrics records request counts and latencies via the global meter provider.
type RequestMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewRequestMetrics registers the HTTP server instruments.
func NewRequestMetrics() (*RequestMetrics, error) {
	meter := otel.Meter(meterName)

	requests, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Count of handled HTTP requests"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds for handled HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &RequestMetrics{requests: requests, latency: latency}, nil
}

// Middleware instruments each request with count and latency measurements.
func (m *RequestMetrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}

			recorder := newResponseRecorder(w)
			start := time.Now()
			next.ServeHTTP(recorder, r)
			elapsed := time.Since(start)

			ctx := r.Context()
			attrs := metric.WithAttributes(
				attribute.String("http.request.method", SanitizeMethod(r.Method)),
				attribute.String("http.route", SanitizeRoute(routePattern(r))),
				attribute.Int("http.response.status_code", recorder.Status()),
			)
			m.requests.Add(ctx, 1, attrs)
			m.latency.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
		})
	}
}
