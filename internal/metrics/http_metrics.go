package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics считает запросы и задержки публичного HTTP API.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	return NewHTTPMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewHTTPMetricsWithRegisterer(r prometheus.Registerer) *HTTPMetrics {
	return &HTTPMetrics{
		requests: counterVec(r, "storefront_http_requests_total",
			"HTTP requests grouped by method, route pattern and status code.", "method", "route", "status"),
		duration: histogramVec(r, "storefront_http_request_duration_seconds",
			"HTTP request latency grouped by method and route pattern.", prometheus.DefBuckets, "method", "route"),
	}
}

// Observe записывает завершённый запрос. В route передаётся шаблон маршрута, а не сырой путь.
func (m *HTTPMetrics) Observe(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}
