package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы инициации оформления.
const (
	CheckoutOK         = "ok"
	CheckoutValidation = "validation"
	CheckoutUpstream   = "upstream"
	CheckoutError      = "error"
)

// Результаты обработки webhook.
const (
	WebhookAccepted         = "accepted"
	WebhookInvalidSignature = "invalid_signature"
	WebhookIgnored          = "ignored"
	WebhookMalformed        = "malformed"
	WebhookError            = "error"
)

// CheckoutMetrics собирает метрики оформления, webhook и fulfillment.
type CheckoutMetrics struct {
	checkoutInitiated *prometheus.CounterVec
	checkoutDuration  *prometheus.HistogramVec
	gatewayRequests   *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
	fulfillments      *prometheus.CounterVec
	anomalies         *prometheus.CounterVec
	timelineEvents    prometheus.Counter
}

// NewCheckoutMetrics регистрирует метрики в DefaultRegisterer.
func NewCheckoutMetrics() *CheckoutMetrics {
	return NewCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCheckoutMetricsWithRegisterer регистрирует метрики в переданном реестре (удобно для тестов).
func NewCheckoutMetricsWithRegisterer(r prometheus.Registerer) *CheckoutMetrics {
	return &CheckoutMetrics{
		checkoutInitiated: counterVec(r, "storefront_checkout_initiated_total",
			"Checkout initiation attempts grouped by result.", "result"),
		checkoutDuration: histogramVec(r, "storefront_checkout_duration_seconds",
			"Checkout initiation latency including the payment processor call.",
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15}, "result"),
		gatewayRequests: counterVec(r, "storefront_payment_gateway_requests_total",
			"Outbound payment processor calls grouped by outcome.", "outcome"),
		webhookDeliveries: counterVec(r, "storefront_webhook_deliveries_total",
			"Payment webhook deliveries grouped by processing result.", "result"),
		fulfillments: counterVec(r, "storefront_fulfillment_total",
			"Fulfillment attempts grouped by outcome.", "outcome"),
		anomalies: counterVec(r, "storefront_fulfillment_anomalies_total",
			"Fulfillment anomalies that require manual reconciliation.", "kind"),
		timelineEvents: counter(r, "storefront_timeline_events_total",
			"Total number of order timeline events recorded."),
	}
}

// ObserveCheckout фиксирует исход и длительность инициации оформления.
func (m *CheckoutMetrics) ObserveCheckout(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.checkoutInitiated.WithLabelValues(result).Inc()
	m.checkoutDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func (m *CheckoutMetrics) RecordGatewayRequest(outcome string) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(outcome).Inc()
}

func (m *CheckoutMetrics) RecordWebhook(result string) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(result).Inc()
}

func (m *CheckoutMetrics) RecordFulfillment(outcome string) {
	if m == nil {
		return
	}
	m.fulfillments.WithLabelValues(outcome).Inc()
}

// RecordAnomaly увеличивает счётчик аномалий заданного вида.
func (m *CheckoutMetrics) RecordAnomaly(kind string) {
	if m == nil {
		return
	}
	m.anomalies.WithLabelValues(kind).Inc()
}

func (m *CheckoutMetrics) RecordTimelineEvent() {
	if m == nil {
		return
	}
	m.timelineEvents.Inc()
}
