package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// OutboxMetrics отражает работу outbox worker.
type OutboxMetrics struct {
	publishAttempts *prometheus.CounterVec
	pending         prometheus.Gauge
	oldestAge       prometheus.Gauge
}

func NewOutboxMetrics() *OutboxMetrics {
	return NewOutboxMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewOutboxMetricsWithRegisterer(r prometheus.Registerer) *OutboxMetrics {
	return &OutboxMetrics{
		publishAttempts: counterVec(r, "storefront_outbox_publish_attempts_total",
			"Total number of outbox publish attempts grouped by result.", "result"),
		pending: gauge(r, "storefront_outbox_pending_records",
			"Current number of pending records in transactional outbox."),
		oldestAge: gauge(r, "storefront_outbox_oldest_pending_age_seconds",
			"Age in seconds of the oldest pending outbox record."),
	}
}

// RecordPublish увеличивает счётчик попыток публикации с заданным результатом.
func (m *OutboxMetrics) RecordPublish(result string) {
	if m == nil {
		return
	}
	m.publishAttempts.WithLabelValues(result).Inc()
}

// ObserveBacklog обновляет gauge размера и возраста backlog.
func (m *OutboxMetrics) ObserveBacklog(stats domain.OutboxStats, now time.Time) {
	if m == nil {
		return
	}
	m.pending.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		m.oldestAge.Set(0)
		return
	}
	m.oldestAge.Set(max(now.Sub(stats.OldestPendingAt).Seconds(), 0))
}

// CleanupMetrics отражает работу воркера очистки idempotency-ключей.
type CleanupMetrics struct {
	runs        *prometheus.CounterVec
	deleted     prometheus.Counter
	lastDeleted prometheus.Gauge
}

func NewCleanupMetrics() *CleanupMetrics {
	return NewCleanupMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewCleanupMetricsWithRegisterer(r prometheus.Registerer) *CleanupMetrics {
	return &CleanupMetrics{
		runs: counterVec(r, "storefront_idempotency_cleanup_runs_total",
			"Idempotency cleanup runs grouped by result.", "result"),
		deleted: counter(r, "storefront_idempotency_cleanup_deleted_total",
			"Total number of deleted expired idempotency records."),
		lastDeleted: gauge(r, "storefront_idempotency_cleanup_last_deleted",
			"Number of records deleted during the last cleanup run."),
	}
}

func (m *CleanupMetrics) RecordRun(result string, deleted int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
	if result == "ok" {
		m.lastDeleted.Set(float64(deleted))
	}
}

func (m *CleanupMetrics) AddDeleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.deleted.Add(float64(n))
}
