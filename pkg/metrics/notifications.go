package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics tracks the best-effort notification pipeline.
type NotificationMetrics struct {
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
	dropped   prometheus.Counter
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_delivered_total",
		Help: "Notifications persisted and published, by type.",
	}, []string{"type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Notification delivery failures, by stage.",
	}, []string{"stage"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Notifications dropped because the dispatch queue was full or closed.",
	})
	reg.MustRegister(delivered, failed, dropped)
	return &NotificationMetrics{delivered: delivered, failed: failed, dropped: dropped}
}

func (m *NotificationMetrics) IncDelivered(notificationType string) {
	if m == nil || m.delivered == nil {
		return
	}
	m.delivered.WithLabelValues(normalizeLabel(notificationType)).Inc()
}

// IncFailed records a failure in the persist or publish stage.
func (m *NotificationMetrics) IncFailed(stage string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(stage)).Inc()
}

func (m *NotificationMetrics) IncDropped() {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.Inc()
}
