package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookMetricsExportsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)
	m.Observe("applied", 120*time.Millisecond)
	m.Observe("duplicate", 5*time.Millisecond)
	m.Observe("duplicate", 5*time.Millisecond)
	m.Observe("", time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "payment_webhook_events_total", "outcome", "duplicate")
	require.NoError(t, err)
	assert.Equal(t, float64(2), got)

	got, err = fetchCounterValue(mfs, "payment_webhook_events_total", "outcome", "unknown")
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)

	sum, err := fetchHistogramSum(mfs, "payment_webhook_duration_seconds", "outcome", "applied")
	require.NoError(t, err)
	assert.Greater(t, sum, 0.0)
}

func TestInventoryAndNotificationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	inv := NewInventoryMetrics(reg)
	notif := NewNotificationMetrics(reg)

	inv.IncAdjustment("applied")
	inv.IncAdjustment("insufficient_stock")
	notif.IncDelivered("low_stock")
	notif.IncFailed("publish")
	notif.IncDropped()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "inventory_adjustments_total", "result", "insufficient_stock")
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)

	got, err = fetchCounterValue(mfs, "notifications_failed_total", "stage", "publish")
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)

	dropped := findMetricFamily(mfs, "notifications_dropped_total")
	require.NotNil(t, dropped)
	assert.Equal(t, float64(1), dropped.GetMetric()[0].GetCounter().GetValue())
}

func TestNilMetricsAreSafe(t *testing.T) {
	var w *WebhookMetrics
	var i *InventoryMetrics
	var n *NotificationMetrics
	w.Observe("applied", time.Second)
	i.IncAdjustment("applied")
	n.IncDelivered("order_paid")
	n.IncFailed("persist")
	n.IncDropped()

	NewWebhookMetrics(nil).Observe("applied", time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
