package telemetry_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipping/internal/telemetry"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)

	m.RecordRequest("rates", "dhl", "success", 0.12)
	m.RecordRequest("rates", "dhl", "success", 0.08)
	m.RecordError("dhl", "TIMEOUT")
	m.RecordWebhook("dhl", "accepted")
	m.RecordNotification("delivered", "sent")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("rates", "dhl", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CarrierErrors.WithLabelValues("dhl", "TIMEOUT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Webhooks.WithLabelValues("dhl", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("delivered", "sent")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *telemetry.Metrics

	assert.NotPanics(t, func() {
		m.RecordRequest("rates", "dhl", "success", 1)
		m.RecordError("dhl", "TIMEOUT")
		m.RecordWebhook("dhl", "accepted")
		m.RecordNotification("delivered", "sent")
	})
}
