package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CarrierErrors   *prometheus.CounterVec
	Webhooks        *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
}

// NewMetrics creates metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipping_requests_total",
				Help: "Total number of shipping operations by operation, carrier, and status",
			},
			[]string{"operation", "carrier", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shipping_request_duration_seconds",
				Help:    "Shipping operation duration in seconds by operation and carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "carrier"},
		),
		CarrierErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipping_carrier_errors_total",
				Help: "Total carrier API errors by carrier and error type",
			},
			[]string{"carrier", "error_type"},
		),
		Webhooks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipping_webhooks_total",
				Help: "Inbound carrier webhooks by carrier and outcome",
			},
			[]string{"carrier", "outcome"},
		),
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipping_notifications_total",
				Help: "Customer notifications by shipment status and outcome",
			},
			[]string{"status", "outcome"},
		),
	}
}

// RecordRequest records a request metric.
func (m *Metrics) RecordRequest(operation, carrier, status string, duration float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(operation, carrier, status).Inc()
	m.RequestDuration.WithLabelValues(operation, carrier).Observe(duration)
}

// RecordError records a carrier error metric.
func (m *Metrics) RecordError(carrier, errorType string) {
	if m == nil {
		return
	}
	m.CarrierErrors.WithLabelValues(carrier, errorType).Inc()
}

// RecordWebhook records the outcome of one inbound webhook.
func (m *Metrics) RecordWebhook(carrier, outcome string) {
	if m == nil {
		return
	}
	m.Webhooks.WithLabelValues(carrier, outcome).Inc()
}

// RecordNotification records one notification dispatch attempt.
func (m *Metrics) RecordNotification(status, outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(status, outcome).Inc()
}
