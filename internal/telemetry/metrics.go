package telemetry

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tournevent/courierhub/pkg/shipper"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CarrierErrors   *prometheus.CounterVec
	TokenEvents     *prometheus.CounterVec
	WebhookEvents   *prometheus.CounterVec
}

// NewMetrics creates metrics and registers them with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierhub_carrier_requests_total",
				Help: "Total number of carrier calls by operation, carrier, and outcome",
			},
			[]string{"operation", "carrier", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courierhub_carrier_request_duration_seconds",
				Help:    "Carrier call duration in seconds by operation and carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "carrier"},
		),
		CarrierErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierhub_carrier_errors_total",
				Help: "Total failed carrier calls by carrier and outcome",
			},
			[]string{"carrier", "outcome"},
		),
		TokenEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierhub_token_cache_events_total",
				Help: "Auth token cache events by carrier and event",
			},
			[]string{"carrier", "event"},
		),
		WebhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierhub_webhook_updates_total",
				Help: "Status updates received through carrier webhooks",
			},
			[]string{"carrier", "status"},
		),
	}
}

// ObserveCarrierCall records one carrier call. It satisfies shipper.Observer.
func (m *Metrics) ObserveCarrierCall(operation string, carrier shipper.Code, outcome string, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(operation, string(carrier), outcome).Inc()
	m.RequestDuration.WithLabelValues(operation, string(carrier)).Observe(elapsed.Seconds())
	if outcome != "success" {
		m.CarrierErrors.WithLabelValues(string(carrier), outcome).Inc()
	}
}

// ObserveToken records a token cache event. Scope keys start with the
// carrier code; the hashed principal is not used as a label.
func (m *Metrics) ObserveToken(scope, event string) {
	m.TokenEvents.WithLabelValues(scopeCarrier(scope), event).Inc()
}

// ObserveWebhook records one status update received from a carrier.
func (m *Metrics) ObserveWebhook(carrier shipper.Code, status shipper.CanonicalStatus) {
	m.WebhookEvents.WithLabelValues(string(carrier), string(status)).Inc()
}

func scopeCarrier(scope string) string {
	carrier, _, _ := strings.Cut(scope, ":")
	return carrier
}
