package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SubscriptionChanges *prometheus.CounterVec
	Deliveries          *prometheus.CounterVec
	Dispatches          *prometheus.CounterVec
	DegradedReads       *prometheus.CounterVec
	GatewayLatency      prometheus.Histogram
	AuditEntries        prometheus.Gauge
}

// New creates and registers all metrics on reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SubscriptionChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "railalert_subscription_changes_total",
			Help: "Subscription mutations that changed durable state, by action",
		}, []string{"action"}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "railalert_deliveries_total",
			Help: "Per-recipient delivery attempts, by outcome",
		}, []string{"outcome"}),
		Dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "railalert_dispatches_total",
			Help: "Broadcast dispatches, by aggregate status",
		}, []string{"status"}),
		DegradedReads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "railalert_degraded_reads_total",
			Help: "Recipient reads served from the cache because the store failed",
		}, []string{"operation"}),
		GatewayLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "railalert_gateway_send_seconds",
			Help:    "Latency of single delivery gateway calls",
			Buckets: prometheus.DefBuckets,
		}),
		AuditEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "railalert_audit_entries",
			Help: "Entries currently held in the in-memory audit trail",
		}),
	}
}

func (m *Metrics) IncrementSubscriptionChange(action string) {
	m.SubscriptionChanges.WithLabelValues(action).Inc()
}

func (m *Metrics) IncrementDelivery(outcome string) {
	m.Deliveries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementDispatch(status string) {
	m.Dispatches.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementDegradedRead(operation string) {
	m.DegradedReads.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveGatewayLatency(d time.Duration) {
	m.GatewayLatency.Observe(d.Seconds())
}

func (m *Metrics) SetAuditEntries(n int) {
	m.AuditEntries.Set(float64(n))
}
