package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Failure reasons recorded on pharmacy_invoice_failures_total.
const (
	ReasonValidation        = "validation"
	ReasonNotFound          = "not_found"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonPersistence       = "persistence"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	registry *prometheus.Registry

	InvoicesCreated      prometheus.Counter
	InvoiceFailures      *prometheus.CounterVec
	SubscriptionsExpired prometheus.Counter
	SubscriptionEvents   *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on registry.
// A nil registry gets a fresh one, which keeps tests isolated.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: registry,
		InvoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pharmacy_invoices_created_total",
			Help: "Total number of invoices committed",
		}),
		InvoiceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmacy_invoice_failures_total",
				Help: "Total number of rejected or rolled back invoices",
			},
			[]string{"reason"},
		),
		SubscriptionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pharmacy_subscriptions_expired_total",
			Help: "Total number of subscriptions moved to expired by the sweep",
		}),
		SubscriptionEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmacy_subscription_events_total",
				Help: "Subscription lifecycle events",
			},
			[]string{"event"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pharmacy_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}

	registry.MustRegister(
		m.InvoicesCreated,
		m.InvoiceFailures,
		m.SubscriptionsExpired,
		m.SubscriptionEvents,
		m.HTTPRequestDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// RecordInvoiceFailure increments the failure counter for reason.
func (m *Metrics) RecordInvoiceFailure(reason string) {
	m.InvoiceFailures.WithLabelValues(reason).Inc()
}

// RecordSubscriptionEvent increments the lifecycle counter (assign, cancel, renew).
func (m *Metrics) RecordSubscriptionEvent(event string) {
	m.SubscriptionEvents.WithLabelValues(event).Inc()
}

// Middleware observes request latency per matched route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
