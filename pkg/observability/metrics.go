package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Billing metrics
	ChargesTotal           *prometheus.CounterVec
	TickDuration           prometheus.Histogram
	TicksTotal             prometheus.Counter
	EligibleSubscriptions  prometheus.Histogram
	ConversionFailures     prometheus.Counter
	ChargeRecordErrors     prometheus.Counter

	// Annotation metrics
	AnnotationRequestsTotal *prometheus.CounterVec
	AnnotationFallbacks     prometheus.Counter

	// Currency cache metrics
	RateCacheHitsTotal   *prometheus.CounterVec
	RateCacheMissesTotal prometheus.Counter

	// Business metrics
	ActiveSubscriptions prometheus.Gauge
	LedgerSize          prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ChargesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_charges_total",
				Help: "Total number of recorded charges",
			},
			[]string{"interval", "converted"},
		),
		TickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "billing_tick_duration_seconds",
				Help:    "Billing scheduler tick duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		TicksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_ticks_total",
				Help: "Total number of scheduler ticks",
			},
		),
		EligibleSubscriptions: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "billing_eligible_subscriptions",
				Help:    "Number of subscriptions eligible per tick",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		ConversionFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_conversion_failures_total",
				Help: "Total number of failed currency conversions",
			},
		),
		ChargeRecordErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_charge_record_errors_total",
				Help: "Total number of store errors while recording charges",
			},
		),

		AnnotationRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_annotation_requests_total",
				Help: "Total number of annotation provider calls",
			},
			[]string{"status"},
		),
		AnnotationFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_annotation_fallbacks_total",
				Help: "Total number of annotation fallback results",
			},
		),

		RateCacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_rate_cache_hits_total",
				Help: "Total number of exchange rate cache hits",
			},
			[]string{"layer"},
		),
		RateCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_rate_cache_misses_total",
				Help: "Total number of exchange rate cache misses",
			},
		),

		ActiveSubscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "billing_active_subscriptions",
				Help: "Current number of active subscriptions",
			},
		),
		LedgerSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "billing_ledger_size",
				Help: "Current number of ledger entries",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ChargesTotal,
		m.TickDuration,
		m.TicksTotal,
		m.EligibleSubscriptions,
		m.ConversionFailures,
		m.ChargeRecordErrors,
		m.AnnotationRequestsTotal,
		m.AnnotationFallbacks,
		m.RateCacheHitsTotal,
		m.RateCacheMissesTotal,
		m.ActiveSubscriptions,
		m.LedgerSize,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records metrics for a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCharge records metrics for a recorded charge
func (m *Metrics) RecordCharge(interval string, converted bool) {
	m.ChargesTotal.WithLabelValues(interval, strconv.FormatBool(converted)).Inc()
	if !converted {
		m.ConversionFailures.Inc()
	}
}

// RecordTick records metrics for a completed scheduler tick
func (m *Metrics) RecordTick(eligible int, duration time.Duration) {
	m.TicksTotal.Inc()
	m.EligibleSubscriptions.Observe(float64(eligible))
	m.TickDuration.Observe(duration.Seconds())
}
