// Package metrics registers the prometheus collectors of the service.
// Observe functions are no-ops until Init has run.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "leadquote_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	quoteOutcomes *prometheus.CounterVec

	refdataLoads       *prometheus.CounterVec
	refdataLoadLatency *prometheus.HistogramVec

	emailSends       *prometheus.CounterVec
	emailSendLatency *prometheus.HistogramVec

	leadsCaptured *prometheus.CounterVec
	crmForwards   *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
)

// Init creates and registers every collector with the default registerer.
// Later calls do nothing.
func Init() {
	registerOnce.Do(func() {
		quoteOutcomes = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "quote_outcomes_total",
				Help: "Quotes resolved by outcome",
			},
			[]string{"outcome"},
		)

		refdataLoads = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "refdata_loads_total",
				Help: "Reference data loads by result",
			},
			[]string{"result"},
		)
		refdataLoadLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "refdata_load_duration_seconds",
				Help:    "Reference data load duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		emailSends = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "email_sends_total",
				Help: "Email notifications by kind and result",
			},
			[]string{"kind", "result"},
		)
		emailSendLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "email_send_duration_seconds",
				Help:    "Email notification duration in seconds, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		)

		leadsCaptured = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "leads_captured_total",
				Help: "Captured leads by eligibility",
			},
			[]string{"eligible"},
		)
		crmForwards = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "crm_forwards_total",
				Help: "Leads forwarded to the CRM by provider and result",
			},
			[]string{"provider", "result"},
		)

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		)

		prometheus.MustRegister(
			quoteOutcomes,
			refdataLoads,
			refdataLoadLatency,
			emailSends,
			emailSendLatency,
			leadsCaptured,
			crmForwards,
			httpRequests,
			httpLatency,
		)
	})
}

func resultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// IncQuote counts a resolved quote.
func IncQuote(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if quoteOutcomes != nil {
		quoteOutcomes.WithLabelValues(outcome).Inc()
	}
}

// ObserveRefdataLoad records a reference data load.
func ObserveRefdataLoad(err error, duration time.Duration) {
	result := resultOf(err)
	if refdataLoads != nil {
		refdataLoads.WithLabelValues(result).Inc()
	}
	if refdataLoadLatency != nil {
		refdataLoadLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveEmail records one notification send.
func ObserveEmail(kind string, err error, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if emailSends != nil {
		emailSends.WithLabelValues(kind, resultOf(err)).Inc()
	}
	if emailSendLatency != nil {
		emailSendLatency.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

// IncLeadCaptured counts a persisted lead.
func IncLeadCaptured(eligible bool) {
	if leadsCaptured != nil {
		leadsCaptured.WithLabelValues(strconv.FormatBool(eligible)).Inc()
	}
}

// IncCRMForward counts a CRM forward attempt.
func IncCRMForward(provider string, err error) {
	if provider == "" {
		provider = "unknown"
	}
	if crmForwards != nil {
		crmForwards.WithLabelValues(provider, resultOf(err)).Inc()
	}
}

// ObserveHTTP records a served request. route is the chi route pattern.
func ObserveHTTP(route, method string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(route, method).Observe(duration.Seconds())
	}
}
