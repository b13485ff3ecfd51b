// Package metrics provides Prometheus metrics collection for the spot API.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "pfm"
	subsystem = "api"
)

var (
	// Using atomic.Pointer so Record* calls are safe before Init and in tests.
	requestsTotal        atomic.Pointer[prometheus.CounterVec]
	requestDuration      atomic.Pointer[prometheus.HistogramVec]
	authFailuresTotal    atomic.Pointer[prometheus.CounterVec]
	transitionsTotal     atomic.Pointer[prometheus.CounterVec]
	captchaTotal         atomic.Pointer[prometheus.CounterVec]
	notificationsTotal   atomic.Pointer[prometheus.CounterVec]
	notificationDuration atomic.Pointer[prometheus.HistogramVec]
)

// Init initializes all Prometheus metrics and registers them with the provided registry.
// This should be called once at application startup.
func Init(reg prometheus.Registerer, version string) error {
	requestsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)

	requestDurationVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authFailuresTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "auth_failures_total",
			Help:      "Total number of rejected admin requests",
		},
		[]string{"reason"},
	)

	// Moderation transitions, including "pending" for new submissions
	transitionsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "spot_transitions_total",
			Help:      "Total number of spots moved into a moderation status",
		},
		[]string{"to"},
	)

	captchaTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "captcha_total",
			Help:      "Captcha challenges issued and verification outcomes",
		},
		[]string{"outcome"},
	)

	notificationsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_total",
			Help:      "Total number of email notifications by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	notificationDurationVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notification_duration_seconds",
			Help:      "Time spent delivering one email notification",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	// Info gauge: static metric with constant label values for build info
	infoGaugeVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "info",
			Help:      "Service version and build information",
		},
		[]string{"version"},
	)

	collectors := []struct {
		name string
		c    prometheus.Collector
	}{
		{"requestsTotal", requestsTotalVec},
		{"requestDuration", requestDurationVec},
		{"authFailuresTotal", authFailuresTotalVec},
		{"transitionsTotal", transitionsTotalVec},
		{"captchaTotal", captchaTotalVec},
		{"notificationsTotal", notificationsTotalVec},
		{"notificationDuration", notificationDurationVec},
		{"infoGauge", infoGaugeVec},
	}
	for _, c := range collectors {
		if err := reg.Register(c.c); err != nil {
			return fmt.Errorf("failed to register %s: %w", c.name, err)
		}
	}
	infoGaugeVec.WithLabelValues(version).Set(1)

	requestsTotal.Store(requestsTotalVec)
	requestDuration.Store(requestDurationVec)
	authFailuresTotal.Store(authFailuresTotalVec)
	transitionsTotal.Store(transitionsTotalVec)
	captchaTotal.Store(captchaTotalVec)
	notificationsTotal.Store(notificationsTotalVec)
	notificationDuration.Store(notificationDurationVec)

	return nil
}

// RecordRequest increments the requests counter for the given method, path, and status code.
// The path should be a route pattern (e.g., "/admin/spots/{id}").
func RecordRequest(method, path, statusCode string) {
	if counter := requestsTotal.Load(); counter != nil {
		counter.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RecordRequestDuration records the latency for a request in seconds.
func RecordRequestDuration(method, path, statusCode string, durationSeconds float64) {
	if histogram := requestDuration.Load(); histogram != nil {
		histogram.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
	}
}

// RecordAuthFailure increments the auth failures counter for the given reason.
// Reasons: "missing_credential", "unauthorized".
func RecordAuthFailure(reason string) {
	if counter := authFailuresTotal.Load(); counter != nil {
		counter.WithLabelValues(reason).Inc()
	}
}

// RecordTransition counts a spot entering the given status.
func RecordTransition(to string) {
	if counter := transitionsTotal.Load(); counter != nil {
		counter.WithLabelValues(to).Inc()
	}
}

// RecordCaptcha counts a captcha event.
// Outcomes: "issued", "passed", "failed", "invalid", "expired", "replayed".
func RecordCaptcha(outcome string) {
	if counter := captchaTotal.Load(); counter != nil {
		counter.WithLabelValues(outcome).Inc()
	}
}

// RecordNotification counts one delivery attempt and its duration.
// Outcomes: "sent", "failed", "skipped".
func RecordNotification(kind, outcome string, durationSeconds float64) {
	if counter := notificationsTotal.Load(); counter != nil {
		counter.WithLabelValues(kind, outcome).Inc()
	}
	if outcome == "skipped" {
		return
	}
	if histogram := notificationDuration.Load(); histogram != nil {
		histogram.WithLabelValues(kind).Observe(durationSeconds)
	}
}

// Handler returns an HTTP handler serving metrics from the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// GetMetricsText returns the Prometheus text-format output from a registry.
// This is useful for testing and debugging.
func GetMetricsText(reg prometheus.Gatherer) (string, error) {
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	body, err := io.ReadAll(w.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read metrics output: %w", err)
	}

	return string(body), nil
}
