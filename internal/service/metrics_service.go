package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// simulation domain.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	simulationsGenerated *prometheus.CounterVec
	simulationsCompleted *prometheus.CounterVec
	actionsProcessed     *prometheus.CounterVec
	capabilityFailures   *prometheus.CounterVec
}

// NewMetricsService registers the core collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	simulationsGenerated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulations_generated_total",
		Help: "Simulations generated, labelled by whether the fallback template was used",
	}, []string{"fallback"})

	simulationsCompleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulations_completed_total",
		Help: "Simulations completed, labelled by subject",
	}, []string{"subject"})

	actionsProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "game_actions_processed_total",
		Help: "Gamified actions processed, labelled by action kind",
	}, []string{"kind"})

	capabilityFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "capability_failures_total",
		Help: "External capability failures recovered by deterministic fallbacks",
	}, []string{"operation"})

	registry.MustRegister(requestDuration, requestTotal, simulationsGenerated, simulationsCompleted, actionsProcessed, capabilityFailures)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		simulationsGenerated: simulationsGenerated,
		simulationsCompleted: simulationsCompleted,
		actionsProcessed:     actionsProcessed,
		capabilityFailures:   capabilityFailures,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler { return s.handler }

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// RecordSimulationGenerated counts a generation, noting fallback usage.
func (s *MetricsService) RecordSimulationGenerated(fallback bool) {
	s.simulationsGenerated.With(prometheus.Labels{"fallback": strconv.FormatBool(fallback)}).Inc()
}

// RecordSimulationCompleted counts a completion by subject.
func (s *MetricsService) RecordSimulationCompleted(subject string) {
	s.simulationsCompleted.With(prometheus.Labels{"subject": subject}).Inc()
}

// RecordActionProcessed counts one processed gamified action.
func (s *MetricsService) RecordActionProcessed(kind string) {
	s.actionsProcessed.With(prometheus.Labels{"kind": kind}).Inc()
}

// RecordCapabilityFailure counts a recovered external capability failure.
func (s *MetricsService) RecordCapabilityFailure(operation string) {
	s.capabilityFailures.With(prometheus.Labels{"operation": operation}).Inc()
}
