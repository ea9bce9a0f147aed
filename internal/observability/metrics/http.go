package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics tracks the API surface and the extraction pipeline
// outcomes behind it.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	extractionTotal    *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	extractedEvents    *prometheus.HistogramVec
	fallbackTotal      *prometheus.CounterVec
	modelUsedTotal     *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapcal",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "snapcal",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "snapcal",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	extractionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapcal",
			Subsystem: "extraction",
			Name:      "requests_total",
			Help:      "Total extraction requests by terminal status.",
		},
		[]string{"service", "status"},
	)
	extractionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "snapcal",
			Subsystem: "extraction",
			Name:      "duration_seconds",
			Help:      "End-to-end extraction pipeline duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "status"},
	)
	extractedEvents := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "snapcal",
			Subsystem: "extraction",
			Name:      "events_per_request",
			Help:      "Number of events extracted per successful request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapcal",
			Subsystem: "extraction",
			Name:      "fallback_events_total",
			Help:      "Extractions degraded to a synthesized fallback event.",
		},
		[]string{"service"},
	)
	modelUsedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapcal",
			Subsystem: "extraction",
			Name:      "model_used_total",
			Help:      "Successful extractions by the model that produced them.",
		},
		[]string{"service", "model"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		extractionTotal,
		extractionDuration,
		extractedEvents,
		fallbackTotal,
		modelUsedTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		extractionTotal:    extractionTotal,
		extractionDuration: extractionDuration,
		extractedEvents:    extractedEvents,
		fallbackTotal:      fallbackTotal,
		modelUsedTotal:     modelUsedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) ObserveRequest(service, method, path string, status int, duration time.Duration) {
	m.requestTotal.WithLabelValues(service, method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) InFlight() prometheus.Gauge {
	return m.requestInFlight
}

// ObserveExtraction records one terminal pipeline outcome. status is
// "ok", "fallback", or "error".
func (m *HTTPServerMetrics) ObserveExtraction(service, status string, events int, duration time.Duration) {
	m.extractionTotal.WithLabelValues(service, status).Inc()
	m.extractionDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if status == "ok" {
		m.extractedEvents.WithLabelValues(service).Observe(float64(events))
	}
	if status == "fallback" {
		m.fallbackTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) ObserveModelUsed(service, model string) {
	if model == "" {
		return
	}
	m.modelUsedTotal.WithLabelValues(service, model).Inc()
}
