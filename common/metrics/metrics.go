package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the generation service needs from metrics.
type Recorder interface {
	RecordGeneration(provider, model, status string, duration time.Duration, promptTokens, completionTokens int)
}

// Collector provides Prometheus metrics for the HTTP surface and the
// provider round trips. It owns a private registry so tests can build as
// many collectors as they like.
type Collector struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	generationTokens   *prometheus.CounterVec
	registry           *prometheus.Registry
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inference_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method and route",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	generationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_generations_total",
			Help: "Total number of provider generations by provider, model and status",
		},
		[]string{"provider", "model", "status"},
	)

	generationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inference_generation_duration_seconds",
			Help:    "Duration of provider round trips",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)

	generationTokens := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_generation_tokens_total",
			Help: "Tokens consumed by kind (prompt or completion)",
		},
		[]string{"provider", "model", "kind"},
	)

	registry.MustRegister(
		requestsTotal,
		requestDuration,
		generationsTotal,
		generationDuration,
		generationTokens,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		requestsTotal:      requestsTotal,
		requestDuration:    requestDuration,
		generationsTotal:   generationsTotal,
		generationDuration: generationDuration,
		generationTokens:   generationTokens,
		registry:           registry,
	}
}

// RecordRequest records one served HTTP request.
func (m *Collector) RecordRequest(method, route, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, status).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordGeneration records one provider round trip. Status is "success"
// or "error"; tokens are only counted on success.
func (m *Collector) RecordGeneration(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	m.generationsTotal.WithLabelValues(provider, model, status).Inc()
	m.generationDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if promptTokens > 0 {
		m.generationTokens.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.generationTokens.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
