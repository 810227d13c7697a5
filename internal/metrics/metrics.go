package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"election-agent/internal/domain"
)

// Registry holds all Prometheus metrics of the agent.
type Registry struct {
	*prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	blockedQuestions *prometheus.CounterVec
	providerAttempts *prometheus.CounterVec
	fallbacks        prometheus.Counter
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
		blockedQuestions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "election_agent_blocked_questions_total",
				Help: "Questions refused by the keyword filter, by matched keyword",
			},
			[]string{"keyword"},
		),
		providerAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "election_agent_provider_attempts_total",
				Help: "Upstream completion attempts by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		fallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "election_agent_provider_fallbacks_total",
				Help: "Turns that fell back to the secondary provider",
			},
		),
	}

	reg.MustRegister(
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.httpRequestsInFlight,
		r.blockedQuestions,
		r.providerAttempts,
		r.fallbacks,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}

func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	r.httpRequestsTotal.WithLabelValues(method, path, statusToString(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

func (r *Registry) BlockedQuestion(keyword string) {
	r.blockedQuestions.WithLabelValues(keyword).Inc()
}

func (r *Registry) ProviderAttempt(provider domain.Provider, outcome string) {
	r.providerAttempts.WithLabelValues(string(provider), outcome).Inc()
}

func (r *Registry) ProviderFallback() {
	r.fallbacks.Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
