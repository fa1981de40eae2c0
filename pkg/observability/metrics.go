// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, path, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pilotgw_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and path.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pilotgw_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "path"},
	)

	// StreamingConnections tracks the number of active SSE streaming connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pilotgw_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// UpstreamRequestsTotal counts completions dispatched upstream by endpoint
	// and outcome.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pilotgw_upstream_requests_total",
			Help: "Upstream completion requests",
		},
		[]string{"endpoint", "outcome"},
	)

	// UpstreamLatency records upstream completion latency in seconds.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pilotgw_upstream_latency_seconds",
			Help:    "Upstream completion latency",
			Buckets: LLMBuckets,
		},
		[]string{"endpoint"},
	)

	// TokensTotal counts tokens processed by model and direction (input/output).
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pilotgw_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		UpstreamRequestsTotal,
		UpstreamLatency,
		TokensTotal,
	)
}

// ObserveUpstream records one upstream completion attempt.
func ObserveUpstream(endpoint string, err error, seconds float64) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	UpstreamLatency.WithLabelValues(endpoint).Observe(seconds)
}

// ObserveTokens records prompt and completion token counts for a model.
func ObserveTokens(model string, prompt, completion int) {
	if prompt > 0 {
		TokensTotal.WithLabelValues(model, "input").Add(float64(prompt))
	}
	if completion > 0 {
		TokensTotal.WithLabelValues(model, "output").Add(float64(completion))
	}
}
