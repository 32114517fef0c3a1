package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every medteam collector plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var (
	// Role call metrics
	AgentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medteam_agent_calls_total",
			Help: "Total number of role inference calls",
		},
		[]string{"role", "model", "status"}, // status: success|error
	)

	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medteam_agent_latency_seconds",
			Help:    "Role inference latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"role", "model"},
	)

	AgentTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medteam_agent_tokens_total",
			Help: "Total tokens used by role calls",
		},
		[]string{"role", "model", "type"}, // type: input|output
	)

	// Run metrics
	Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medteam_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"}, // status: complete|partial|failed
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medteam_run_duration_seconds",
			Help:    "End-to-end pipeline duration in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		AgentCalls,
		AgentLatency,
		AgentTokens,
		Runs,
		RunDuration,
	)
}

// Handler returns the HTTP handler exposing Registry
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// RecordAgentCall records one role inference call
func RecordAgentCall(role, model string, latency time.Duration, inputTokens, outputTokens int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	AgentCalls.WithLabelValues(role, model, status).Inc()
	AgentLatency.WithLabelValues(role, model).Observe(latency.Seconds())

	if inputTokens > 0 {
		AgentTokens.WithLabelValues(role, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		AgentTokens.WithLabelValues(role, model, "output").Add(float64(outputTokens))
	}
}

// RecordRun records one finished pipeline run
func RecordRun(status string, duration time.Duration) {
	Runs.WithLabelValues(status).Inc()
	RunDuration.Observe(duration.Seconds())
}
