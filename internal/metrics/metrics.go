package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every collector exposed on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	RequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ghost_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	RequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ghost_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	LoginsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ghost_logins_total",
		Help: "PIN login attempts by result.",
	}, []string{"result"})

	TaskCompletionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ghost_task_completions_total",
		Help: "Task completions written, split by whether they arrived from an offline queue.",
	}, []string{"replayed"})

	IssuesReportedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ghost_issues_reported_total",
		Help: "Issues written, split by whether they arrived from an offline queue.",
	}, []string{"replayed"})

	JobTransitionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ghost_job_transitions_total",
		Help: "Job status changes by target status.",
	}, []string{"status"})

	WebsocketClients = factory.NewGauge(prometheus.GaugeOpts{
		Name: "ghost_websocket_clients",
		Help: "Connected live-feed clients.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Replayed renders the replayed label from a synced flag.
func Replayed(synced bool) string {
	if synced {
		return "false"
	}
	return "true"
}
