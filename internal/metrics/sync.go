package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// SyncMetrics records agent sync runs.
type SyncMetrics struct {
	Runs        *prometheus.CounterVec
	Duration    prometheus.Histogram
	AgentsSeen  prometheus.Gauge
	Upserted    prometheus.Counter
	Skipped     prometheus.Counter
	LastSuccess prometheus.Gauge
}

func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentsync_runs_total",
			Help: "Agent sync runs by result",
		}, []string{"trigger", "result"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentsync_run_duration_seconds",
			Help:    "Duration of agent sync runs",
			Buckets: prometheus.DefBuckets,
		}),
		AgentsSeen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentsync_manager_agents",
			Help: "Number of agents returned by the manager in the last successful run",
		}),
		Upserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentsync_agents_upserted_total",
			Help: "Agents written to the agent store by sync runs",
		}),
		Skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentsync_agents_skipped_total",
			Help: "Manager agents skipped because they could not be mapped",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentsync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful sync run",
		}),
	}

	reg.MustRegister(m.Runs, m.Duration, m.AgentsSeen, m.Upserted, m.Skipped, m.LastSuccess)
	return m
}
