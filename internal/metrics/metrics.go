package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seedpull",
		Name:      "engine_commands_total",
		Help:      "Commands written to lftp by kind.",
	}, []string{"kind"})

	CommandTimeoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seedpull",
		Name:      "engine_command_timeouts_total",
		Help:      "Commands that did not see their terminator in time, by kind.",
	}, []string{"kind"})

	CommandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "seedpull",
		Name:      "engine_command_duration_seconds",
		Help:      "Time from writing a command to reading its terminator.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"kind"})

	ParsedJobsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "seedpull",
		Name:      "parsed_jobs_total",
		Help:      "Job records produced from status reports.",
	})

	SkippedBlocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "seedpull",
		Name:      "skipped_blocks_total",
		Help:      "Malformed or unsupported status blocks that were skipped.",
	})

	RecoveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seedpull",
		Name:      "session_recoveries_total",
		Help:      "Session recoveries by reason.",
	}, []string{"reason"})

	SessionState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "seedpull",
		Name:      "session_state",
		Help:      "Current supervisor state (0 starting, 1 verifying, 2 ready, 3 recovering, 4 failed).",
	})

	ActiveJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "seedpull",
		Name:      "active_jobs",
		Help:      "Running lftp jobs in the latest status report.",
	})

	QueuedCommands = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "seedpull",
		Name:      "queued_engine_commands",
		Help:      "Commands in lftp's own queue in the latest status report.",
	})

	TransfersEnqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "seedpull",
		Name:      "transfers_enqueued_total",
		Help:      "Transfers handed to the session.",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seedpull",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		CommandsTotal,
		CommandTimeoutsTotal,
		CommandDuration,
		ParsedJobsTotal,
		SkippedBlocksTotal,
		RecoveriesTotal,
		SessionState,
		ActiveJobs,
		QueuedCommands,
		TransfersEnqueuedTotal,
		HTTPRequestsTotal,
	)
}
