package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deposit_bot_submissions_total",
		Help: "Deposit submissions by outcome",
	}, []string{"result"})

	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deposit_bot_decisions_total",
		Help: "Admin actions by action and outcome",
	}, []string{"action", "result"})

	DeliveryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deposit_bot_delivery_failures_total",
		Help: "Outbound messages that could not be delivered",
	}, []string{"recipient"})

	CommitConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deposit_bot_commit_conflicts_total",
		Help: "Optimistic version conflicts retried by the ledger",
	})

	UpdateLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deposit_bot_update_duration_seconds",
		Help:    "Time spent handling one Telegram update",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"kind"})
)
