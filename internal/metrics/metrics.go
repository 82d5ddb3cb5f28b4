package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Huzefaaa2/AIOps/internal/models"
)

const (
	// OutcomeSuccess labels analyses that produced a response.
	OutcomeSuccess = "success"
	// OutcomeError labels analyses aborted by a hard dependency failure.
	OutcomeError = "error"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiops_agent",
			Name:      "analyses_total",
			Help:      "Total number of analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "aiops_agent",
			Name:      "analysis_seconds",
			Help:      "End-to-end analysis latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60, 90},
		},
	)

	remediationOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiops_agent",
			Name:      "remediation_outcomes_total",
			Help:      "Per-action gate outcomes, partitioned by status.",
		},
		[]string{"status"},
	)

	notificationPostsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiops_agent",
			Name:      "notification_posts_total",
			Help:      "Summary card delivery attempts, partitioned by state.",
		},
		[]string{"state"},
	)
)

// Register attaches the agent collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		remediationOutcomesTotal,
		notificationPostsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records one analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// ObserveRemediation counts one gate outcome.
func ObserveRemediation(status models.OutcomeStatus) {
	remediationOutcomesTotal.WithLabelValues(string(status)).Inc()
}

// ObserveNotification counts one card delivery attempt.
func ObserveNotification(state models.NotificationState) {
	notificationPostsTotal.WithLabelValues(string(state)).Inc()
}
