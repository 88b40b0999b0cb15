package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"domainstack/pkg/domain"
	"domainstack/pkg/metrics"
)

//nolint: gochecknoglobals
var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domainstack_monitor_runs_total",
		Help: "Change-detection runs, labeled by outcome (a skip reason or \"completed\").",
	}, []string{"outcome"})

	changesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domainstack_monitor_changes_total",
		Help: "Detected changes, labeled by category.",
	}, []string{"category"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "domainstack_monitor_run_duration_seconds",
		Help:    "Wall-clock duration of completed change-detection runs.",
		Buckets: metrics.DefaultBuckets,
	})
)

func observeRun(result domain.ChangeRunResult, elapsed time.Duration) {
	outcome := result.SkipReason
	if outcome == "" {
		outcome = "completed"
	}
	runsTotal.WithLabelValues(outcome).Inc()

	if result.RegistrationChanges {
		changesTotal.WithLabelValues(string(domain.ChangeRegistration)).Inc()
	}
	if result.ProviderChanges {
		changesTotal.WithLabelValues(string(domain.ChangeProvider)).Inc()
	}
	if result.CertificateChanges {
		changesTotal.WithLabelValues(string(domain.ChangeCertificate)).Inc()
	}

	runDuration.Observe(elapsed.Seconds())
}
