package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "semaudit_runs_total",
		Help: "Total audit runs executed.",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "semaudit_run_duration_seconds",
		Help:    "End to end duration of audit runs.",
		Buckets: prometheus.DefBuckets,
	})

	featuresResolved = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "semaudit_features_resolved",
		Help: "Feature chains resolved in the last run.",
	})

	chainFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "semaudit_chain_failures",
		Help: "Feature chains that failed validation or resolution in the last run.",
	})

	findingsBySeverity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "semaudit_findings",
		Help: "Findings produced by the last run, by severity.",
	}, []string{"severity"})
)

// observeRun records one completed audit pass. Every severity label is
// written each run so stale values never linger.
func observeRun(resolution *Resolution, det *DetectResult) {
	runsTotal.Inc()
	featuresResolved.Set(float64(len(resolution.States)))
	chainFailures.Set(float64(len(resolution.Failures)))

	counts := make(map[Severity]int)
	for _, f := range det.Findings {
		counts[f.Severity]++
	}
	for _, s := range []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityNone} {
		findingsBySeverity.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}
