package ingest

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	findingsIngested *prometheus.CounterVec
	recordsSkipped   *prometheus.CounterVec
)

func initMetrics() {
	findingsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "secops",
			Subsystem: "ingest",
			Name:      "findings_total",
			Help:      "Findings processed by the correlation engine.",
		},
		[]string{"tool", "outcome"},
	)

	recordsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "secops",
			Subsystem: "ingest",
			Name:      "records_skipped_total",
			Help:      "Raw records dropped during import.",
		},
		[]string{"tool"},
	)

	prometheus.MustRegister(findingsIngested, recordsSkipped)
}

func recordUpsert(tool string, isNew bool) {
	metricsOnce.Do(initMetrics)
	outcome := "deduplicated"
	if isNew {
		outcome = "new"
	}
	findingsIngested.WithLabelValues(tool, outcome).Inc()
}

func recordSkip(tool string) {
	metricsOnce.Do(initMetrics)
	recordsSkipped.WithLabelValues(tool).Inc()
}
