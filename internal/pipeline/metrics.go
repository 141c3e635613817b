package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts pipeline stage outcomes.
type Metrics struct {
	entries       *prometheus.CounterVec
	tallyEntries  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	winners       *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors with reg. A nil reg keeps
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		entries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "contest",
				Name:      "entries_total",
				Help:      "Entry attempts by the stage they stopped at",
			},
			[]string{"stage", "outcome"}, // outcome: "ok", "error"
		),
		tallyEntries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "contest",
				Name:      "tally_entries_total",
				Help:      "Ledger entries scored by the tally",
			},
			[]string{"outcome"}, // "scored", "excluded"
		),
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "contest",
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"stage"},
		),
		winners: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "contest",
				Name:      "winner_declarations_total",
				Help:      "Winner resolutions by outcome",
			},
			[]string{"outcome"},
		),
	}
}
