package services

import "github.com/prometheus/client_golang/prometheus"

// Generation outcomes used as the "outcome" label.
const (
	outcomeGenerated        = "generated"
	outcomeGeneratedUnsaved = "generated_unsaved"
	outcomeBlocked          = "blocked"
	outcomeInProgress       = "in_progress"
	outcomeFailedRemote     = "failed_remote"
	outcomeFailedMalformed  = "failed_malformed"
	outcomeFailedOther      = "failed_other"
	outcomeStoreUnavailable = "store_error"
)

var (
	// generations counts generation requests by outcome.
	generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_generation_total",
			Help: "Generation requests by outcome.",
		},
		[]string{"outcome"},
	)

	// fetchDuration records remote agent round-trips, successful or not.
	// Agent flows are slow, so buckets reach several minutes.
	fetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "news_remote_fetch_duration_seconds",
			Help:    "Duration of remote agent calls in seconds.",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 90, 120, 180, 300},
		},
	)

	// purgedRecords counts stale daily records removed before a new fetch.
	purgedRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "news_records_purged_total",
			Help: "Stale daily records removed by the cleanup policy.",
		},
	)
)

func init() {
	prometheus.MustRegister(generations, fetchDuration, purgedRecords)
}

func failureOutcome(kind string) string {
	switch kind {
	case "remote":
		return outcomeFailedRemote
	case "malformed":
		return outcomeFailedMalformed
	default:
		return outcomeFailedOther
	}
}
