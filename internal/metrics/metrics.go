// Package metrics holds the Prometheus collectors for model calls, uploads
// and archival.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce      sync.Once
	analysisRuns      *prometheus.CounterVec
	analysisDuration  *prometheus.HistogramVec
	uploadFailures    *prometheus.CounterVec
	chatCalls         *prometheus.CounterVec
	archiveOperations *prometheus.CounterVec
)

// Register initialises the collectors and registers them with the default registry.
func Register() {
	registerOnce.Do(func() {
		analysisRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewer_analysis_runs_total",
			Help: "Analysis runs by outcome (ok, empty, malformed, error).",
		}, []string{"provider", "outcome"})

		analysisDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reviewer_analysis_duration_seconds",
			Help:    "Wall time of one analysis run including uploads.",
			Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 90, 120, 180},
		}, []string{"provider"})

		uploadFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewer_upload_failures_total",
			Help: "Documents omitted from an analysis because their upload failed.",
		}, []string{"provider", "kind"})

		chatCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewer_chat_calls_total",
			Help: "Follow-up chat calls by outcome.",
		}, []string{"provider", "outcome"})

		archiveOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewer_archive_operations_total",
			Help: "Documents sent to the archival sink by outcome.",
		}, []string{"sink", "outcome"})

		prometheus.MustRegister(analysisRuns, analysisDuration, uploadFailures, chatCalls, archiveOperations)
	})
}

// AnalysisRuns exposes the analysis run counter.
func AnalysisRuns() *prometheus.CounterVec {
	Register()
	return analysisRuns
}

// AnalysisDuration exposes the analysis latency histogram.
func AnalysisDuration() *prometheus.HistogramVec {
	Register()
	return analysisDuration
}

// UploadFailures exposes the per-document upload failure counter.
func UploadFailures() *prometheus.CounterVec {
	Register()
	return uploadFailures
}

// ChatCalls exposes the chat call counter.
func ChatCalls() *prometheus.CounterVec {
	Register()
	return chatCalls
}

// ArchiveOperations exposes the archival counter.
func ArchiveOperations() *prometheus.CounterVec {
	Register()
	return archiveOperations
}
