// Package metrics defines the Prometheus collectors of an indexing run.
//
// Collectors live on a private registry; a run's totals can be written in
// the node_exporter textfile format with WriteTextfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// File outcomes recorded in htmlindex_files_total.
const (
	OutcomeIndexed = "indexed"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Metrics holds all collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	FilesTotal         *prometheus.CounterVec
	DocumentsCommitted *prometheus.CounterVec
	ArtifactFailures   prometheus.Counter
	TokensTotal        prometheus.Counter
	DocumentDuration   prometheus.Histogram
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "htmlindex_files_total",
				Help: "Files seen by the walker, by outcome (indexed, skipped, failed).",
			},
			[]string{"outcome"},
		),
		DocumentsCommitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "htmlindex_documents_committed_total",
				Help: "Documents handed to the index, by session mode.",
			},
			[]string{"mode"},
		),
		ArtifactFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "htmlindex_artifact_failures_total",
				Help: "Side artifact files that could not be written.",
			},
		),
		TokensTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "htmlindex_tokens_total",
				Help: "Tokens counted across all HTML documents.",
			},
		),
		DocumentDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "htmlindex_document_duration_seconds",
				Help:    "Time to read, extract, count and commit one file.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
	}

	m.registry.MustRegister(
		m.FilesTotal,
		m.DocumentsCommitted,
		m.ArtifactFailures,
		m.TokensTotal,
		m.DocumentDuration,
	)

	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFile records the outcome and duration of one file.
func (m *Metrics) ObserveFile(outcome string, elapsed time.Duration) {
	m.FilesTotal.WithLabelValues(outcome).Inc()
	m.DocumentDuration.Observe(elapsed.Seconds())
}

// ObserveCommit records one document handed to the index.
func (m *Metrics) ObserveCommit(mode string) {
	m.DocumentsCommitted.WithLabelValues(mode).Inc()
}

// WriteTextfile writes every collector to path in the text exposition
// format. The write is atomic.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
