// Package metrics exposes Prometheus collectors for the RAG pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts answered queries by outcome.
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bankrag",
		Name:      "queries_total",
		Help:      "Total number of answered queries.",
	}, []string{"outcome"}) // answered, empty, degraded

	// QueryDuration observes end-to-end pipeline latency.
	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bankrag",
		Name:      "query_duration_seconds",
		Help:      "End-to-end query answering latency.",
		Buckets:   prometheus.DefBuckets,
	})

	// ProviderFallbackTotal counts provider calls that degraded to the
	// deterministic fallback path, by stage.
	ProviderFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bankrag",
		Name:      "provider_fallback_total",
		Help:      "Provider calls that fell back to degraded operation.",
	}, []string{"stage"}) // embedding, generation

	// DocumentsIndexed tracks the current number of indexed documents.
	DocumentsIndexed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bankrag",
		Name:      "documents_indexed",
		Help:      "Number of documents currently held by the vector index.",
	})

	// EscalationsTotal counts answers flagged for a human specialist.
	EscalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bankrag",
		Name:      "escalations_total",
		Help:      "Answers flagged for human specialist escalation.",
	})
)
