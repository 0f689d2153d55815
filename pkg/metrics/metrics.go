// Package metrics declares the Prometheus collectors of the reasoning engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts reasoning calls by intent and outcome
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyst_queries_total",
		Help: "Total reasoning queries by intent and outcome",
	}, []string{"intent", "outcome"})

	// QueryDuration tracks reasoning latency
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analyst_query_duration_seconds",
		Help:    "Reasoning query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	}, []string{"strategy"})

	// QueryConfidence tracks the confidence distribution of answers
	QueryConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analyst_query_confidence",
		Help:    "Confidence of reasoning results",
		Buckets: []float64{0, 0.5, 0.72, 0.81, 0.9, 1},
	})

	// IngestedTotal counts ingestion items by kind and result
	IngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyst_ingested_total",
		Help: "Ingested items by kind (entity, relationship, alias) and result",
	}, []string{"kind", "result"})

	// CollaboratorCalls counts NLU and semantic search calls by result
	CollaboratorCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyst_collaborator_calls_total",
		Help: "External collaborator calls by collaborator and result",
	}, []string{"collaborator", "result"})

	// ContextCacheRequests counts bounded-context cache lookups
	ContextCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyst_context_cache_requests_total",
		Help: "Bounded context cache lookups by result (hit, miss)",
	}, []string{"result"})

	// GraphSize reports the size of the latest snapshot
	GraphSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "analyst_graph_size",
		Help: "Number of entities, relationships and aliases in the graph",
	}, []string{"kind"})
)
