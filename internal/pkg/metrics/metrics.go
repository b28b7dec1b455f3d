package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IngestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botgate_ingest_total",
		Help: "The total number of ingest requests processed",
	}, []string{"type", "status"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "botgate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	EnrichmentFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botgate_enrichment_fetches_total",
		Help: "Upstream Ethereal fetches by resource and outcome",
	}, []string{"resource", "outcome"})
)
