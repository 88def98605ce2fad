package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridheat_uploads_total",
			Help: "Usage export uploads by outcome",
		},
		[]string{"outcome"},
	)

	ParseFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridheat_parse_failures_total",
			Help: "Usage export parse failures by stage",
		},
		[]string{"stage"},
	)

	ExternalCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridheat_external_calls_total",
			Help: "Geocoding and weather API calls by outcome",
		},
		[]string{"service", "status"},
	)

	ExternalCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridheat_external_call_latency_seconds",
			Help:    "Geocoding and weather API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	DatasetsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridheat_datasets_ingested_total",
			Help: "Datasets successfully ingested",
		},
	)
)
