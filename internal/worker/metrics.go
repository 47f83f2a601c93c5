package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_pipeline_tasks_processed_total",
			Help: "Total number of processed generation tasks.",
		},
		[]string{"status"},
	)
	taskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "narrative_pipeline_task_duration_seconds",
			Help:    "Histogram of end-to-end generation task durations.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~68m
		},
	)
	chunksRenderedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "narrative_pipeline_chunks_rendered_total",
			Help: "Total number of rendered scene chunks.",
		},
	)
)
