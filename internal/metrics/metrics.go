package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contenthub_jobs_enqueued_total",
			Help: "Total number of processing jobs enqueued",
		},
		[]string{"queue", "type"},
	)

	DispatchDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contenthub_dispatch_degraded_total",
			Help: "Total dispatches that failed to reach the queue backend",
		},
	)

	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contenthub_jobs_processed_total",
			Help: "Total number of processing jobs finished",
		},
		[]string{"type", "status"},
	)

	JobsProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contenthub_jobs_processing_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 900},
		},
		[]string{"type", "stage"},
	)

	WorkerPoolActiveJobs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contenthub_worker_pool_active_jobs",
			Help: "Number of jobs currently being processed, per queue",
		},
		[]string{"queue"},
	)

	WorkerPoolSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contenthub_worker_pool_size",
			Help: "Configured worker pool size, per queue",
		},
		[]string{"queue"},
	)

	VariantsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contenthub_variants_generated_total",
			Help: "Total number of variants generated",
		},
		[]string{"variant_type"},
	)

	TranscodeProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contenthub_transcode_progress_ratio",
			Help: "Progress of the in-flight preview transcode per asset, 0 to 1",
		},
		[]string{"asset_id"},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contenthub_storage_operations_total",
			Help: "Total number of blob storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contenthub_storage_operation_duration_seconds",
			Help:    "Duration of blob storage operations in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	StorageBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contenthub_storage_bytes_total",
			Help: "Total bytes transferred to/from blob storage",
		},
		[]string{"operation"},
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contenthub_app_info",
			Help: "Application information",
		},
		[]string{"version", "environment", "service"},
	)

	AppUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "contenthub_app_up",
			Help: "Application is up and running",
		},
	)
)

func RecordJobEnqueued(queue, jobType string) {
	JobsEnqueuedTotal.WithLabelValues(queue, jobType).Inc()
}

func RecordJobProcessed(jobType, status string, durationSeconds float64) {
	JobsProcessedTotal.WithLabelValues(jobType, status).Inc()
	JobsProcessingDuration.WithLabelValues(jobType, "total").Observe(durationSeconds)
}

func RecordJobStage(jobType, stage string, durationSeconds float64) {
	JobsProcessingDuration.WithLabelValues(jobType, stage).Observe(durationSeconds)
}

func RecordVariantGenerated(variantType string) {
	VariantsGeneratedTotal.WithLabelValues(variantType).Inc()
}

func SetTranscodeProgress(assetID string, ratio float64) {
	TranscodeProgress.WithLabelValues(assetID).Set(ratio)
}

func ClearTranscodeProgress(assetID string) {
	TranscodeProgress.DeleteLabelValues(assetID)
}

func SetWorkerPoolSize(queue string, size int) {
	WorkerPoolSize.WithLabelValues(queue).Set(float64(size))
}

func SetAppInfo(version, environment, service string) {
	AppInfo.WithLabelValues(version, environment, service).Set(1)
	AppUp.Set(1)
}
