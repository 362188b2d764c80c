// Package dispatch routes freshly uploaded assets onto the processing
// queues. It is called from the upload path, so it must never turn a
// queue outage into a failed upload: every error is absorbed, logged,
// and reported through the returned handle.
package dispatch

import (
	"context"
	"time"

	"github.com/contenthub/contenthub/internal/catalog"
	"github.com/contenthub/contenthub/internal/logger"
	"github.com/contenthub/contenthub/internal/metrics"
	"github.com/contenthub/contenthub/internal/queue"
	"github.com/contenthub/contenthub/internal/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Enqueuer is the slice of the queue client the dispatcher needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName, jobType string, payload queue.AssetPayload, opts queue.Options) (queue.JobHandle, error)
}

type Dispatcher struct {
	queue Enqueuer
	store catalog.Store

	jobTimeout      time.Duration
	videoJobTimeout time.Duration
}

type Config struct {
	JobTimeout      time.Duration
	VideoJobTimeout time.Duration
}

func New(q Enqueuer, store catalog.Store, cfg Config) *Dispatcher {
	return &Dispatcher{
		queue:           q,
		store:           store,
		jobTimeout:      cfg.JobTimeout,
		videoJobTimeout: cfg.VideoJobTimeout,
	}
}

// route maps a media category to its job type, queue, and per-attempt
// timeout. Returns ok=false for categories with no pipeline.
func (d *Dispatcher) route(category catalog.MimeCategory) (jobType, queueName string, timeout time.Duration, ok bool) {
	switch category {
	case catalog.CategoryImage:
		return queue.TaskProcessImage, queue.QueueImages, d.jobTimeout, true
	case catalog.CategoryVideo:
		return queue.TaskProcessVideo, queue.QueueVideos, d.videoJobTimeout, true
	case catalog.CategoryDocument:
		return queue.TaskProcessDocument, queue.QueueDocuments, d.jobTimeout, true
	case catalog.CategoryAudio:
		return queue.TaskProcessAudio, queue.QueueAudio, d.jobTimeout, true
	default:
		return "", "", 0, false
	}
}

// Dispatch schedules processing for an uploaded asset. It never returns
// an error: unroutable types are completed as-is, and a queue outage
// yields a handle with Queued=false while the asset stays PENDING for a
// later sweep.
func (d *Dispatcher) Dispatch(ctx context.Context, assetID uuid.UUID, fileKey, mimeType string) queue.JobHandle {
	log := logger.FromContext(ctx).With("asset_id", assetID, "mime_type", mimeType)

	category := catalog.CategoryForMime(mimeType)
	jobType, queueName, timeout, ok := d.route(category)
	if !ok {
		// Nothing to derive for this type. Mark it served as uploaded so
		// it does not linger in PENDING forever.
		if err := d.store.UpdateAssetProcessing(ctx, assetID, catalog.StatusCompleted, catalog.ProcessingUpdate{}); err != nil {
			log.Error("failed to complete unprocessable asset", "error", err)
		} else {
			log.Info("asset has no processing pipeline, marked completed")
		}
		return queue.JobHandle{Queued: false}
	}

	ctx, span := tracing.StartDispatchSpan(ctx, jobType)
	defer span.End()
	span.SetAttributes(attribute.String("asset.id", assetID.String()))

	payload := queue.AssetPayload{
		AssetID:  assetID,
		FileKey:  fileKey,
		MimeType: mimeType,
		Trace:    tracing.InjectTraceContext(ctx),
	}

	handle, err := d.queue.Enqueue(ctx, queueName, jobType, payload, queue.Options{Timeout: timeout})
	if err != nil {
		tracing.RecordError(ctx, err)
		metrics.DispatchDegradedTotal.Inc()
		log.Warn("dispatch degraded, asset left pending",
			"queue", queueName, "job_type", jobType, "error", err)
		return queue.JobHandle{Queue: queueName, Queued: false}
	}

	metrics.RecordJobEnqueued(handle.Queue, jobType)
	log.Info("asset dispatched", "queue", handle.Queue, "job_id", handle.ID)
	return handle
}

// Redispatch re-runs Dispatch for an existing asset, looking up its
// file key and MIME type first. Used by the stuck-asset sweep and the
// operator CLI. Unlike Dispatch it reports lookup failures.
func (d *Dispatcher) Redispatch(ctx context.Context, assetID uuid.UUID) (queue.JobHandle, error) {
	asset, err := d.store.GetAsset(ctx, assetID)
	if err != nil {
		return queue.JobHandle{}, err
	}
	return d.Dispatch(ctx, asset.ID, asset.FileKey, asset.MimeType), nil
}

// SweepStuck finds assets that have sat PENDING for at least olderThan
// and re-dispatches them. Returns how many were requeued.
func (d *Dispatcher) SweepStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	assets, err := d.store.ListStuckAssets(ctx, olderThan)
	if err != nil {
		return 0, err
	}

	requeued := 0
	for _, asset := range assets {
		handle := d.Dispatch(ctx, asset.ID, asset.FileKey, asset.MimeType)
		if handle.Queued {
			requeued++
		}
	}

	if len(assets) > 0 {
		logger.FromContext(ctx).Info("stuck asset sweep finished",
			"found", len(assets), "requeued", requeued)
	}
	return requeued, nil
}
