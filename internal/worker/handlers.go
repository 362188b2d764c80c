// Package worker binds the media pipelines to queue consumption: it
// decodes task payloads, restores trace context, runs the matching
// pipeline, and translates pipeline failures into retry decisions.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/contenthub/contenthub/internal/catalog"
	"github.com/contenthub/contenthub/internal/lifecycle"
	"github.com/contenthub/contenthub/internal/logger"
	"github.com/contenthub/contenthub/internal/metrics"
	"github.com/contenthub/contenthub/internal/pipeline"
	"github.com/contenthub/contenthub/internal/pipeline/audio"
	"github.com/contenthub/contenthub/internal/pipeline/document"
	imagepipe "github.com/contenthub/contenthub/internal/pipeline/image"
	"github.com/contenthub/contenthub/internal/pipeline/video"
	"github.com/contenthub/contenthub/internal/queue"
	"github.com/contenthub/contenthub/internal/tracing"
	"github.com/hibiken/asynq"
)

// Dependencies carries everything the handlers need.
type Dependencies struct {
	Store   catalog.Store
	Images  *imagepipe.Pipeline
	Videos  *video.Pipeline
	Docs    *document.Pipeline
	Audio   *audio.Pipeline
	Tracker *lifecycle.Tracker
}

func NewDependencies(store catalog.Store, images *imagepipe.Pipeline, videos *video.Pipeline, docs *document.Pipeline, aud *audio.Pipeline) *Dependencies {
	return &Dependencies{
		Store:   store,
		Images:  images,
		Videos:  videos,
		Docs:    docs,
		Audio:   aud,
		Tracker: lifecycle.NewTracker(store),
	}
}

// ImageHandler processes image jobs.
func ImageHandler(deps *Dependencies) asynq.HandlerFunc {
	return runHandler(deps, "image", func(ctx context.Context, deps *Dependencies, payload queue.AssetPayload) error {
		return deps.Images.Process(ctx, payload.AssetID, payload.FileKey)
	})
}

// VideoHandler processes video jobs.
func VideoHandler(deps *Dependencies) asynq.HandlerFunc {
	return runHandler(deps, "video", func(ctx context.Context, deps *Dependencies, payload queue.AssetPayload) error {
		return deps.Videos.Process(ctx, payload.AssetID, payload.FileKey)
	})
}

// DocumentHandler processes document jobs.
func DocumentHandler(deps *Dependencies) asynq.HandlerFunc {
	return runHandler(deps, "document", func(ctx context.Context, deps *Dependencies, payload queue.AssetPayload) error {
		return deps.Docs.Process(ctx, payload.AssetID, payload.FileKey, payload.MimeType)
	})
}

// AudioHandler processes audio jobs.
func AudioHandler(deps *Dependencies) asynq.HandlerFunc {
	return runHandler(deps, "audio", func(ctx context.Context, deps *Dependencies, payload queue.AssetPayload) error {
		return deps.Audio.Process(ctx, payload.AssetID, payload.FileKey)
	})
}

func runHandler(deps *Dependencies, jobType string, run func(context.Context, *Dependencies, queue.AssetPayload) error) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		start := time.Now()

		var payload queue.AssetPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			logger.FromContext(ctx).Error("invalid payload", "job_type", jobType, "error", err)
			metrics.RecordJobProcessed(jobType, "invalid", time.Since(start).Seconds())
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}

		ctx = tracing.ExtractTraceContext(ctx, payload.Trace)
		ctx, span := tracing.StartJobSpan(ctx, jobType, payload.AssetID.String())
		defer span.End()

		ctx = logger.WithAssetID(ctx, payload.AssetID.String())
		log := logger.FromContext(ctx).With("job_type", jobType)
		ctx = logger.WithLogger(ctx, log)
		log.Info("job started", "file_key", payload.FileKey)

		err := run(ctx, deps, payload)
		duration := time.Since(start)
		if err == nil {
			log.Info("job completed", "duration_ms", duration.Milliseconds())
			metrics.RecordJobProcessed(jobType, "success", duration.Seconds())
			return nil
		}

		tracing.RecordError(ctx, err)
		stage := pipeline.Stage(err)
		log.Error("job failed",
			"stage", stage, "duration_ms", duration.Milliseconds(), "error", err)

		// The asset is failed on every attempt; a queue retry moves it
		// back to PROCESSING when it re-runs.
		if failErr := deps.Tracker.MarkFailed(ctx, payload.AssetID, err.Error()); failErr != nil {
			log.Error("failed to record failure", "error", failErr)
		}

		if pipeline.IsPermanent(err) {
			metrics.RecordJobProcessed(jobType, "permanent_failure", duration.Seconds())
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		metrics.RecordJobProcessed(jobType, "failure", duration.Seconds())
		return err
	}
}
