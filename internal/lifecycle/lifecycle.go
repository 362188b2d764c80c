// Package lifecycle owns the asset processing state machine:
// PENDING -> PROCESSING -> COMPLETED|FAILED. Terminal transitions are
// idempotent because the queue delivers at least once, so a handler may
// partially re-run after a crash.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/contenthub/contenthub/internal/catalog"
	"github.com/contenthub/contenthub/internal/logger"
	"github.com/google/uuid"
)

// ErrAlreadyCompleted signals that an asset reached COMPLETED in an
// earlier attempt. Handlers treat it as success and stop.
var ErrAlreadyCompleted = errors.New("lifecycle: asset already completed")

// Tracker applies lifecycle transitions through the persistence
// interface.
type Tracker struct {
	store catalog.Store
}

func NewTracker(store catalog.Store) *Tracker {
	return &Tracker{store: store}
}

// Completion carries the fields written together with the COMPLETED
// transition. Keys may be nil for asset types that have no raster
// renditions (audio, plain documents).
type Completion struct {
	Width        *int32
	Height       *int32
	Duration     *float64
	ThumbnailKey *string
	PreviewKey   *string
}

// MarkProcessing moves an asset into PROCESSING. Allowed from PENDING
// and from FAILED (a queue retry re-runs the same job); re-entering
// from PROCESSING is a no-op write, which is fine. If the asset already
// completed, ErrAlreadyCompleted is returned so the caller can finish
// without redoing work.
func (t *Tracker) MarkProcessing(ctx context.Context, assetID uuid.UUID) error {
	asset, err := t.store.GetAsset(ctx, assetID)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if asset.ProcessingStatus == catalog.StatusCompleted {
		return ErrAlreadyCompleted
	}

	if err := t.store.UpdateAssetProcessing(ctx, assetID, catalog.StatusProcessing, catalog.ProcessingUpdate{}); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return nil
}

// RecordDimensions persists intrinsic dimensions (and duration, when
// known) without changing status, so the asset record is useful even if
// variant generation later fails.
func (t *Tracker) RecordDimensions(ctx context.Context, assetID uuid.UUID, width, height int32, duration *float64) error {
	update := catalog.ProcessingUpdate{
		Width:    &width,
		Height:   &height,
		Duration: duration,
	}
	if err := t.store.UpdateAssetProcessing(ctx, assetID, catalog.StatusProcessing, update); err != nil {
		return fmt.Errorf("record dimensions: %w", err)
	}
	return nil
}

// MarkCompleted moves an asset to COMPLETED with the final derived
// fields. Idempotent: a second call on a completed asset is a no-op.
func (t *Tracker) MarkCompleted(ctx context.Context, assetID uuid.UUID, c Completion) error {
	asset, err := t.store.GetAsset(ctx, assetID)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if asset.ProcessingStatus == catalog.StatusCompleted {
		logger.FromContext(ctx).Debug("asset already completed", "asset_id", assetID)
		return nil
	}

	update := catalog.ProcessingUpdate{
		Width:        c.Width,
		Height:       c.Height,
		Duration:     c.Duration,
		ThumbnailKey: c.ThumbnailKey,
		PreviewKey:   c.PreviewKey,
	}
	if err := t.store.UpdateAssetProcessing(ctx, assetID, catalog.StatusCompleted, update); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// MarkFailed moves an asset to FAILED with a human-readable error
// message. It never regresses a COMPLETED asset, and re-failing a
// FAILED asset just rewrites the message.
func (t *Tracker) MarkFailed(ctx context.Context, assetID uuid.UUID, message string) error {
	asset, err := t.store.GetAsset(ctx, assetID)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if asset.ProcessingStatus == catalog.StatusCompleted {
		logger.FromContext(ctx).Warn("ignoring failure for completed asset", "asset_id", assetID, "error", message)
		return nil
	}

	update := catalog.ProcessingUpdate{ProcessingError: &message}
	if err := t.store.UpdateAssetProcessing(ctx, assetID, catalog.StatusFailed, update); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}
