// Package video derives a square thumbnail and a short MP4 preview clip
// from video assets. The original is read over a presigned URL; only
// the derived outputs touch local disk, inside a per-job scratch
// directory that is removed on every exit path.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"

	"github.com/contenthub/contenthub/internal/blobstore"
	"github.com/contenthub/contenthub/internal/catalog"
	"github.com/contenthub/contenthub/internal/lifecycle"
	"github.com/contenthub/contenthub/internal/logger"
	"github.com/contenthub/contenthub/internal/metrics"
	"github.com/contenthub/contenthub/internal/pipeline"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	thumbnailSize    = 320
	thumbnailQuality = 80
	framePosition    = 0.10

	// PreviewMaxHeight caps the preview clip resolution. The engine
	// scales taller sources down preserving aspect ratio.
	PreviewMaxHeight = 720
)

type Pipeline struct {
	store   catalog.Store
	blobs   blobstore.Storage
	tracker *lifecycle.Tracker
	engine  Engine

	tempDir           string
	presignExpiry     int
	previewMaxSeconds int
}

type Config struct {
	TempDir           string
	PresignExpirySecs int
	PreviewMaxSeconds int
}

func NewPipeline(store catalog.Store, blobs blobstore.Storage, engine Engine, cfg Config) *Pipeline {
	previewMax := cfg.PreviewMaxSeconds
	if previewMax <= 0 {
		previewMax = 30
	}
	presign := cfg.PresignExpirySecs
	if presign <= 0 {
		presign = 900
	}
	return &Pipeline{
		store:             store,
		blobs:             blobs,
		tracker:           lifecycle.NewTracker(store),
		engine:            engine,
		tempDir:           cfg.TempDir,
		presignExpiry:     presign,
		previewMaxSeconds: previewMax,
	}
}

// Process runs the full video pipeline for one asset.
func (p *Pipeline) Process(ctx context.Context, assetID uuid.UUID, fileKey string) error {
	log := logger.FromContext(ctx)

	if err := p.tracker.MarkProcessing(ctx, assetID); err != nil {
		if errors.Is(err, lifecycle.ErrAlreadyCompleted) {
			log.Info("asset already completed, skipping")
			return nil
		}
		return pipeline.Transient("mark_processing", err)
	}

	sourceURL, err := p.blobs.GetPresignedURL(ctx, fileKey, p.presignExpiry)
	if err != nil {
		return pipeline.Transient("presign", err)
	}

	scratch, err := os.MkdirTemp(p.tempDir, "video-job-*")
	if err != nil {
		return pipeline.Transient("scratch", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			log.Warn("failed to remove scratch dir", "dir", scratch, "error", rmErr)
		}
	}()

	probe, err := p.engine.Probe(ctx, sourceURL)
	if err != nil {
		return pipeline.Classify("probe", fmt.Errorf("probe video: %w", err))
	}
	if probe.Width <= 0 || probe.Height <= 0 {
		return pipeline.Permanent("probe", fmt.Errorf("no video stream in %q", probe.Container))
	}

	width, height := int32(probe.Width), int32(probe.Height)
	duration := probe.Duration
	if err := p.tracker.RecordDimensions(ctx, assetID, width, height, &duration); err != nil {
		return pipeline.Transient("record_dimensions", err)
	}
	log.Info("video probed",
		"container", probe.Container, "codec", probe.VideoCodec,
		"width", width, "height", height, "duration", duration)

	thumbnailKey, err := p.generateThumbnail(ctx, assetID, fileKey, sourceURL, scratch, duration)
	if err != nil {
		return err
	}

	previewKey, err := p.generatePreview(ctx, assetID, fileKey, sourceURL, scratch, probe)
	if err != nil {
		return err
	}

	if err := p.recordMetadata(ctx, assetID, probe); err != nil {
		return pipeline.Transient("metadata", err)
	}

	completion := lifecycle.Completion{
		Width:        &width,
		Height:       &height,
		Duration:     &duration,
		ThumbnailKey: &thumbnailKey,
		PreviewKey:   &previewKey,
	}
	if err := p.tracker.MarkCompleted(ctx, assetID, completion); err != nil {
		return pipeline.Transient("mark_completed", err)
	}
	return nil
}

// generateThumbnail grabs a frame a tenth of the way in, crops it to a
// square, and stores it as the asset thumbnail.
func (p *Pipeline) generateThumbnail(ctx context.Context, assetID uuid.UUID, fileKey, sourceURL, scratch string, duration float64) (string, error) {
	framePath := filepath.Join(scratch, "frame.jpg")
	if err := p.engine.ExtractFrame(ctx, sourceURL, duration*framePosition, framePath); err != nil {
		return "", pipeline.Classify("extract_frame", err)
	}

	frameData, err := os.ReadFile(framePath)
	if err != nil {
		return "", pipeline.Transient("extract_frame", err)
	}
	frame, _, err := image.Decode(bytes.NewReader(frameData))
	if err != nil {
		return "", pipeline.Permanent("extract_frame", fmt.Errorf("undecodable frame: %w", err))
	}

	square := imaging.Fill(frame, thumbnailSize, thumbnailSize, imaging.Center, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, square, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return "", pipeline.Transient("thumbnail", err)
	}

	key := blobstore.VariantKey(fileKey, blobstore.FolderThumbnails, "jpg")
	if err := p.blobs.Upload(ctx, key, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len())); err != nil {
		return "", pipeline.Transient("thumbnail", err)
	}

	quality := int32(thumbnailQuality)
	variant := catalog.Variant{
		AssetID:     assetID,
		VariantType: catalog.VariantThumbnail,
		FileKey:     key,
		Width:       thumbnailSize,
		Height:      thumbnailSize,
		FileSize:    int64(buf.Len()),
		Format:      "jpeg",
		Quality:     &quality,
	}
	if err := p.store.CreateVariant(ctx, variant); err != nil {
		return "", pipeline.Transient("thumbnail", err)
	}
	metrics.RecordVariantGenerated(string(catalog.VariantThumbnail))
	return key, nil
}

// generatePreview transcodes the opening of the video into a web-ready
// MP4 clip, bounded by the configured maximum length.
func (p *Pipeline) generatePreview(ctx context.Context, assetID uuid.UUID, fileKey, sourceURL, scratch string, probe ProbeResult) (string, error) {
	clipSeconds := probe.Duration
	if max := float64(p.previewMaxSeconds); clipSeconds > max {
		clipSeconds = max
	}

	previewPath := filepath.Join(scratch, "preview.mp4")
	assetLabel := assetID.String()
	defer metrics.ClearTranscodeProgress(assetLabel)

	err := p.engine.TranscodePreview(ctx, sourceURL, previewPath, clipSeconds, func(ratio float64) {
		metrics.SetTranscodeProgress(assetLabel, ratio)
	})
	if err != nil {
		return "", pipeline.Classify("transcode", err)
	}

	previewFile, err := os.Open(previewPath)
	if err != nil {
		return "", pipeline.Transient("preview_upload", err)
	}
	defer func() { _ = previewFile.Close() }()
	stat, err := previewFile.Stat()
	if err != nil {
		return "", pipeline.Transient("preview_upload", err)
	}

	key := blobstore.VariantKey(fileKey, blobstore.FolderPreviews, "mp4")
	if err := p.blobs.Upload(ctx, key, previewFile, "video/mp4", stat.Size()); err != nil {
		return "", pipeline.Transient("preview_upload", err)
	}

	previewW, previewH := previewDimensions(probe.Width, probe.Height)
	variant := catalog.Variant{
		AssetID:     assetID,
		VariantType: catalog.VariantPreview,
		FileKey:     key,
		Width:       previewW,
		Height:      previewH,
		FileSize:    stat.Size(),
		Format:      "mp4",
	}
	if err := p.store.CreateVariant(ctx, variant); err != nil {
		return "", pipeline.Transient("preview_upload", err)
	}
	metrics.RecordVariantGenerated(string(catalog.VariantPreview))
	return key, nil
}

func (p *Pipeline) recordMetadata(ctx context.Context, assetID uuid.UUID, probe ProbeResult) error {
	meta := catalog.Metadata{
		AssetID:    assetID,
		Resolution: strPtr(fmt.Sprintf("%dx%d", probe.Width, probe.Height)),
		Container:  &probe.Container,
		Codec:      &probe.VideoCodec,
	}
	if probe.FrameRate > 0 {
		meta.FrameRate = &probe.FrameRate
	}
	if probe.BitRate > 0 {
		meta.BitRate = &probe.BitRate
	}
	if probe.HasAudio {
		meta.AudioCodec = &probe.AudioCodec
	}
	return p.store.CreateMetadata(ctx, meta)
}

// previewDimensions mirrors the engine's scale filter: heights above the
// cap are reduced preserving aspect ratio, with the width rounded down
// to an even pixel count as H.264 requires.
func previewDimensions(width, height int) (int32, int32) {
	if height <= PreviewMaxHeight {
		return int32(width), int32(height)
	}
	scaledW := width * PreviewMaxHeight / height
	scaledW -= scaledW % 2
	return int32(scaledW), PreviewMaxHeight
}

func strPtr(s string) *string { return &s }

