// Package image generates the raster rendition set for image assets:
// a cropped thumbnail, a bounded preview, a web-optimized WebP, and a
// mobile crop, plus the technical metadata row.
package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/contenthub/contenthub/internal/blobstore"
	"github.com/contenthub/contenthub/internal/catalog"
	"github.com/contenthub/contenthub/internal/lifecycle"
	"github.com/contenthub/contenthub/internal/logger"
	"github.com/contenthub/contenthub/internal/metrics"
	"github.com/contenthub/contenthub/internal/pipeline"
	"github.com/google/uuid"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type Pipeline struct {
	store   catalog.Store
	blobs   blobstore.Storage
	tracker *lifecycle.Tracker
	tempDir string
}

func NewPipeline(store catalog.Store, blobs blobstore.Storage, tempDir string) *Pipeline {
	return &Pipeline{
		store:   store,
		blobs:   blobs,
		tracker: lifecycle.NewTracker(store),
		tempDir: tempDir,
	}
}

// Process runs the full image pipeline for one asset. Variants uploaded
// before a failure are kept; reprocessing overwrites them because the
// keys and the variant rows are deterministic.
func (p *Pipeline) Process(ctx context.Context, assetID uuid.UUID, fileKey string) error {
	log := logger.FromContext(ctx)

	if err := p.tracker.MarkProcessing(ctx, assetID); err != nil {
		if errors.Is(err, lifecycle.ErrAlreadyCompleted) {
			log.Info("asset already completed, skipping")
			return nil
		}
		return pipeline.Transient("mark_processing", err)
	}

	reader, err := p.blobs.Download(ctx, fileKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return pipeline.Permanent("download", err)
		}
		return pipeline.Transient("download", err)
	}
	data, err := io.ReadAll(reader)
	closeErr := reader.Close()
	if err != nil {
		return pipeline.Transient("download", err)
	}
	if closeErr != nil {
		log.Warn("close original reader", "error", closeErr)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return pipeline.Permanent("decode", fmt.Errorf("undecodable image: %w", err))
	}

	bounds := src.Bounds()
	width, height := int32(bounds.Dx()), int32(bounds.Dy())
	if err := p.tracker.RecordDimensions(ctx, assetID, width, height, nil); err != nil {
		return pipeline.Transient("record_dimensions", err)
	}
	log.Info("image decoded", "format", format, "width", width, "height", height)

	var thumbnailKey, previewKey *string
	for _, spec := range DefaultVariants {
		key, err := p.generateVariant(ctx, assetID, fileKey, src, spec)
		if err != nil {
			return err
		}
		switch spec.Type {
		case catalog.VariantThumbnail:
			thumbnailKey = &key
		case catalog.VariantPreview:
			previewKey = &key
		}
		metrics.RecordVariantGenerated(string(spec.Type))
	}

	colorSpace, bitDepth, hasAlpha := introspect(src, format)
	meta := catalog.Metadata{
		AssetID:    assetID,
		ColorSpace: &colorSpace,
		BitDepth:   &bitDepth,
		Resolution: strPtr(fmt.Sprintf("%dx%d", width, height)),
		Container:  &format,
		CustomFields: map[string]string{
			"has_alpha": fmt.Sprintf("%t", hasAlpha),
		},
	}
	if err := p.store.CreateMetadata(ctx, meta); err != nil {
		return pipeline.Transient("metadata", err)
	}

	completion := lifecycle.Completion{
		Width:        &width,
		Height:       &height,
		ThumbnailKey: thumbnailKey,
		PreviewKey:   previewKey,
	}
	if err := p.tracker.MarkCompleted(ctx, assetID, completion); err != nil {
		return pipeline.Transient("mark_completed", err)
	}
	return nil
}

// generateVariant renders, encodes, uploads, and records one rendition,
// returning its storage key.
func (p *Pipeline) generateVariant(ctx context.Context, assetID uuid.UUID, fileKey string, src image.Image, spec VariantSpec) (string, error) {
	stage := "variant_" + string(spec.Type)

	rendered := resize(src, spec)
	outBounds := rendered.Bounds()

	var (
		data        []byte
		format      string
		contentType string
		err         error
	)
	switch spec.Format {
	case "webp":
		data, format, contentType, err = encodeWebP(ctx, rendered, spec.Quality, p.tempDir)
	default:
		format, contentType = "jpeg", "image/jpeg"
		data, err = encodeJPEG(rendered, spec.Quality)
	}
	if err != nil {
		return "", pipeline.Transient(stage, err)
	}

	key := blobstore.VariantKey(fileKey, spec.Folder, extensionFor(format))
	if err := p.blobs.Upload(ctx, key, bytes.NewReader(data), contentType, int64(len(data))); err != nil {
		return "", pipeline.Transient(stage, err)
	}

	quality := int32(spec.Quality)
	variant := catalog.Variant{
		AssetID:     assetID,
		VariantType: spec.Type,
		FileKey:     key,
		Width:       int32(outBounds.Dx()),
		Height:      int32(outBounds.Dy()),
		FileSize:    int64(len(data)),
		Format:      format,
		Quality:     &quality,
	}
	if err := p.store.CreateVariant(ctx, variant); err != nil {
		return "", pipeline.Transient(stage, err)
	}
	return key, nil
}

func extensionFor(format string) string {
	if format == "webp" {
		return "webp"
	}
	return "jpg"
}

func strPtr(s string) *string { return &s }
