// Package document processes PDF and office documents. PDFs get a page
// count, a first-page excerpt, and raster renditions of the first page;
// office formats are recorded as-is since rendering them needs a
// converter fleet this service does not carry.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/contenthub/contenthub/internal/blobstore"
	"github.com/contenthub/contenthub/internal/catalog"
	"github.com/contenthub/contenthub/internal/lifecycle"
	"github.com/contenthub/contenthub/internal/logger"
	"github.com/contenthub/contenthub/internal/metrics"
	"github.com/contenthub/contenthub/internal/pipeline"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

var ErrEncrypted = errors.New("document: pdf is encrypted")

const (
	thumbnailWidth  = 400
	thumbnailHeight = 225
	previewBox      = 1200
	renderScale     = 1200
	jpegQuality     = 85
	excerptLimit    = 500
)

type Pipeline struct {
	store    catalog.Store
	blobs    blobstore.Storage
	tracker  *lifecycle.Tracker
	renderer Renderer
	tempDir  string
}

func NewPipeline(store catalog.Store, blobs blobstore.Storage, renderer Renderer, tempDir string) *Pipeline {
	return &Pipeline{
		store:    store,
		blobs:    blobs,
		tracker:  lifecycle.NewTracker(store),
		renderer: renderer,
		tempDir:  tempDir,
	}
}

// Process runs the document pipeline for one asset.
func (p *Pipeline) Process(ctx context.Context, assetID uuid.UUID, fileKey, mimeType string) error {
	log := logger.FromContext(ctx)

	if err := p.tracker.MarkProcessing(ctx, assetID); err != nil {
		if errors.Is(err, lifecycle.ErrAlreadyCompleted) {
			log.Info("asset already completed, skipping")
			return nil
		}
		return pipeline.Transient("mark_processing", err)
	}

	if catalog.CategoryForMime(mimeType) != catalog.CategoryDocument {
		return pipeline.Permanent("route", fmt.Errorf("not a document type: %s", mimeType))
	}

	if !strings.HasPrefix(strings.ToLower(mimeType), "application/pdf") {
		return p.completeOffice(ctx, assetID, mimeType)
	}

	reader, err := p.blobs.Download(ctx, fileKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return pipeline.Permanent("download", err)
		}
		return pipeline.Transient("download", err)
	}
	data, err := io.ReadAll(reader)
	_ = reader.Close()
	if err != nil {
		return pipeline.Transient("download", err)
	}

	pageCount, excerpt, err := inspectPDF(data)
	if err != nil {
		return pipeline.Permanent("inspect", err)
	}
	log.Info("pdf inspected", "pages", pageCount)

	thumbnailKey, previewKey, err := p.renderFirstPage(ctx, assetID, fileKey, data)
	if err != nil {
		return err
	}

	meta := catalog.Metadata{
		AssetID:   assetID,
		Container: strPtr("pdf"),
		CustomFields: map[string]string{
			"page_count": strconv.Itoa(pageCount),
		},
	}
	if excerpt != "" {
		meta.CustomFields["excerpt"] = excerpt
	}
	if err := p.store.CreateMetadata(ctx, meta); err != nil {
		return pipeline.Transient("metadata", err)
	}

	completion := lifecycle.Completion{
		ThumbnailKey: thumbnailKey,
		PreviewKey:   previewKey,
	}
	if err := p.tracker.MarkCompleted(ctx, assetID, completion); err != nil {
		return pipeline.Transient("mark_completed", err)
	}
	return nil
}

// completeOffice records an office document without renditions.
func (p *Pipeline) completeOffice(ctx context.Context, assetID uuid.UUID, mimeType string) error {
	meta := catalog.Metadata{
		AssetID: assetID,
		CustomFields: map[string]string{
			"document_type": mimeType,
		},
	}
	if err := p.store.CreateMetadata(ctx, meta); err != nil {
		return pipeline.Transient("metadata", err)
	}
	if err := p.tracker.MarkCompleted(ctx, assetID, lifecycle.Completion{}); err != nil {
		return pipeline.Transient("mark_completed", err)
	}
	return nil
}

// inspectPDF returns the page count and a plain-text excerpt of the
// first page. Excerpt extraction is best effort; a PDF with no
// extractable text still processes fine.
func inspectPDF(data []byte) (int, string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if strings.Contains(err.Error(), "encrypted") {
			return 0, "", ErrEncrypted
		}
		return 0, "", fmt.Errorf("unreadable pdf: %w", err)
	}

	pageCount := r.NumPage()
	if pageCount == 0 {
		return 0, "", errors.New("pdf has no pages")
	}

	excerpt := ""
	func() {
		defer func() { _ = recover() }()
		page := r.Page(1)
		if page.V.IsNull() {
			return
		}
		text, textErr := page.GetPlainText(nil)
		if textErr != nil {
			return
		}
		excerpt = strings.TrimSpace(text)
		if len(excerpt) > excerptLimit {
			excerpt = excerpt[:excerptLimit]
		}
	}()

	return pageCount, excerpt, nil
}

// renderFirstPage rasterizes page one with pdftoppm and derives the
// thumbnail and preview renditions from it.
func (p *Pipeline) renderFirstPage(ctx context.Context, assetID uuid.UUID, fileKey string, data []byte) (thumbnailKey, previewKey *string, err error) {
	scratch, err := os.MkdirTemp(p.tempDir, "pdf-render-*")
	if err != nil {
		return nil, nil, pipeline.Transient("render", err)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	inputPath := filepath.Join(scratch, "input.pdf")
	if err := os.WriteFile(inputPath, data, 0o600); err != nil {
		return nil, nil, pipeline.Transient("render", err)
	}

	outputBase := filepath.Join(scratch, "page")
	if err := p.renderer.RenderFirstPage(ctx, inputPath, outputBase); err != nil {
		return nil, nil, pipeline.Classify("render", err)
	}

	pageData, err := os.ReadFile(outputBase + ".jpg")
	if err != nil {
		return nil, nil, pipeline.Transient("render", err)
	}
	page, _, err := image.Decode(bytes.NewReader(pageData))
	if err != nil {
		return nil, nil, pipeline.Permanent("render", fmt.Errorf("undecodable page render: %w", err))
	}

	thumb := imaging.Fill(page, thumbnailWidth, thumbnailHeight, imaging.Top, imaging.Lanczos)
	tKey, err := p.uploadRendition(ctx, assetID, fileKey, thumb, catalog.VariantThumbnail, blobstore.FolderThumbnails, 80)
	if err != nil {
		return nil, nil, err
	}

	preview := imaging.Fit(page, previewBox, previewBox, imaging.Lanczos)
	pKey, err := p.uploadRendition(ctx, assetID, fileKey, preview, catalog.VariantPreview, blobstore.FolderPreviews, jpegQuality)
	if err != nil {
		return nil, nil, err
	}

	return &tKey, &pKey, nil
}

func (p *Pipeline) uploadRendition(ctx context.Context, assetID uuid.UUID, fileKey string, img image.Image, variantType catalog.VariantType, folder string, quality int) (string, error) {
	stage := "variant_" + string(variantType)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return "", pipeline.Transient(stage, err)
	}

	key := blobstore.VariantKey(fileKey, folder, "jpg")
	if err := p.blobs.Upload(ctx, key, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len())); err != nil {
		return "", pipeline.Transient(stage, err)
	}

	bounds := img.Bounds()
	q := int32(quality)
	variant := catalog.Variant{
		AssetID:     assetID,
		VariantType: variantType,
		FileKey:     key,
		Width:       int32(bounds.Dx()),
		Height:      int32(bounds.Dy()),
		FileSize:    int64(buf.Len()),
		Format:      "jpeg",
		Quality:     &q,
	}
	if err := p.store.CreateVariant(ctx, variant); err != nil {
		return "", pipeline.Transient(stage, err)
	}
	metrics.RecordVariantGenerated(string(variantType))
	return key, nil
}

func strPtr(s string) *string { return &s }
