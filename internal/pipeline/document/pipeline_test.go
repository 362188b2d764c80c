package document

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"testing"

	"github.com/contenthub/contenthub/internal/blobstore"
	"github.com/contenthub/contenthub/internal/catalog"
	"github.com/contenthub/contenthub/internal/pipeline"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer stands in for pdftoppm, writing a real page image so the
// rendition path is exercised end to end.
type fakeRenderer struct {
	err   error
	calls int
}

func (f *fakeRenderer) RenderFirstPage(ctx context.Context, pdfPath, outputBase string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}

	page := image.NewRGBA(image.Rect(0, 0, 900, 1200))
	for y := 0; y < 1200; y++ {
		for x := 0; x < 900; x++ {
			page.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, page, nil); err != nil {
		return err
	}
	return os.WriteFile(outputBase+".jpg", buf.Bytes(), 0o600)
}

func newDocSetup(t *testing.T, renderer Renderer) (*Pipeline, *catalog.MemoryStore, *blobstore.MemoryStorage) {
	t.Helper()
	store := catalog.NewMemoryStore()
	blobs := blobstore.NewMemoryStorage()
	return NewPipeline(store, blobs, renderer, t.TempDir()), store, blobs
}

// minimalPDF builds a one-page PDF with a correct xref table.
func minimalPDF(t *testing.T) []byte {
	t.Helper()
	var b bytes.Buffer
	offsets := make([]int, 4)

	b.WriteString("%PDF-1.4\n")
	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n")

	xref := b.Len()
	b.WriteString("xref\n0 4\n")
	fmt.Fprintf(&b, "%010d %05d f \n", 0, 65535)
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&b, "%010d %05d n \n", offsets[i], 0)
	}
	b.WriteString("trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n")
	fmt.Fprintf(&b, "%d\n", xref)
	b.WriteString("%%EOF\n")
	return b.Bytes()
}

func TestProcessPDFGeneratesRenditions(t *testing.T) {
	renderer := &fakeRenderer{}
	p, store, blobs := newDocSetup(t, renderer)
	ctx := context.Background()
	id := uuid.New()
	store.AddAsset(catalog.Asset{ID: id, FileKey: "orig/doc.pdf", MimeType: "application/pdf"})
	data := minimalPDF(t)
	require.NoError(t, blobs.Upload(ctx, "orig/doc.pdf", bytes.NewReader(data), "application/pdf", int64(len(data))))

	require.NoError(t, p.Process(ctx, id, "orig/doc.pdf", "application/pdf"))
	assert.Equal(t, 1, renderer.calls)

	asset, err := store.GetAsset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusCompleted, asset.ProcessingStatus)
	require.NotNil(t, asset.ThumbnailKey)
	assert.Equal(t, "orig/thumbnails/doc.jpg", *asset.ThumbnailKey)
	require.NotNil(t, asset.PreviewKey)
	assert.Equal(t, "orig/previews/doc.jpg", *asset.PreviewKey)

	variants, err := store.ListVariants(ctx, id)
	require.NoError(t, err)
	require.Len(t, variants, 2)
	for _, v := range variants {
		if v.VariantType == catalog.VariantThumbnail {
			assert.Equal(t, int32(400), v.Width)
			assert.Equal(t, int32(225), v.Height)
		}
		if v.VariantType == catalog.VariantPreview {
			assert.LessOrEqual(t, v.Width, int32(1200))
			assert.LessOrEqual(t, v.Height, int32(1200))
		}
	}

	meta, ok := store.GetMetadata(id)
	require.True(t, ok)
	assert.Equal(t, "1", meta.CustomFields["page_count"])
}

func TestProcessOfficeDocumentCompletesWithoutRenditions(t *testing.T) {
	renderer := &fakeRenderer{}
	p, store, _ := newDocSetup(t, renderer)
	ctx := context.Background()
	id := uuid.New()
	mime := "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	store.AddAsset(catalog.Asset{ID: id, FileKey: "orig/report.docx", MimeType: mime})

	require.NoError(t, p.Process(ctx, id, "orig/report.docx", mime))
	assert.Equal(t, 0, renderer.calls)

	asset, err := store.GetAsset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusCompleted, asset.ProcessingStatus)
	assert.Nil(t, asset.ThumbnailKey)
	assert.Equal(t, 0, store.VariantCount(id))

	meta, ok := store.GetMetadata(id)
	require.True(t, ok)
	assert.Equal(t, mime, meta.CustomFields["document_type"])
}

func TestProcessCorruptPDFIsPermanent(t *testing.T) {
	p, store, blobs := newDocSetup(t, &fakeRenderer{})
	ctx := context.Background()
	id := uuid.New()
	store.AddAsset(catalog.Asset{ID: id, FileKey: "orig/bad.pdf", MimeType: "application/pdf"})
	junk := []byte("%PDF-1.4 this is not really a pdf")
	require.NoError(t, blobs.Upload(ctx, "orig/bad.pdf", bytes.NewReader(junk), "application/pdf", int64(len(junk))))

	err := p.Process(ctx, id, "orig/bad.pdf", "application/pdf")
	require.Error(t, err)
	assert.True(t, pipeline.IsPermanent(err))
	assert.Equal(t, 0, store.VariantCount(id))
}

func TestProcessRenderTimeoutIsTransient(t *testing.T) {
	renderer := &fakeRenderer{err: fmt.Errorf("pdftoppm: %w", context.DeadlineExceeded)}
	p, store, blobs := newDocSetup(t, renderer)
	ctx := context.Background()
	id := uuid.New()
	store.AddAsset(catalog.Asset{ID: id, FileKey: "orig/doc.pdf", MimeType: "application/pdf"})
	data := minimalPDF(t)
	require.NoError(t, blobs.Upload(ctx, "orig/doc.pdf", bytes.NewReader(data), "application/pdf", int64(len(data))))

	err := p.Process(ctx, id, "orig/doc.pdf", "application/pdf")
	require.Error(t, err)
	assert.False(t, pipeline.IsPermanent(err), "attempt timeout must stay retryable")
	assert.Equal(t, "render", pipeline.Stage(err))
}

func TestProcessEncryptedPDFRenderIsPermanent(t *testing.T) {
	renderer := &fakeRenderer{err: ErrEncrypted}
	p, store, blobs := newDocSetup(t, renderer)
	ctx := context.Background()
	id := uuid.New()
	store.AddAsset(catalog.Asset{ID: id, FileKey: "orig/locked.pdf", MimeType: "application/pdf"})
	data := minimalPDF(t)
	require.NoError(t, blobs.Upload(ctx, "orig/locked.pdf", bytes.NewReader(data), "application/pdf", int64(len(data))))

	err := p.Process(ctx, id, "orig/locked.pdf", "application/pdf")
	require.Error(t, err)
	assert.True(t, pipeline.IsPermanent(err))
	assert.ErrorIs(t, err, ErrEncrypted)
}

func TestProcessNonDocumentMimeIsPermanent(t *testing.T) {
	p, store, _ := newDocSetup(t, &fakeRenderer{})
	id := uuid.New()
	store.AddAsset(catalog.Asset{ID: id, FileKey: "orig/x", MimeType: "application/zip"})

	err := p.Process(context.Background(), id, "orig/x", "application/zip")
	require.Error(t, err)
	assert.True(t, pipeline.IsPermanent(err))
	assert.Equal(t, "route", pipeline.Stage(err))
}

func TestProcessMissingPDFIsPermanent(t *testing.T) {
	p, store, _ := newDocSetup(t, &fakeRenderer{})
	id := uuid.New()
	store.AddAsset(catalog.Asset{ID: id, FileKey: "orig/gone.pdf", MimeType: "application/pdf"})

	err := p.Process(context.Background(), id, "orig/gone.pdf", "application/pdf")
	require.Error(t, err)
	assert.True(t, pipeline.IsPermanent(err))
	assert.Equal(t, "download", pipeline.Stage(err))
}

func TestNewPdftoppmMissingBinary(t *testing.T) {
	_, err := NewPdftoppm("/nonexistent/pdftoppm")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPdftoppmNotFound)
}
