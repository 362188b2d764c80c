package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/contenthub/contenthub/internal/blobstore"
	"github.com/contenthub/contenthub/internal/catalog"
	imagepipe "github.com/contenthub/contenthub/internal/pipeline/image"
	"github.com/contenthub/contenthub/internal/queue"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 99, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func newHandlerSetup(t *testing.T) (*Dependencies, *catalog.MemoryStore, *blobstore.MemoryStorage) {
	t.Helper()
	store := catalog.NewMemoryStore()
	blobs := blobstore.NewMemoryStorage()
	deps := NewDependencies(store, imagepipe.NewPipeline(store, blobs, t.TempDir()), nil, nil, nil)
	return deps, store, blobs
}

func imageTask(t *testing.T, payload queue.AssetPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(queue.TaskProcessImage, data)
}

func TestImageHandlerProcessesAsset(t *testing.T) {
	deps, store, blobs := newHandlerSetup(t)
	ctx := context.Background()

	id := uuid.New()
	store.AddAsset(catalog.Asset{ID: id, FileKey: "orig/p.jpg", MimeType: "image/jpeg"})
	data := testJPEG(t, 1600, 900)
	require.NoError(t, blobs.Upload(ctx, "orig/p.jpg", bytes.NewReader(data), "image/jpeg", int64(len(data))))

	handler := ImageHandler(deps)
	err := handler(ctx, imageTask(t, queue.AssetPayload{AssetID: id, FileKey: "orig/p.jpg", MimeType: "image/jpeg"}))
	require.NoError(t, err)

	asset, err := store.GetAsset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusCompleted, asset.ProcessingStatus)
	assert.Equal(t, 4, store.VariantCount(id))
}

func TestImageHandlerPermanentFailureSkipsRetry(t *testing.T) {
	deps, store, blobs := newHandlerSetup(t)
	ctx := context.Background()

	id := uuid.New()
	store.AddAsset(catalog.Asset{ID: id, FileKey: "orig/bad.jpg", MimeType: "image/jpeg"})
	junk := []byte{0xFF, 0xD8, 0x00}
	require.NoError(t, blobs.Upload(ctx, "orig/bad.jpg", bytes.NewReader(junk), "image/jpeg", int64(len(junk))))

	handler := ImageHandler(deps)
	err := handler(ctx, imageTask(t, queue.AssetPayload{AssetID: id, FileKey: "orig/bad.jpg", MimeType: "image/jpeg"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	asset, getErr := store.GetAsset(ctx, id)
	require.NoError(t, getErr)
	assert.Equal(t, catalog.StatusFailed, asset.ProcessingStatus)
	require.NotNil(t, asset.ProcessingError)
	assert.Contains(t, *asset.ProcessingError, "decode")
}

func TestImageHandlerTransientFailureRetries(t *testing.T) {
	deps, store, blobs := newHandlerSetup(t)
	ctx := context.Background()

	id := uuid.New()
	store.AddAsset(catalog.Asset{ID: id, FileKey: "orig/p.jpg", MimeType: "image/jpeg"})
	data := testJPEG(t, 800, 450)
	require.NoError(t, blobs.Upload(ctx, "orig/p.jpg", bytes.NewReader(data), "image/jpeg", int64(len(data))))
	blobs.UploadErr = assert.AnError

	handler := ImageHandler(deps)
	err := handler(ctx, imageTask(t, queue.AssetPayload{AssetID: id, FileKey: "orig/p.jpg", MimeType: "image/jpeg"}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)

	asset, getErr := store.GetAsset(ctx, id)
	require.NoError(t, getErr)
	assert.Equal(t, catalog.StatusFailed, asset.ProcessingStatus)

	// The queue re-delivers; the retry moves it back to PROCESSING and
	// finishes the job.
	blobs.UploadErr = nil
	require.NoError(t, handler(ctx, imageTask(t, queue.AssetPayload{AssetID: id, FileKey: "orig/p.jpg", MimeType: "image/jpeg"})))

	asset, getErr = store.GetAsset(ctx, id)
	require.NoError(t, getErr)
	assert.Equal(t, catalog.StatusCompleted, asset.ProcessingStatus)
}

func TestHandlerRejectsInvalidPayload(t *testing.T) {
	deps, _, _ := newHandlerSetup(t)

	handler := ImageHandler(deps)
	err := handler(context.Background(), asynq.NewTask(queue.TaskProcessImage, []byte("{not json")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
