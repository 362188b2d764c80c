package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/contenthub/contenthub/internal/catalog"
	"github.com/contenthub/contenthub/internal/queue"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enqueueCall struct {
	queueName string
	jobType   string
	payload   queue.AssetPayload
	opts      queue.Options
}

type fakeEnqueuer struct {
	calls []enqueueCall
	err   error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, queueName, jobType string, payload queue.AssetPayload, opts queue.Options) (queue.JobHandle, error) {
	f.calls = append(f.calls, enqueueCall{queueName, jobType, payload, opts})
	if f.err != nil {
		return queue.JobHandle{Queue: queueName}, f.err
	}
	return queue.JobHandle{ID: "job-1", Queue: queueName, Queued: true}, nil
}

func newTestDispatcher(q *fakeEnqueuer, store catalog.Store) *Dispatcher {
	return New(q, store, Config{
		JobTimeout:      5 * time.Minute,
		VideoJobTimeout: 30 * time.Minute,
	})
}

func TestDispatchRouting(t *testing.T) {
	tests := []struct {
		name        string
		mimeType    string
		wantQueue   string
		wantJobType string
		wantTimeout time.Duration
	}{
		{"image", "image/png", queue.QueueImages, queue.TaskProcessImage, 5 * time.Minute},
		{"video", "video/mp4", queue.QueueVideos, queue.TaskProcessVideo, 30 * time.Minute},
		{"pdf", "application/pdf", queue.QueueDocuments, queue.TaskProcessDocument, 5 * time.Minute},
		{"audio", "audio/mpeg", queue.QueueAudio, queue.TaskProcessAudio, 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeEnqueuer{}
			store := catalog.NewMemoryStore()
			id := uuid.New()
			store.AddAsset(catalog.Asset{ID: id, FileKey: "orig/f", MimeType: tt.mimeType})

			handle := newTestDispatcher(q, store).Dispatch(context.Background(), id, "orig/f", tt.mimeType)

			assert.True(t, handle.Queued)
			require.Len(t, q.calls, 1)
			call := q.calls[0]
			assert.Equal(t, tt.wantQueue, call.queueName)
			assert.Equal(t, tt.wantJobType, call.jobType)
			assert.Equal(t, tt.wantTimeout, call.opts.Timeout)
			assert.Equal(t, id, call.payload.AssetID)
			assert.Equal(t, "orig/f", call.payload.FileKey)
		})
	}
}

func TestDispatchUnroutableTypeCompletesAsset(t *testing.T) {
	q := &fakeEnqueuer{}
	store := catalog.NewMemoryStore()
	id := uuid.New()
	store.AddAsset(catalog.Asset{ID: id, FileKey: "orig/f.zip", MimeType: "application/zip"})

	handle := newTestDispatcher(q, store).Dispatch(context.Background(), id, "orig/f.zip", "application/zip")

	assert.False(t, handle.Queued)
	assert.Empty(t, q.calls)

	asset, err := store.GetAsset(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusCompleted, asset.ProcessingStatus)
	assert.Equal(t, 0, store.VariantCount(id))
}

func TestDispatchDegradesGracefully(t *testing.T) {
	q := &fakeEnqueuer{err: queue.ErrUnavailable}
	store := catalog.NewMemoryStore()
	id := uuid.New()
	store.AddAsset(catalog.Asset{ID: id, FileKey: "orig/f.jpg", MimeType: "image/jpeg"})

	handle := newTestDispatcher(q, store).Dispatch(context.Background(), id, "orig/f.jpg", "image/jpeg")

	// No error escapes; the asset stays PENDING for the stuck sweep.
	assert.False(t, handle.Queued)
	assert.Equal(t, queue.QueueImages, handle.Queue)

	asset, err := store.GetAsset(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusPending, asset.ProcessingStatus)
}

func TestSweepStuckRequeues(t *testing.T) {
	q := &fakeEnqueuer{}
	store := catalog.NewMemoryStore()

	stale := uuid.New()
	store.AddAsset(catalog.Asset{
		ID: stale, FileKey: "orig/stale.jpg", MimeType: "image/jpeg",
		UpdatedAt: time.Now().Add(-time.Hour),
	})
	fresh := uuid.New()
	store.AddAsset(catalog.Asset{ID: fresh, FileKey: "orig/fresh.jpg", MimeType: "image/jpeg"})

	requeued, err := newTestDispatcher(q, store).SweepStuck(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, requeued)
	require.Len(t, q.calls, 1)
	assert.Equal(t, stale, q.calls[0].payload.AssetID)
}

func TestRedispatchLooksUpAsset(t *testing.T) {
	q := &fakeEnqueuer{}
	store := catalog.NewMemoryStore()
	id := uuid.New()
	store.AddAsset(catalog.Asset{ID: id, FileKey: "orig/v.mp4", MimeType: "video/mp4"})

	handle, err := newTestDispatcher(q, store).Redispatch(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, handle.Queued)
	assert.Equal(t, queue.QueueVideos, handle.Queue)

	_, err = newTestDispatcher(q, store).Redispatch(context.Background(), uuid.New())
	assert.ErrorIs(t, err, catalog.ErrAssetNotFound)
}
