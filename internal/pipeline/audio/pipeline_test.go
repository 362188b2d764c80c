package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/contenthub/contenthub/internal/blobstore"
	"github.com/contenthub/contenthub/internal/catalog"
	"github.com/contenthub/contenthub/internal/pipeline"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	info Info
	err  error
}

func (f *fakeProber) Probe(ctx context.Context, sourceURL string) (Info, error) {
	if f.err != nil {
		return Info{}, f.err
	}
	return f.info, nil
}

func newAudioSetup(t *testing.T, prober Prober) (*Pipeline, *catalog.MemoryStore, *blobstore.MemoryStorage) {
	t.Helper()
	store := catalog.NewMemoryStore()
	blobs := blobstore.NewMemoryStorage()
	return NewPipeline(store, blobs, prober, 900), store, blobs
}

func seedAudio(t *testing.T, store *catalog.MemoryStore, blobs *blobstore.MemoryStorage, key string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	store.AddAsset(catalog.Asset{ID: id, FileKey: key, MimeType: "audio/mpeg"})
	require.NoError(t, blobs.Upload(context.Background(), key, bytes.NewReader([]byte("mp3 bytes")), "audio/mpeg", 9))
	return id
}

func TestProcessAudioCompletesWithoutRenditions(t *testing.T) {
	prober := &fakeProber{info: Info{
		Duration: 212.4, BitRate: 192_000, Codec: "mp3",
		Container: "mp3", SampleRate: 44100, Channels: 2,
	}}
	p, store, blobs := newAudioSetup(t, prober)
	ctx := context.Background()
	id := seedAudio(t, store, blobs, "orig/track.mp3")

	require.NoError(t, p.Process(ctx, id, "orig/track.mp3"))

	asset, err := store.GetAsset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusCompleted, asset.ProcessingStatus)
	assert.Equal(t, 212.4, *asset.Duration)
	assert.Nil(t, asset.ThumbnailKey)
	assert.Nil(t, asset.PreviewKey)
	assert.Equal(t, 0, store.VariantCount(id))

	meta, ok := store.GetMetadata(id)
	require.True(t, ok)
	assert.Equal(t, "mp3", *meta.AudioCodec)
	assert.Equal(t, int64(192_000), *meta.BitRate)
	assert.Equal(t, "44100", meta.CustomFields["sample_rate"])
	assert.Equal(t, "2", meta.CustomFields["channels"])
}

func TestProcessAudioProbeFailureIsPermanent(t *testing.T) {
	prober := &fakeProber{err: errors.New("invalid data found")}
	p, store, blobs := newAudioSetup(t, prober)
	id := seedAudio(t, store, blobs, "orig/bad.mp3")

	err := p.Process(context.Background(), id, "orig/bad.mp3")
	require.Error(t, err)
	assert.True(t, pipeline.IsPermanent(err))
	assert.Equal(t, "probe", pipeline.Stage(err))
}

func TestProcessAudioProbeTimeoutIsTransient(t *testing.T) {
	prober := &fakeProber{err: fmt.Errorf("ffprobe: %w", context.DeadlineExceeded)}
	p, store, blobs := newAudioSetup(t, prober)
	id := seedAudio(t, store, blobs, "orig/slow.mp3")

	err := p.Process(context.Background(), id, "orig/slow.mp3")
	require.Error(t, err)
	assert.False(t, pipeline.IsPermanent(err), "attempt timeout must stay retryable")
	assert.Equal(t, "probe", pipeline.Stage(err))
}

func TestProcessAudioPresignFailureIsTransient(t *testing.T) {
	prober := &fakeProber{info: Info{Codec: "mp3", Container: "mp3"}}
	p, store, blobs := newAudioSetup(t, prober)
	id := seedAudio(t, store, blobs, "orig/track.mp3")

	blobs.PresignErr = errors.New("connection refused")
	err := p.Process(context.Background(), id, "orig/track.mp3")
	require.Error(t, err)
	assert.False(t, pipeline.IsPermanent(err))
	assert.Equal(t, "presign", pipeline.Stage(err))
}
