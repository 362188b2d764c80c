package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAssetProcessingPartial(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id := uuid.New()
	store.AddAsset(Asset{ID: id, FileKey: "orig/a.jpg", MimeType: "image/jpeg"})

	w, h := int32(800), int32(600)
	err := store.UpdateAssetProcessing(ctx, id, StatusProcessing, ProcessingUpdate{Width: &w, Height: &h})
	require.NoError(t, err)

	// A later status-only write must not clear the dimensions.
	thumb := "orig/thumbnails/a.jpg"
	err = store.UpdateAssetProcessing(ctx, id, StatusCompleted, ProcessingUpdate{ThumbnailKey: &thumb})
	require.NoError(t, err)

	asset, err := store.GetAsset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, asset.ProcessingStatus)
	require.NotNil(t, asset.Width)
	assert.Equal(t, int32(800), *asset.Width)
	require.NotNil(t, asset.ThumbnailKey)
	assert.Equal(t, thumb, *asset.ThumbnailKey)
}

func TestCreateVariantUpserts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id := uuid.New()
	store.AddAsset(Asset{ID: id, FileKey: "orig/a.jpg"})

	require.NoError(t, store.CreateVariant(ctx, Variant{
		AssetID: id, VariantType: VariantThumbnail, FileKey: "v1", FileSize: 100,
	}))
	require.NoError(t, store.CreateVariant(ctx, Variant{
		AssetID: id, VariantType: VariantThumbnail, FileKey: "v2", FileSize: 200,
	}))

	variants, err := store.ListVariants(ctx, id)
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "v2", variants[0].FileKey)
	assert.Equal(t, int64(200), variants[0].FileSize)
}

func TestListStuckAssets(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	stale := uuid.New()
	store.AddAsset(Asset{ID: stale, FileKey: "orig/stale.jpg", UpdatedAt: time.Now().Add(-time.Hour)})
	fresh := uuid.New()
	store.AddAsset(Asset{ID: fresh, FileKey: "orig/fresh.jpg"})
	done := uuid.New()
	store.AddAsset(Asset{ID: done, FileKey: "orig/done.jpg", ProcessingStatus: StatusCompleted, UpdatedAt: time.Now().Add(-time.Hour)})

	stuck, err := store.ListStuckAssets(ctx, 30*time.Minute)
	require.NoError(t, err)

	require.Len(t, stuck, 1)
	assert.Equal(t, stale, stuck[0].ID)
}
