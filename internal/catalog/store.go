package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrAssetNotFound = errors.New("catalog: asset not found")

// ProcessingUpdate is a partial update applied alongside a status
// change. Nil fields are left untouched, so status can move
// independently of the data fields.
type ProcessingUpdate struct {
	Width           *int32
	Height          *int32
	Duration        *float64
	ThumbnailKey    *string
	PreviewKey      *string
	ProcessingError *string
}

// Store is the persistence contract the processing core consumes. The
// relational schema behind it is owned by the wider application; only
// the fields the pipelines read and write appear here.
type Store interface {
	GetAsset(ctx context.Context, id uuid.UUID) (Asset, error)

	// UpdateAssetProcessing sets the processing status and applies any
	// non-nil fields of the update in one write.
	UpdateAssetProcessing(ctx context.Context, id uuid.UUID, status ProcessingStatus, update ProcessingUpdate) error

	// CreateVariant records a derived rendition. Implementations upsert
	// on (asset_id, variant_type) so reprocessing replaces rather than
	// accumulates rows.
	CreateVariant(ctx context.Context, v Variant) error

	// ListVariants returns all variants recorded for an asset.
	ListVariants(ctx context.Context, assetID uuid.UUID) ([]Variant, error)

	// CreateMetadata records the technical metadata row for an asset.
	CreateMetadata(ctx context.Context, m Metadata) error

	// ListStuckAssets returns PENDING assets untouched for at least the
	// given age, meaning their dispatch never reached the queue.
	ListStuckAssets(ctx context.Context, olderThan time.Duration) ([]Asset, error)
}
