package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests. It mirrors the
// PostgresStore semantics: partial updates, variant upsert on
// (asset, type), metadata upsert.
type MemoryStore struct {
	mu       sync.RWMutex
	assets   map[uuid.UUID]Asset
	variants map[uuid.UUID]map[VariantType]Variant
	metadata map[uuid.UUID]Metadata

	// Error injection for failure-path tests.
	UpdateErr         error
	CreateVariantErr  error
	CreateMetadataErr error

	// StatusHistory records every status written per asset, in order,
	// so tests can assert transition monotonicity.
	StatusHistory map[uuid.UUID][]ProcessingStatus
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets:        make(map[uuid.UUID]Asset),
		variants:      make(map[uuid.UUID]map[VariantType]Variant),
		metadata:      make(map[uuid.UUID]Metadata),
		StatusHistory: make(map[uuid.UUID][]ProcessingStatus),
	}
}

// AddAsset seeds an asset (test helper).
func (s *MemoryStore) AddAsset(a Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ProcessingStatus == "" {
		a.ProcessingStatus = StatusPending
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}
	s.assets[a.ID] = a
}

func (s *MemoryStore) GetAsset(ctx context.Context, id uuid.UUID) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[id]
	if !ok {
		return Asset{}, ErrAssetNotFound
	}
	return a, nil
}

func (s *MemoryStore) UpdateAssetProcessing(ctx context.Context, id uuid.UUID, status ProcessingStatus, update ProcessingUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.UpdateErr != nil {
		return s.UpdateErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[id]
	if !ok {
		return ErrAssetNotFound
	}

	a.ProcessingStatus = status
	if update.ProcessingError != nil {
		a.ProcessingError = update.ProcessingError
	}
	if update.Width != nil {
		a.Width = update.Width
	}
	if update.Height != nil {
		a.Height = update.Height
	}
	if update.Duration != nil {
		a.Duration = update.Duration
	}
	if update.ThumbnailKey != nil {
		a.ThumbnailKey = update.ThumbnailKey
	}
	if update.PreviewKey != nil {
		a.PreviewKey = update.PreviewKey
	}
	a.UpdatedAt = time.Now()

	s.assets[id] = a
	s.StatusHistory[id] = append(s.StatusHistory[id], status)
	return nil
}

func (s *MemoryStore) CreateVariant(ctx context.Context, v Variant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.CreateVariantErr != nil {
		return s.CreateVariantErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byType, ok := s.variants[v.AssetID]
	if !ok {
		byType = make(map[VariantType]Variant)
		s.variants[v.AssetID] = byType
	}
	byType[v.VariantType] = v
	return nil
}

func (s *MemoryStore) ListVariants(ctx context.Context, assetID uuid.UUID) ([]Variant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Variant
	for _, v := range s.variants[assetID] {
		out = append(out, v)
	}
	return out, nil
}

func (s *MemoryStore) CreateMetadata(ctx context.Context, m Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.CreateMetadataErr != nil {
		return s.CreateMetadataErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.metadata[m.AssetID] = m
	return nil
}

func (s *MemoryStore) ListStuckAssets(ctx context.Context, olderThan time.Duration) ([]Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-olderThan)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Asset
	for _, a := range s.assets {
		if a.ProcessingStatus == StatusPending && a.UpdatedAt.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}

// GetMetadata returns the metadata row for an asset (test helper).
func (s *MemoryStore) GetMetadata(assetID uuid.UUID) (Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.metadata[assetID]
	return m, ok
}

// VariantCount returns how many variant rows exist for an asset (test helper).
func (s *MemoryStore) VariantCount(assetID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.variants[assetID])
}
