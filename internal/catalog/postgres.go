package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over the application's asset tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const assetColumns = `id, file_key, mime_type, width, height, duration,
	thumbnail_key, preview_key, processing_status, processing_error, updated_at`

func (s *PostgresStore) GetAsset(ctx context.Context, id uuid.UUID) (Asset, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+assetColumns+`
		FROM assets WHERE id = $1
	`, id)

	var a Asset
	err := row.Scan(&a.ID, &a.FileKey, &a.MimeType, &a.Width, &a.Height, &a.Duration,
		&a.ThumbnailKey, &a.PreviewKey, &a.ProcessingStatus, &a.ProcessingError, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, ErrAssetNotFound
		}
		return Asset{}, fmt.Errorf("select asset: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) UpdateAssetProcessing(ctx context.Context, id uuid.UUID, status ProcessingStatus, update ProcessingUpdate) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE assets SET
			processing_status = $2,
			processing_error  = COALESCE($3, processing_error),
			width             = COALESCE($4, width),
			height            = COALESCE($5, height),
			duration          = COALESCE($6, duration),
			thumbnail_key     = COALESCE($7, thumbnail_key),
			preview_key       = COALESCE($8, preview_key),
			updated_at        = now()
		WHERE id = $1
	`, id, status, update.ProcessingError, update.Width, update.Height,
		update.Duration, update.ThumbnailKey, update.PreviewKey)
	if err != nil {
		return fmt.Errorf("update asset processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAssetNotFound
	}
	return nil
}

func (s *PostgresStore) CreateVariant(ctx context.Context, v Variant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO asset_variants (asset_id, variant_type, file_key, width, height, file_size, format, quality, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8, now())
		ON CONFLICT (asset_id, variant_type) DO UPDATE SET
			file_key  = EXCLUDED.file_key,
			width     = EXCLUDED.width,
			height    = EXCLUDED.height,
			file_size = EXCLUDED.file_size,
			format    = EXCLUDED.format,
			quality   = EXCLUDED.quality
	`, v.AssetID, v.VariantType, v.FileKey, v.Width, v.Height, v.FileSize, v.Format, v.Quality)
	if err != nil {
		return fmt.Errorf("upsert variant: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListVariants(ctx context.Context, assetID uuid.UUID) ([]Variant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT asset_id, variant_type, file_key, width, height, file_size, format, quality
		FROM asset_variants WHERE asset_id = $1
		ORDER BY variant_type
	`, assetID)
	if err != nil {
		return nil, fmt.Errorf("select variants: %w", err)
	}
	defer rows.Close()

	var variants []Variant
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.AssetID, &v.VariantType, &v.FileKey, &v.Width, &v.Height, &v.FileSize, &v.Format, &v.Quality); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (s *PostgresStore) CreateMetadata(ctx context.Context, m Metadata) error {
	custom, err := json.Marshal(m.CustomFields)
	if err != nil {
		return fmt.Errorf("marshal custom fields: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO asset_metadata (asset_id, color_space, dpi, bit_depth, frame_rate, bit_rate,
			codec, audio_codec, container, resolution, custom_fields, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, now())
		ON CONFLICT (asset_id) DO UPDATE SET
			color_space   = EXCLUDED.color_space,
			dpi           = EXCLUDED.dpi,
			bit_depth     = EXCLUDED.bit_depth,
			frame_rate    = EXCLUDED.frame_rate,
			bit_rate      = EXCLUDED.bit_rate,
			codec         = EXCLUDED.codec,
			audio_codec   = EXCLUDED.audio_codec,
			container     = EXCLUDED.container,
			resolution    = EXCLUDED.resolution,
			custom_fields = EXCLUDED.custom_fields
	`, m.AssetID, m.ColorSpace, m.DPI, m.BitDepth, m.FrameRate, m.BitRate,
		m.Codec, m.AudioCodec, m.Container, m.Resolution, custom)
	if err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListStuckAssets(ctx context.Context, olderThan time.Duration) ([]Asset, error) {
	cutoff := time.Now().Add(-olderThan)
	rows, err := s.pool.Query(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE processing_status = $1 AND updated_at < $2
		ORDER BY updated_at
	`, StatusPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("select stuck assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.FileKey, &a.MimeType, &a.Width, &a.Height, &a.Duration,
			&a.ThumbnailKey, &a.PreviewKey, &a.ProcessingStatus, &a.ProcessingError, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
