package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus is the asset lifecycle state. Transitions are
// one-directional: PENDING -> PROCESSING -> COMPLETED|FAILED. A FAILED
// asset only re-enters the pipeline through an explicit re-dispatch.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "PENDING"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
)

// Terminal reports whether the status is an end state.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type VariantType string

const (
	VariantThumbnail    VariantType = "THUMBNAIL"
	VariantPreview      VariantType = "PREVIEW"
	VariantWebOptimized VariantType = "WEB_OPTIMIZED"
	VariantMobile       VariantType = "MOBILE"
)

// Asset holds the subset of asset fields the processing core reads and
// writes. The full record (ownership, collections, review state) lives
// outside this core.
type Asset struct {
	ID               uuid.UUID
	FileKey          string
	MimeType         string
	Width            *int32
	Height           *int32
	Duration         *float64
	ThumbnailKey     *string
	PreviewKey       *string
	ProcessingStatus ProcessingStatus
	ProcessingError  *string
	UpdatedAt        time.Time
}

// Variant is a derived rendition of an asset.
type Variant struct {
	AssetID     uuid.UUID
	VariantType VariantType
	FileKey     string
	Width       int32
	Height      int32
	FileSize    int64
	Format      string
	Quality     *int32
}

// Metadata holds pipeline-derived technical metadata, one row per asset.
type Metadata struct {
	AssetID      uuid.UUID
	ColorSpace   *string
	DPI          *int32
	BitDepth     *int32
	FrameRate    *float64
	BitRate      *int64
	Codec        *string
	AudioCodec   *string
	Container    *string
	Resolution   *string
	CustomFields map[string]string
}

// MimeCategory buckets a MIME type into the job-routing categories.
type MimeCategory string

const (
	CategoryImage    MimeCategory = "image"
	CategoryVideo    MimeCategory = "video"
	CategoryAudio    MimeCategory = "audio"
	CategoryDocument MimeCategory = "document"
	CategoryOther    MimeCategory = "other"
)

// officeMimeTypes are document formats routed to the document queue
// alongside PDF.
var officeMimeTypes = map[string]bool{
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.ms-excel":                                                  true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.oasis.opendocument.text":                                   true,
	"text/plain": true,
}

// CategoryForMime maps a MIME type to its processing category.
func CategoryForMime(mimeType string) MimeCategory {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return CategoryImage
	case strings.HasPrefix(mt, "video/"):
		return CategoryVideo
	case strings.HasPrefix(mt, "audio/"):
		return CategoryAudio
	case mt == "application/pdf" || officeMimeTypes[mt]:
		return CategoryDocument
	default:
		return CategoryOther
	}
}
