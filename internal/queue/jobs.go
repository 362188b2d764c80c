package queue

import (
	"github.com/contenthub/contenthub/internal/tracing"
	"github.com/google/uuid"
)

// Job type names, one per media category. Each is scheduled each time
// an upload of that category completes.
const (
	TaskProcessImage    = "asset:process_image"
	TaskProcessVideo    = "asset:process_video"
	TaskProcessDocument = "asset:process_document"
	TaskProcessAudio    = "asset:process_audio"
)

// Queue names. Each queue is consumed by its own bounded worker pool;
// video transcoding gets far fewer slots than image resizing.
const (
	QueueImages    = "images"
	QueueVideos    = "videos"
	QueueDocuments = "documents"
	QueueAudio     = "audio"
)

// AssetPayload is serialized into the task payload so the worker knows
// which asset to process and where its original bytes live.
type AssetPayload struct {
	AssetID  uuid.UUID            `json:"asset_id"`
	FileKey  string               `json:"file_key"`
	MimeType string               `json:"mime_type"`
	Trace    tracing.TraceCarrier `json:"trace,omitempty"`
}

// JobHandle identifies an enqueued job. A handle with Queued=false is
// synthetic: the queue backend was unavailable and the asset stays
// PENDING until an operator re-dispatches it.
type JobHandle struct {
	ID     string
	Queue  string
	Queued bool
}
