package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryForMime(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		want     MimeCategory
	}{
		{"jpeg", "image/jpeg", CategoryImage},
		{"png", "image/png", CategoryImage},
		{"webp", "image/webp", CategoryImage},
		{"mp4", "video/mp4", CategoryVideo},
		{"quicktime", "video/quicktime", CategoryVideo},
		{"mp3", "audio/mpeg", CategoryAudio},
		{"wav", "audio/wav", CategoryAudio},
		{"pdf", "application/pdf", CategoryDocument},
		{"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", CategoryDocument},
		{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", CategoryDocument},
		{"plain text", "text/plain", CategoryDocument},
		{"zip", "application/zip", CategoryOther},
		{"binary", "application/octet-stream", CategoryOther},
		{"empty", "", CategoryOther},
		{"uppercase", "IMAGE/JPEG", CategoryImage},
		{"charset suffix", "text/plain; charset=utf-8", CategoryDocument},
		{"whitespace", "  video/mp4  ", CategoryVideo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryForMime(tt.mimeType))
		})
	}
}

func TestProcessingStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
