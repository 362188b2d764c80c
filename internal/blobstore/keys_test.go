package blobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariantKey(t *testing.T) {
	tests := []struct {
		name        string
		originalKey string
		folder      string
		ext         string
		want        string
	}{
		{"nested original", "uploads/2026/a1b2.png", FolderThumbnails, "jpg", "uploads/2026/thumbnails/a1b2.jpg"},
		{"extension swap", "orig/video.mov", FolderPreviews, "mp4", "orig/previews/video.mp4"},
		{"webp output", "orig/photo.jpeg", FolderWeb, "webp", "orig/web/photo.webp"},
		{"mobile folder", "orig/photo.jpg", FolderMobile, "jpg", "orig/mobile/photo.jpg"},
		{"no directory", "photo.jpg", FolderThumbnails, "jpg", "thumbnails/photo.jpg"},
		{"no extension", "orig/photo", FolderThumbnails, "jpg", "orig/thumbnails/photo.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VariantKey(tt.originalKey, tt.folder, tt.ext))
		})
	}
}
