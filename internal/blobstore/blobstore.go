package blobstore

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound     = errors.New("blobstore: object not found")
	ErrInvalidKey   = errors.New("blobstore: invalid key")
	ErrAccessDenied = errors.New("blobstore: access denied")
)

// Storage is the blob-store contract the processing core consumes.
// Originals are read through presigned URLs or direct download; derived
// variants are written under deterministic keys (see keys.go).
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetPresignedURL(ctx context.Context, key string, expirySeconds int) (string, error)
	HealthCheck(ctx context.Context) error
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}
