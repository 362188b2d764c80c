package metrics

import (
	"context"
	"io"
	"time"

	"github.com/contenthub/contenthub/internal/blobstore"
)

// InstrumentedStorage wraps a blob store and records operation counts,
// latencies, and transferred bytes.
type InstrumentedStorage struct {
	blobstore.Storage
}

func NewInstrumentedStorage(s blobstore.Storage) *InstrumentedStorage {
	return &InstrumentedStorage{Storage: s}
}

func (s *InstrumentedStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error {
	start := time.Now()

	err := s.Storage.Upload(ctx, key, reader, contentType, size)

	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}

	StorageOperationsTotal.WithLabelValues("upload", status).Inc()
	StorageOperationDuration.WithLabelValues("upload").Observe(duration)
	if err == nil {
		StorageBytesTotal.WithLabelValues("upload").Add(float64(size))
	}

	return err
}

func (s *InstrumentedStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	start := time.Now()

	reader, err := s.Storage.Download(ctx, key)

	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}

	StorageOperationsTotal.WithLabelValues("download", status).Inc()
	StorageOperationDuration.WithLabelValues("download").Observe(duration)

	if err != nil {
		return nil, err
	}

	return &instrumentedReadCloser{ReadCloser: reader}, nil
}

func (s *InstrumentedStorage) Delete(ctx context.Context, key string) error {
	start := time.Now()

	err := s.Storage.Delete(ctx, key)

	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}

	StorageOperationsTotal.WithLabelValues("delete", status).Inc()
	StorageOperationDuration.WithLabelValues("delete").Observe(duration)

	return err
}

func (s *InstrumentedStorage) GetPresignedURL(ctx context.Context, key string, expirySeconds int) (string, error) {
	start := time.Now()

	url, err := s.Storage.GetPresignedURL(ctx, key, expirySeconds)

	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}

	StorageOperationsTotal.WithLabelValues("presign", status).Inc()
	StorageOperationDuration.WithLabelValues("presign").Observe(duration)

	return url, err
}

type instrumentedReadCloser struct {
	io.ReadCloser
	bytesRead int64
}

func (r *instrumentedReadCloser) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.bytesRead += int64(n)
	return n, err
}

func (r *instrumentedReadCloser) Close() error {
	StorageBytesTotal.WithLabelValues("download").Add(float64(r.bytesRead))
	return r.ReadCloser.Close()
}
