package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStorage is an in-memory implementation of Storage for testing.
// It stores objects in a map and is safe for concurrent use.
type MemoryStorage struct {
	objects map[string]memoryObject
	mu      sync.RWMutex

	// Error injection for failure-path tests.
	UploadErr   error
	DownloadErr error
	PresignErr  error
}

type memoryObject struct {
	data        []byte
	contentType string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string]memoryObject),
	}
}

var _ Storage = (*MemoryStorage)(nil)

func (s *MemoryStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.UploadErr != nil {
		return s.UploadErr
	}
	if key == "" {
		return ErrInvalidKey
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = memoryObject{
		data:        data,
		contentType: contentType,
	}

	return nil
}

func (s *MemoryStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.DownloadErr != nil {
		return nil, s.DownloadErr
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, exists := s.objects[key]
	if !exists {
		return nil, ErrNotFound
	}

	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

func (s *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.objects[key]
	return exists, nil
}

func (s *MemoryStorage) GetPresignedURL(ctx context.Context, key string, expirySeconds int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.PresignErr != nil {
		return "", s.PresignErr
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.objects[key]; !exists {
		return "", ErrNotFound
	}

	return fmt.Sprintf("http://test-storage/%s?expires=%d", key, expirySeconds), nil
}

func (s *MemoryStorage) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// GetData returns the raw data for a key (test helper).
func (s *MemoryStorage) GetData(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, exists := s.objects[key]
	if !exists {
		return nil, false
	}
	return obj.data, true
}

// GetContentType returns the content type for a key (test helper).
func (s *MemoryStorage) GetContentType(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, exists := s.objects[key]
	if !exists {
		return "", false
	}
	return obj.contentType, true
}

// Keys returns all stored keys (test helper).
func (s *MemoryStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

// Count returns the number of stored objects (test helper).
func (s *MemoryStorage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
