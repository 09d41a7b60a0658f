// Package media stores uploaded message attachments and hands back
// retrievable URLs. Messages only ever reference objects that were stored
// first, so a message can never point at bytes that do not exist.
package media

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// BlobStore stores bytes under a path and returns a retrieval URL.
type BlobStore interface {
	Put(ctx context.Context, path, contentType string, r io.Reader) (string, error)
}

// MemoryBlobStore keeps objects in memory. It backs tests and local
// development.
type MemoryBlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

func NewMemoryBlobStore(baseURL string) *MemoryBlobStore {
	if baseURL == "" {
		baseURL = "mem://blobs"
	}
	return &MemoryBlobStore{
		objects: make(map[string][]byte),
		baseURL: baseURL,
	}
}

var _ BlobStore = (*MemoryBlobStore)(nil)

func (s *MemoryBlobStore) Put(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	s.mu.Lock()
	s.objects[path] = data
	s.mu.Unlock()
	return s.baseURL + "/" + path, nil
}

// Get returns stored bytes, for tests.
func (s *MemoryBlobStore) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[path]
	return data, ok
}
