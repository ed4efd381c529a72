package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/bryanwahyu/sheetqa/internal/domain/documents"
)

// MemoryStore is a process-local store, used by the CLI and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	// check before consuming r so callers can retry under another name
	s.mu.RLock()
	_, taken := s.blobs[name]
	s.mu.RUnlock()
	if taken {
		return "", fmt.Errorf("%s: %w", name, documents.ErrExists)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[name]; ok {
		return "", fmt.Errorf("%s: %w", name, documents.ErrExists)
	}
	s.blobs[name] = data
	return name, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.blobs))
	for id := range s.blobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, documents.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
