package blob

import (
	"context"
	"fmt"
	"sync"

	"github.com/petermazzocco/vitalarbor-api/internal/common"
)

// Object is one stored blob of a MemoryStore.
type Object struct {
	ContentType string
	Data        []byte
}

// MemoryStore keeps blobs in process memory. It backs local development
// without a bucket.
type MemoryStore struct {
	mu          sync.RWMutex
	objects     map[string]Object
	urlTemplate string
}

func NewMemoryStore(urlTemplate string) *MemoryStore {
	return &MemoryStore{objects: map[string]Object{}, urlTemplate: urlTemplate}
}

func (m *MemoryStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("put %q: %w: %v", key, common.ErrStorage, err)
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok {
		return fmt.Errorf("put %q: %w", key, common.ErrAlreadyExists)
	}
	m.objects[key] = Object{ContentType: contentType, Data: buf}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q: %w", key, common.ErrNotFound)
	}
	return obj.Data, nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return FormatURL(m.urlTemplate, key)
}

// Object returns the stored object at key.
func (m *MemoryStore) Object(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Len is the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
