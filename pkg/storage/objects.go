// Package storage holds captured frames. The filesystem implementation
// keeps one directory per bucket; keys become file names.
package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
)

type FileStore struct {
	root   string
	bucket string
}

var _ common.ObjectStore = (*FileStore)(nil)

func NewFileStore(root, bucket string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(root, bucket), 0o750); err != nil {
		return nil, err
	}

	return &FileStore{root: root, bucket: bucket}, nil
}

func (fs *FileStore) Put(ctx context.Context, key string, data []byte) (*common.PhotoRef, error) {
	path := filepath.Join(fs.root, fs.bucket, filepath.Base(key))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		slog.ErrorContext(ctx, "Failed to store object", "key", key, common.ErrAttr(err))
		return nil, err
	}

	slog.DebugContext(ctx, "Stored object", "key", key, "size", len(data))

	return &common.PhotoRef{
		ObjectKey: key,
		Bucket:    fs.bucket,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// MemoryStore is the in-process object store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

var _ common.ObjectStore = (*MemoryStore)(nil)

func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		bucket:  bucket,
		objects: make(map[string][]byte),
	}
}

func (ms *MemoryStore) Put(_ context.Context, key string, data []byte) (*common.PhotoRef, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.objects[key] = append([]byte(nil), data...)

	return &common.PhotoRef{
		ObjectKey: key,
		Bucket:    ms.bucket,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (ms *MemoryStore) Get(key string) ([]byte, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	data, ok := ms.objects[key]
	return data, ok
}

func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return len(ms.objects)
}
