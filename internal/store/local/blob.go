package local

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Blob persists opaque values under string keys. Load returns (nil, nil)
// when the key has never been written.
type Blob interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// FileBlob keeps one file per key inside a directory.
type FileBlob struct {
	dir string
}

// Ensure interface conformance
var _ Blob = (*FileBlob)(nil)

func NewFileBlob(dir string) (*FileBlob, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileBlob{dir: dir}, nil
}

// path maps a key to a file name. Keys like "billease:demo:v1" are not safe
// file names on every platform, so they are hashed.
func (b *FileBlob) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(b.dir, "blob-"+hex.EncodeToString(sum[:8])+".json")
}

func (b *FileBlob) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %q: %w", key, err)
	}
	return data, nil
}

// Save replaces the value atomically: readers see the old or the new blob,
// never a partial write.
func (b *FileBlob) Save(_ context.Context, key string, data []byte) error {
	target := b.path(key)
	tmp, err := os.CreateTemp(b.dir, ".blob-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("replace blob %q: %w", key, err)
	}
	return nil
}
