package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend stores each value in its own file under dir/namespace.
// Files are sharded by the first two hex characters of the key hash and
// written atomically through a temporary file and rename.
type FileBackend struct {
	mu     sync.RWMutex
	dir    string
	closed bool
}

// NewFileBackend creates a file backend rooted at dir, creating it if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the root directory.
func (b *FileBackend) Dir() string { return b.dir }

// Get implements [Backend].
func (b *FileBackend) Get(ctx context.Context, ns, key string) ([]byte, bool, error) {
	if err := checkNamespace(ns); err != nil {
		return nil, false, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, false, ErrClosed
	}

	data, err := os.ReadFile(b.path(ns, key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s/%s: %w", ns, key, err)
	}
	return data, true, nil
}

// Set implements [Backend].
func (b *FileBackend) Set(ctx context.Context, ns, key string, data []byte) error {
	if err := checkNamespace(ns); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	path := b.path(ns, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create shard dir: %w", err)
	}
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("write %s/%s: %w", ns, key, err)
	}
	return nil
}

// Delete implements [Backend].
func (b *FileBackend) Delete(ctx context.Context, ns, key string) error {
	if err := checkNamespace(ns); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	if err := os.Remove(b.path(ns, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s/%s: %w", ns, key, err)
	}
	return nil
}

// Flush implements [Backend].
func (b *FileBackend) Flush(ctx context.Context, ns string) error {
	if err := checkNamespace(ns); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	if err := os.RemoveAll(filepath.Join(b.dir, ns)); err != nil {
		return fmt.Errorf("flush %s: %w", ns, err)
	}
	return nil
}

// Close implements [Backend].
func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *FileBackend) path(ns, key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(b.dir, ns, hash[:2], hash[2:])
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place.
func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

var _ Backend = (*FileBackend)(nil)
