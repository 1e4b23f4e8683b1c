package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps values in process memory. It is not durable.
type MemoryBackend struct {
	mu     sync.RWMutex
	data   map[string]map[string][]byte
	closed bool
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]map[string][]byte)}
}

// Get implements [Backend].
func (b *MemoryBackend) Get(ctx context.Context, ns, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, false, ErrClosed
	}
	v, ok := b.data[ns][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements [Backend].
func (b *MemoryBackend) Set(ctx context.Context, ns, key string, data []byte) error {
	if err := checkNamespace(ns); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	m, ok := b.data[ns]
	if !ok {
		m = make(map[string][]byte)
		b.data[ns] = m
	}
	m[key] = append([]byte(nil), data...)
	return nil
}

// Delete implements [Backend].
func (b *MemoryBackend) Delete(ctx context.Context, ns, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	delete(b.data[ns], key)
	return nil
}

// Flush implements [Backend].
func (b *MemoryBackend) Flush(ctx context.Context, ns string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	delete(b.data, ns)
	return nil
}

// Len returns the number of keys in ns.
func (b *MemoryBackend) Len(ns string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data[ns])
}

// Close implements [Backend].
func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

var _ Backend = (*MemoryBackend)(nil)
