package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Entry is a cached response.
type Entry struct {
	Status int         `json:"status"`
	Header http.Header `json:"header,omitempty"`
	Body   []byte      `json:"body"`
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	return &Entry{
		Status: e.Status,
		Header: e.Header.Clone(),
		Body:   append([]byte(nil), e.Body...),
	}
}

// RequestKey returns the cache key identifying a request, e.g.
// "GET http://localhost:8080/web_components/a/1.0.0/a.html".
func RequestKey(method, url string) string {
	if method == "" {
		method = http.MethodGet
	}
	return method + " " + url
}

// ContentCache stores fetched responses by request identity.
type ContentCache struct {
	b Backend
}

// NewContentCache creates a ContentCache over b.
func NewContentCache(b Backend) *ContentCache {
	return &ContentCache{b: b}
}

// Match returns the cached entry for key.
func (c *ContentCache) Match(ctx context.Context, key string) (*Entry, bool, error) {
	data, ok, err := c.b.Get(ctx, CacheNamespace, key)
	if err != nil {
		return nil, false, fmt.Errorf("cache match %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// Corrupt entries count as a miss and are dropped.
		_ = c.b.Delete(ctx, CacheNamespace, key)
		return nil, false, nil
	}
	return &e, true, nil
}

// Put stores e under key.
func (c *ContentCache) Put(ctx context.Context, key string, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.b.Set(ctx, CacheNamespace, key, data); err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}

// Flush discards every cached entry.
func (c *ContentCache) Flush(ctx context.Context) error {
	if err := c.b.Flush(ctx, CacheNamespace); err != nil {
		return fmt.Errorf("cache flush: %w", err)
	}
	return nil
}
