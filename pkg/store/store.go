package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
)

const (
	// KeyValNamespace holds small control values such as the manifest.
	KeyValNamespace = "wcm_keyval"

	// CacheNamespace holds cached responses.
	CacheNamespace = "wcm"
)

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("store closed")

// Backend is a durable namespaced byte store.
type Backend interface {
	// Get returns the value stored under key. A missing key reports false
	// with a nil error.
	Get(ctx context.Context, ns, key string) ([]byte, bool, error)
	// Set stores data under key, replacing any previous value.
	Set(ctx context.Context, ns, key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, ns, key string) error
	// Flush removes every key in ns.
	Flush(ctx context.Context, ns string) error
	// Close releases the backend's resources.
	Close() error
}

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	// Backend is one of "file", "memory", "redis" or "mongo". Empty means file.
	Backend string `toml:"backend" json:"backend"`

	// Dir is the root directory of the file backend.
	Dir string `toml:"dir" json:"dir"`

	// RedisURL is a redis:// URL. It takes precedence over RedisAddr.
	RedisURL      string `toml:"redisUrl" json:"redisUrl"`
	RedisAddr     string `toml:"redisAddr" json:"redisAddr"`
	RedisPassword string `toml:"redisPassword" json:"redisPassword"`
	RedisDB       int    `toml:"redisDb" json:"redisDb"`

	MongoURI      string `toml:"mongoUri" json:"mongoUri"`
	MongoDatabase string `toml:"mongoDatabase" json:"mongoDatabase"`
}

// Open creates the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendFile:
		if cfg.Dir == "" {
			return nil, wcmerrors.New(wcmerrors.ErrCodeInvalidConfig, "store.dir is required for the file backend")
		}
		return NewFileBackend(cfg.Dir)
	case BackendMemory:
		return NewMemoryBackend(), nil
	case BackendRedis:
		return NewRedisBackend(ctx, RedisConfig{
			URL:      cfg.RedisURL,
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case BackendMongo:
		return NewMongoBackend(ctx, MongoConfig{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
	default:
		return nil, wcmerrors.New(wcmerrors.ErrCodeInvalidConfig, "unknown store backend %q", cfg.Backend)
	}
}

// Hash computes a SHA-256 hash of the input data as 64 hex characters.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func checkNamespace(ns string) error {
	if ns == "" || strings.ContainsAny(ns, `/\:*?[] `) || ns == "." || ns == ".." {
		return fmt.Errorf("invalid namespace %q", ns)
	}
	return nil
}
