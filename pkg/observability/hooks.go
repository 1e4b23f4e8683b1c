// Package observability provides hooks for metrics, tracing, and logging.
//
// Components accept hook implementations through their constructors or
// option structs and fall back to the no-op implementations when none is
// given. There is no global registry; the CLI builds hooks at startup and
// passes them down.
//
//	engine := proxy.NewEngine(proxy.Config{
//	    Hooks: observability.NewLogProxyHooks(logger),
//	    ...
//	})
package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// =============================================================================
// Proxy Hooks
// =============================================================================

// ProxyHooks receives events from the intercepting proxy.
type ProxyHooks interface {
	// OnCacheHit records a response served from the content cache.
	OnCacheHit(ctx context.Context, key string)

	// OnCacheMiss records a lookup that fell through to the upstream.
	OnCacheMiss(ctx context.Context, key string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, key string, size int)

	// OnUpstream records an upstream response.
	OnUpstream(ctx context.Context, method, url string, status int, duration time.Duration)

	// OnUpstreamError records a failed upstream fetch.
	OnUpstreamError(ctx context.Context, method, url string, err error)
}

// =============================================================================
// Install Hooks
// =============================================================================

// InstallHooks receives events from the installer.
type InstallHooks interface {
	// OnDownloadStart records the start of an asset download.
	OnDownloadStart(ctx context.Context, src, dst string)

	// OnDownloadComplete records a finished download. err is nil on success.
	OnDownloadComplete(ctx context.Context, src, dst string, size int64, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopProxyHooks is a no-op implementation of ProxyHooks.
type NoopProxyHooks struct{}

func (NoopProxyHooks) OnCacheHit(context.Context, string)                             {}
func (NoopProxyHooks) OnCacheMiss(context.Context, string)                            {}
func (NoopProxyHooks) OnCacheSet(context.Context, string, int)                        {}
func (NoopProxyHooks) OnUpstream(context.Context, string, string, int, time.Duration) {}
func (NoopProxyHooks) OnUpstreamError(context.Context, string, string, error)         {}

// NoopInstallHooks is a no-op implementation of InstallHooks.
type NoopInstallHooks struct{}

func (NoopInstallHooks) OnDownloadStart(context.Context, string, string) {}
func (NoopInstallHooks) OnDownloadComplete(context.Context, string, string, int64, time.Duration, error) {
}

// =============================================================================
// Logging Implementations
// =============================================================================

// LogProxyHooks logs proxy events at debug level, and upstream failures at
// warn level.
type LogProxyHooks struct {
	logger *log.Logger
}

// NewLogProxyHooks creates proxy hooks writing to logger. A nil logger
// uses [log.Default].
func NewLogProxyHooks(logger *log.Logger) *LogProxyHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogProxyHooks{logger: logger}
}

func (h *LogProxyHooks) OnCacheHit(_ context.Context, key string) {
	h.logger.Debug("cache hit", "key", key)
}

func (h *LogProxyHooks) OnCacheMiss(_ context.Context, key string) {
	h.logger.Debug("cache miss", "key", key)
}

func (h *LogProxyHooks) OnCacheSet(_ context.Context, key string, size int) {
	h.logger.Debug("cache set", "key", key, "bytes", size)
}

func (h *LogProxyHooks) OnUpstream(_ context.Context, method, url string, status int, d time.Duration) {
	h.logger.Debug("upstream", "method", method, "url", url, "status", status, "took", d.Round(time.Millisecond))
}

func (h *LogProxyHooks) OnUpstreamError(_ context.Context, method, url string, err error) {
	h.logger.Warn("upstream failed", "method", method, "url", url, "err", err)
}

// LogInstallHooks logs download events at debug level.
type LogInstallHooks struct {
	logger *log.Logger
}

// NewLogInstallHooks creates install hooks writing to logger. A nil logger
// uses [log.Default].
func NewLogInstallHooks(logger *log.Logger) *LogInstallHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogInstallHooks{logger: logger}
}

func (h *LogInstallHooks) OnDownloadStart(_ context.Context, src, dst string) {
	h.logger.Debug("download", "src", src, "dst", dst)
}

func (h *LogInstallHooks) OnDownloadComplete(_ context.Context, src, dst string, size int64, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("download failed", "src", src, "err", err)
		return
	}
	h.logger.Debug("downloaded", "dst", dst, "bytes", size, "took", d.Round(time.Millisecond))
}

var (
	_ ProxyHooks   = NoopProxyHooks{}
	_ ProxyHooks   = (*LogProxyHooks)(nil)
	_ InstallHooks = NoopInstallHooks{}
	_ InstallHooks = (*LogInstallHooks)(nil)
)
