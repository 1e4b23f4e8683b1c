package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopProxyHooks{}
	p.OnCacheHit(ctx, "GET http://x/a.js")
	p.OnCacheMiss(ctx, "GET http://x/a.js")
	p.OnCacheSet(ctx, "GET http://x/a.js", 1024)
	p.OnUpstream(ctx, "GET", "http://x/a.js", 200, time.Second)
	p.OnUpstreamError(ctx, "GET", "http://x/a.js", nil)

	i := NoopInstallHooks{}
	i.OnDownloadStart(ctx, "http://x/a.js", "/tmp/a.js")
	i.OnDownloadComplete(ctx, "http://x/a.js", "/tmp/a.js", 10, time.Second, nil)
}

func TestLogProxyHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	h := NewLogProxyHooks(logger)
	ctx := context.Background()

	h.OnCacheHit(ctx, "GET http://x/a.js")
	h.OnUpstreamError(ctx, "GET", "http://x/b.js", errors.New("connection refused"))

	out := buf.String()
	for _, want := range []string{"cache hit", "http://x/a.js", "upstream failed", "connection refused"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLogInstallHooksQuietAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel})
	h := NewLogInstallHooks(logger)
	h.OnDownloadStart(context.Background(), "http://x/a.js", "/tmp/a.js")
	h.OnDownloadComplete(context.Background(), "http://x/a.js", "/tmp/a.js", 1, time.Millisecond, nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output at info level, got %q", buf.String())
	}
}

func TestNilLoggerFallsBack(t *testing.T) {
	if NewLogProxyHooks(nil).logger == nil || NewLogInstallHooks(nil).logger == nil {
		t.Error("nil logger should fall back to log.Default()")
	}
}
