package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	stdhttputil "net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/wcm/pkg/httputil"
	"github.com/matzehuels/wcm/pkg/observability"
	"github.com/matzehuels/wcm/pkg/resolve"
	"github.com/matzehuels/wcm/pkg/store"
)

// CacheHeader reports whether a versioned response came from the cache
// ("hit") or the remote ("miss").
const CacheHeader = "X-Wcm-Cache"

// Config configures an [Engine].
type Config struct {
	// Upstream is the origin that serves the project, e.g. the development
	// server. Pass-through and development requests go here. Required.
	Upstream *url.URL

	// Remote serves versioned assets. Nil means Upstream.
	Remote *url.URL

	// InterceptSrc and InterceptDest default to "bower_components" and
	// "web_components".
	InterceptSrc  string
	InterceptDest string

	// Backend stores the manifest and the content cache. Required.
	Backend store.Backend

	// Client fetches versioned and development responses. Nil uses
	// [httputil.NewClient] with the default timeout.
	Client *http.Client

	Hooks  observability.ProxyHooks
	Logger *log.Logger
}

// Engine is the intercepting proxy. It implements [http.Handler].
type Engine struct {
	upstream  *url.URL
	remote    *url.URL
	src, dest string

	manifests *store.ManifestStore
	cache     *store.ContentCache
	client    *http.Client
	pass      *stdhttputil.ReverseProxy
	hooks     observability.ProxyHooks
	logger    *log.Logger

	lifecycle *Lifecycle
	calls     chan call

	// generation is bumped on every flush so that responses fetched
	// before a flush are not written back after it. cacheMu orders the
	// generation check and the write against a flush.
	cacheMu    sync.Mutex
	generation atomic.Uint64
}

type call struct {
	id    string
	cmd   Command
	reply chan Reply
}

// NewEngine creates an Engine in StateUninstalled.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Upstream == nil {
		return nil, errors.New("proxy: upstream is required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("proxy: backend is required")
	}
	e := &Engine{
		upstream:  cfg.Upstream,
		remote:    cfg.Remote,
		src:       cfg.InterceptSrc,
		dest:      cfg.InterceptDest,
		manifests: store.NewManifestStore(cfg.Backend),
		cache:     store.NewContentCache(cfg.Backend),
		client:    cfg.Client,
		hooks:     cfg.Hooks,
		logger:    cfg.Logger,
		calls:     make(chan call),
	}
	if e.remote == nil {
		e.remote = e.upstream
	}
	if e.src == "" {
		e.src = resolve.DefaultInterceptSrc
	}
	if e.dest == "" {
		e.dest = resolve.DefaultInterceptDest
	}
	if e.client == nil {
		e.client = httputil.NewClient(0)
	}
	if e.hooks == nil {
		e.hooks = observability.NoopProxyHooks{}
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	e.pass = stdhttputil.NewSingleHostReverseProxy(e.upstream)
	e.pass.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		e.hooks.OnUpstreamError(r.Context(), r.Method, r.URL.String(), err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
	e.lifecycle = NewLifecycle(func(from, to State) {
		e.logger.Debug("lifecycle", "from", from, "to", to)
	})
	return e, nil
}

// Lifecycle returns the engine's lifecycle.
func (e *Engine) Lifecycle() *Lifecycle { return e.lifecycle }

// Start installs and activates the engine, claiming all clients.
func (e *Engine) Start(skipWaiting bool) error {
	if err := e.lifecycle.Install(skipWaiting); err != nil {
		return err
	}
	return e.lifecycle.Activate()
}

// Run serves control calls until ctx is done. All manifest and cache
// mutations happen on this goroutine.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-e.calls:
			r := e.handle(ctx, c.cmd)
			r.ID = c.id
			if r.Err != nil {
				e.logger.Warn("control call failed", "id", c.id, "command", c.cmd.Name(), "err", r.Err)
			} else {
				e.logger.Debug("control call", "id", c.id, "command", c.cmd.Name())
			}
			c.reply <- r
		}
	}
}

// Call submits cmd to the control loop and waits for its reply. It blocks
// until [Engine.Run] picks the call up or ctx is done.
func (e *Engine) Call(ctx context.Context, cmd Command) Reply {
	c := call{id: uuid.NewString(), cmd: cmd, reply: make(chan Reply, 1)}
	select {
	case e.calls <- c:
	case <-ctx.Done():
		return Reply{ID: c.id, Err: ctx.Err()}
	}
	select {
	case r := <-c.reply:
		return r
	case <-ctx.Done():
		return Reply{ID: c.id, Err: ctx.Err()}
	}
}

func (e *Engine) handle(ctx context.Context, cmd Command) Reply {
	switch c := cmd.(type) {
	case GetManifest:
		m, ok, err := e.manifests.Load(ctx)
		if err != nil {
			return Reply{Err: err}
		}
		if !ok {
			return Reply{}
		}
		return Reply{Result: m}
	case SetManifest:
		if err := e.manifests.Save(ctx, c.Manifest); err != nil {
			return Reply{Err: err}
		}
		return Reply{}
	case FlushCache:
		e.cacheMu.Lock()
		defer e.cacheMu.Unlock()
		e.generation.Add(1)
		if err := e.cache.Flush(ctx); err != nil {
			return Reply{Err: err}
		}
		return Reply{Result: true}
	case UnknownCommand:
		return Reply{Err: unknownReply(c)}
	default:
		return Reply{Err: unknownReply(UnknownCommand{Command: cmd.Name()})}
	}
}

// Intercepts reports whether r is subject to interception.
func (e *Engine) Intercepts(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	return e.lifecycle.Active() && strings.Contains(r.URL.Path, e.src)
}

// ServeHTTP implements [http.Handler].
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !e.Intercepts(r) {
		e.pass.ServeHTTP(w, r)
		return
	}
	ctx := r.Context()

	m, ok, err := e.manifests.Load(ctx)
	if err != nil {
		e.logger.Error("load manifest", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		e.pass.ServeHTTP(w, r)
		return
	}

	res := resolve.ResolveURL(r.URL, m, e.src, e.dest)
	if !res.Intercepted() {
		e.pass.ServeHTTP(w, r)
		return
	}
	if res.Missing {
		e.logger.Warn("dependency not in manifest", "dependency", res.Dependency, "path", r.URL.Path)
	}

	if res.Development {
		entry, err := e.fetch(ctx, e.originalURL(r.URL), r.Header)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeEntry(w, r, entry, "")
		return
	}

	target := e.versionedURL(res.VersionedPath, r.URL)
	key := store.RequestKey(http.MethodGet, target)

	if cached, ok, err := e.cache.Match(ctx, key); err != nil {
		e.logger.Error("cache match", "key", key, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	} else if ok {
		e.hooks.OnCacheHit(ctx, key)
		writeEntry(w, r, cached, "hit")
		return
	}
	e.hooks.OnCacheMiss(ctx, key)

	gen := e.generation.Load()
	entry, err := e.fetch(ctx, target, r.Header)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if entry.Status < 200 || entry.Status > 299 {
		writeEntry(w, r, entry, "miss")
		return
	}

	if res.Opaque {
		entry = Rehydrate(entry, res.VersionedPath)
	}
	if err := e.cachePut(ctx, gen, key, entry); err != nil {
		e.logger.Error("cache put", "key", key, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeEntry(w, r, entry, "miss")
}

// cachePut caches entry unless a flush happened since gen was read.
func (e *Engine) cachePut(ctx context.Context, gen uint64, key string, entry *store.Entry) error {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	if gen != e.generation.Load() {
		return nil
	}
	if err := e.cache.Put(ctx, key, entry); err != nil {
		return err
	}
	e.hooks.OnCacheSet(ctx, key, len(entry.Body))
	return nil
}

// originalURL is the request URL on the upstream origin.
func (e *Engine) originalURL(u *url.URL) string {
	out := *e.upstream
	out.Path = singleJoin(e.upstream.Path, u.Path)
	out.RawPath = ""
	out.RawQuery = u.RawQuery
	return out.String()
}

// versionedURL is the remote URL of a versioned path. The opaque marker is
// not forwarded.
func (e *Engine) versionedURL(versionedPath string, orig *url.URL) string {
	out := *e.remote
	out.Path = singleJoin(e.remote.Path, "/"+versionedPath)
	out.RawPath = ""
	q := orig.Query()
	q.Del(resolve.OpaqueParam)
	out.RawQuery = q.Encode()
	return out.String()
}

func singleJoin(a, b string) string {
	return strings.TrimSuffix(a, "/") + "/" + strings.TrimPrefix(b, "/")
}

// forwardHeaders are copied from the browser request onto upstream fetches.
var forwardHeaders = []string{"Accept", "Accept-Language", "User-Agent", "Authorization"}

func (e *Engine) fetch(ctx context.Context, target string, in http.Header) (*store.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	for _, k := range forwardHeaders {
		if v := in.Get(k); v != "" {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		e.hooks.OnUpstreamError(ctx, req.Method, target, err)
		return nil, fmt.Errorf("%w: fetch %s: %v", httputil.ErrNetwork, target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.hooks.OnUpstreamError(ctx, req.Method, target, err)
		return nil, fmt.Errorf("%w: read %s: %v", httputil.ErrNetwork, target, err)
	}
	e.hooks.OnUpstream(ctx, req.Method, target, resp.StatusCode, time.Since(start))

	h := resp.Header.Clone()
	stripHop(h)
	return &store.Entry{Status: resp.StatusCode, Header: h, Body: body}, nil
}

func writeEntry(w http.ResponseWriter, r *http.Request, e *store.Entry, cache string) {
	h := w.Header()
	for k, vs := range e.Header {
		h[k] = append([]string(nil), vs...)
	}
	stripHop(h)
	h.Set("Content-Length", strconv.Itoa(len(e.Body)))
	if cache != "" {
		h.Set(CacheHeader, cache)
	}
	status := e.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(e.Body)
	}
}
