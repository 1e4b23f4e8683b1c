package install

import (
	"context"
	"iter"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
	"github.com/matzehuels/wcm/pkg/index"
	"github.com/matzehuels/wcm/pkg/observability"
	"github.com/matzehuels/wcm/pkg/resolve"
	"github.com/matzehuels/wcm/pkg/walk"
)

// Labels of the first and last events of a run.
const (
	LabelStarting = "Starting"
	LabelFinished = "Finished"
)

// Progress is a snapshot of a run. 0 <= Completed <= Pending always holds;
// Pending grows as nested dependencies are discovered.
type Progress struct {
	Completed int
	Pending   int
	Label     string
}

// Event is one entry of the install stream.
type Event struct {
	Progress

	// Err is a recoverable per-node failure. The run continues after it.
	Err error

	// Done marks the final event.
	Done bool
}

// Downloader fetches src into the file dst and returns the number of bytes
// written.
type Downloader interface {
	Download(ctx context.Context, src, dst string) (int64, error)
}

// Options configures one install run.
type Options struct {
	// Groups maps group roots to entry documents, relative to SrcRoot.
	Groups  index.Groups
	SrcRoot string

	// ProjectRoot receives the versioned tree. Empty means the working
	// directory.
	ProjectRoot string

	// Remote is the base URL that versioned paths are fetched from.
	Remote *url.URL

	Manifest      resolve.Manifest
	InterceptSrc  string
	InterceptDest string
}

// Config holds the collaborators of an [Orchestrator].
type Config struct {
	Indexer    *index.Indexer
	Walker     *walk.Walker
	Downloader Downloader
	Hooks      observability.InstallHooks
	Logger     *log.Logger
}

// Orchestrator runs installs.
type Orchestrator struct {
	indexer    *index.Indexer
	walker     *walk.Walker
	downloader Downloader
	hooks      observability.InstallHooks
	logger     *log.Logger
}

// New creates an Orchestrator. Nil collaborators get defaults: a local
// filesystem walker, an indexer over it and an [HTTPDownloader].
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		indexer:    cfg.Indexer,
		walker:     cfg.Walker,
		downloader: cfg.Downloader,
		hooks:      cfg.Hooks,
		logger:     cfg.Logger,
	}
	if o.walker == nil {
		o.walker = walk.New(nil, "")
	}
	if o.indexer == nil {
		o.indexer = index.New(o.walker)
	}
	if o.downloader == nil {
		o.downloader = NewHTTPDownloader(nil)
	}
	if o.hooks == nil {
		o.hooks = observability.NoopInstallHooks{}
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	return o
}

// Run installs every external dependency reachable from opts.Groups.
// Nodes are processed one at a time, each including its nested documents,
// before the next one starts.
func (o *Orchestrator) Run(ctx context.Context, opts Options) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		r, err := o.newRun(ctx, opts, yield)
		if err != nil {
			yield(Event{Err: err, Done: true, Progress: Progress{Label: LabelFinished}})
			return
		}
		r.run()
	}
}

type run struct {
	*Orchestrator
	ctx   context.Context
	opts  Options
	root  string
	yield func(Event) bool

	done    *walk.PathSet
	ignore  *walk.PathSet
	prog    Progress
	stopped bool
}

func (o *Orchestrator) newRun(ctx context.Context, opts Options, yield func(Event) bool) (*run, error) {
	if opts.Remote == nil {
		return nil, wcmerrors.New(wcmerrors.ErrCodeInvalidConfig, "install: remote URL is required")
	}
	if opts.Manifest == nil {
		return nil, wcmerrors.New(wcmerrors.ErrCodeManifestNotFound, "install: manifest is required")
	}
	if opts.InterceptSrc == "" {
		opts.InterceptSrc = resolve.DefaultInterceptSrc
	}
	if opts.InterceptDest == "" {
		opts.InterceptDest = resolve.DefaultInterceptDest
	}
	root, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return nil, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidPath, err, "project root %s", opts.ProjectRoot)
	}
	return &run{
		Orchestrator: o,
		ctx:          ctx,
		opts:         opts,
		root:         root,
		yield:        yield,
		done:         walk.NewPathSet(),
		ignore:       walk.NewPathSet(),
	}, nil
}

func (r *run) run() {
	if !r.emit(Event{Progress: r.progress(LabelStarting)}) {
		return
	}
	for n, err := range r.indexer.IndexGroups(r.opts.Groups, r.opts.SrcRoot, index.ModeExternal) {
		if err := r.ctx.Err(); err != nil {
			r.emit(Event{Err: err, Progress: r.progress(LabelFinished), Done: true})
			return
		}
		if err != nil {
			if !r.fail(err) {
				return
			}
			continue
		}
		if !r.node(n.Path) {
			return
		}
	}
	r.emit(Event{Progress: r.progress(LabelFinished), Done: true})
}

// node installs the dependency referenced by logical, then its nested
// references. It reports false once the consumer has stopped.
func (r *run) node(logical string) bool {
	if r.stopped {
		return false
	}
	res := resolve.Resolve(filepath.ToSlash(logical), r.opts.Manifest, r.opts.InterceptSrc, r.opts.InterceptDest)
	if !res.Intercepted() || !strings.HasPrefix(res.VersionedPath, r.opts.InterceptDest+"/") {
		return true
	}
	// Development dependencies are always served from the original path.
	if res.Development {
		return true
	}
	if res.Missing {
		return r.fail(wcmerrors.New(wcmerrors.ErrCodeNotInManifest, "%s: dependency %q is not in the manifest", logical, res.Dependency))
	}

	dst := filepath.Join(r.root, filepath.FromSlash(res.VersionedPath))
	if !r.done.Add(dst) {
		return true
	}
	label := res.Dependency + "@" + r.opts.Manifest[res.Dependency]

	r.prog.Pending++
	if !r.emit(Event{Progress: r.progress(label)}) {
		return false
	}
	ok, cont := r.fetch(res.VersionedPath, dst)
	if !cont {
		return false
	}
	if ok && !r.nested(dst, logical) {
		return false
	}
	r.prog.Completed++
	return r.emit(Event{Progress: r.progress(label)})
}

// fetch downloads one versioned path. It reports whether the download
// succeeded and whether the consumer is still listening; failures are
// emitted.
func (r *run) fetch(versionedPath, dst string) (ok, cont bool) {
	src := remoteURL(r.opts.Remote, versionedPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, r.fail(wcmerrors.Wrap(wcmerrors.ErrCodeDownload, err, "create %s", filepath.Dir(dst)))
	}

	r.hooks.OnDownloadStart(r.ctx, src, dst)
	start := time.Now()
	n, err := r.downloader.Download(r.ctx, src, dst)
	r.hooks.OnDownloadComplete(r.ctx, src, dst, n, time.Since(start), err)
	if err != nil {
		return false, r.fail(wcmerrors.Wrap(wcmerrors.ErrCodeDownload, err, "download %s -> %s", src, dst))
	}
	return true, true
}

// nested walks a freshly downloaded document as if it lived at logical.
func (r *run) nested(dst, logical string) bool {
	if !walk.IsDocument(dst) {
		return true
	}
	for child, err := range r.walker.WalkAs(dst, logical, r.ignore) {
		if err != nil {
			return r.fail(wcmerrors.Wrap(wcmerrors.ErrCodeInvalidInput, err, "walk %s", dst))
		}
		if !r.node(child.Path) {
			return false
		}
	}
	return true
}

func (r *run) progress(label string) Progress {
	p := r.prog
	p.Label = label
	return p
}

func (r *run) fail(err error) bool {
	r.logger.Debug("install step failed", "err", err)
	return r.emit(Event{Err: err, Progress: r.progress("Error")})
}

func (r *run) emit(e Event) bool {
	if r.stopped {
		return false
	}
	if !r.yield(e) {
		r.stopped = true
	}
	return !r.stopped
}

func remoteURL(base *url.URL, versionedPath string) string {
	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(versionedPath, "/")
	u.RawPath = ""
	return u.String()
}
