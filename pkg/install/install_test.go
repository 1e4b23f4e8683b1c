package install

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
	"github.com/matzehuels/wcm/pkg/index"
	"github.com/matzehuels/wcm/pkg/resolve"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// remote serves files keyed by URL path and records what was requested.
type remote struct {
	*httptest.Server
	mu    sync.Mutex
	files map[string]string
	hits  map[string]int
	hosts []string
	query []string
}

func newRemote(t *testing.T, files map[string]string) *remote {
	t.Helper()
	r := &remote{files: files, hits: map[string]int{}}
	r.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.hits[req.URL.Path]++
		r.hosts = append(r.hosts, req.Host)
		r.query = append(r.query, req.URL.RawQuery)
		r.mu.Unlock()
		body, ok := files[req.URL.Path]
		if !ok {
			http.NotFound(w, req)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(r.Close)
	return r
}

func (r *remote) URL(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse(r.Server.URL)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

// project lays out a single group whose entry references two vendored
// packages directly and one package that is not in the manifest.
func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "comp", "index.html"),
		`<link rel="import" href="../../bower_components/a/dep.html">
<script src="../../bower_components/b/b.js"></script>
<script src="../../bower_components/missing/x.js"></script>
<script src="local.js"></script>`)
	return dir
}

var remoteFiles = map[string]string{
	"/web_components/a/1.0.0/dep.html": `<link rel="import" href="../b/b.html"><script src="inner.js"></script>`,
	"/web_components/a/1.0.0/inner.js": `inner()`,
	"/web_components/b/2.0.0/b.html":   `<script src="b.js"></script>`,
	"/web_components/b/2.0.0/b.js":     `b()`,
}

func options(dir string, u *url.URL) Options {
	return Options{
		Groups:      index.Groups{"comp": {"comp/index.html"}},
		SrcRoot:     filepath.Join(dir, "src"),
		ProjectRoot: dir,
		Remote:      u,
		Manifest:    resolve.Manifest{"a": "1.0.0", "b": "2.0.0"},
	}
}

func newOrchestrator(d Downloader) *Orchestrator {
	return New(Config{Downloader: d, Logger: log.New(os.Stderr)})
}

func collect(t *testing.T, o *Orchestrator, opts Options) []Event {
	t.Helper()
	var events []Event
	for ev := range o.Run(context.Background(), opts) {
		events = append(events, ev)
	}
	return events
}

func checkProgress(t *testing.T, events []Event) {
	t.Helper()
	var last Progress
	for i, ev := range events {
		p := ev.Progress
		if p.Completed < 0 || p.Completed > p.Pending {
			t.Fatalf("event %d: progress %d/%d out of range", i, p.Completed, p.Pending)
		}
		if p.Completed < last.Completed || p.Pending < last.Pending {
			t.Fatalf("event %d: progress went backwards %+v -> %+v", i, last, p)
		}
		last = p
	}
}

func TestRun(t *testing.T) {
	dir := project(t)
	rem := newRemote(t, remoteFiles)
	d := NewHTTPDownloader(&DownloaderOptions{
		Headers:  map[string]string{"Host": "components.example", "Content-Type": DefaultContentType},
		ListType: true,
		Attempts: 1,
	})

	events := collect(t, newOrchestrator(d), options(dir, rem.URL(t)))
	checkProgress(t, events)

	first, last := events[0], events[len(events)-1]
	if first.Label != LabelStarting {
		t.Errorf("first label = %q, want %q", first.Label, LabelStarting)
	}
	if !last.Done || last.Label != LabelFinished {
		t.Errorf("last event = %+v, want Done %q", last, LabelFinished)
	}
	if last.Completed != 4 || last.Pending != 4 {
		t.Errorf("final progress = %d/%d, want 4/4", last.Completed, last.Pending)
	}

	var errs []error
	for _, ev := range events {
		if ev.Err != nil {
			errs = append(errs, ev.Err)
		}
	}
	if len(errs) != 1 || !wcmerrors.Is(errs[0], wcmerrors.ErrCodeNotInManifest) {
		t.Fatalf("errors = %v, want one NOT_IN_MANIFEST", errs)
	}

	for path, want := range remoteFiles {
		got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(path)))
		if err != nil {
			t.Errorf("read %s: %v", path, err)
			continue
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
		if n := rem.hits[path]; n != 1 {
			t.Errorf("%s fetched %d times, want 1", path, n)
		}
	}
	for _, h := range rem.hosts {
		if h != "components.example" {
			t.Errorf("Host = %q, want components.example", h)
		}
	}
	for _, q := range rem.query {
		if q != "list-type=2" {
			t.Errorf("query = %q, want list-type=2", q)
		}
	}
}

func TestRunLabels(t *testing.T) {
	dir := project(t)
	rem := newRemote(t, remoteFiles)
	d := NewHTTPDownloader(&DownloaderOptions{Attempts: 1})

	var labels []string
	for ev := range newOrchestrator(d).Run(context.Background(), options(dir, rem.URL(t))) {
		if ev.Err == nil {
			labels = append(labels, ev.Label)
		}
	}
	want := []string{
		LabelStarting,
		"a@1.0.0", // discovered
		"b@2.0.0", // b.html discovered
		"b@2.0.0", // b.js discovered
		"b@2.0.0", // b.js done
		"b@2.0.0", // b.html done
		"a@1.0.0", // inner.js discovered
		"a@1.0.0", // inner.js done
		"a@1.0.0", // dep.html done
		LabelFinished,
	}
	if strings.Join(labels, ",") != strings.Join(want, ",") {
		t.Errorf("labels = %v\nwant %v", labels, want)
	}
}

// fakeDownloader writes fixed content and fails for selected sources.
type fakeDownloader struct {
	fail  map[string]bool
	calls []string
}

func (f *fakeDownloader) Download(_ context.Context, src, dst string) (int64, error) {
	f.calls = append(f.calls, src)
	for suffix := range f.fail {
		if strings.HasSuffix(src, suffix) {
			return 0, errors.New("boom")
		}
	}
	return 1, os.WriteFile(dst, []byte("x"), 0o644)
}

func TestRunDownloadFailureContinues(t *testing.T) {
	dir := project(t)
	u, _ := url.Parse("https://remote.example/assets")
	f := &fakeDownloader{fail: map[string]bool{"/a/1.0.0/dep.html": true}}

	events := collect(t, newOrchestrator(f), options(dir, u))
	checkProgress(t, events)

	var downloadErr error
	for _, ev := range events {
		if wcmerrors.Is(ev.Err, wcmerrors.ErrCodeDownload) {
			downloadErr = ev.Err
		}
	}
	if downloadErr == nil {
		t.Fatal("no download error emitted")
	}
	msg := downloadErr.Error()
	wantSrc := "https://remote.example/assets/web_components/a/1.0.0/dep.html"
	wantDst := filepath.Join(dir, "web_components", "a", "1.0.0", "dep.html")
	if !strings.Contains(msg, wantSrc) || !strings.Contains(msg, wantDst) {
		t.Errorf("error %q does not name source and destination", msg)
	}

	want := []string{
		wantSrc,
		"https://remote.example/assets/web_components/b/2.0.0/b.js",
	}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", f.calls, want)
	}
	last := events[len(events)-1]
	if !last.Done || last.Completed != 2 || last.Pending != 2 {
		t.Errorf("last = %+v, want Done 2/2", last)
	}
}

func TestRunFailedDownloadSkipsStaleCopy(t *testing.T) {
	dir := project(t)
	// Left behind by an earlier install; its import must not be followed.
	writeFile(t, filepath.Join(dir, "web_components", "a", "1.0.0", "dep.html"),
		`<script src="stale.js"></script>`)
	u, _ := url.Parse("https://remote.example")
	f := &fakeDownloader{fail: map[string]bool{"/a/1.0.0/dep.html": true}}

	collect(t, newOrchestrator(f), options(dir, u))
	for _, src := range f.calls {
		if strings.HasSuffix(src, "stale.js") {
			t.Errorf("walked stale copy: fetched %s", src)
		}
	}
	if len(f.calls) != 2 {
		t.Errorf("calls = %v, want dep.html and b.js", f.calls)
	}
}

func TestRunSkipsDevelopment(t *testing.T) {
	dir := project(t)
	u, _ := url.Parse("https://remote.example")
	f := &fakeDownloader{}
	opts := options(dir, u)
	opts.Manifest = resolve.Manifest{"a": resolve.Development, "b": "2.0.0"}

	collect(t, newOrchestrator(f), opts)
	if len(f.calls) != 1 || !strings.HasSuffix(f.calls[0], "/web_components/b/2.0.0/b.js") {
		t.Errorf("calls = %v, want only b.js", f.calls)
	}
}

func TestRunStopsEarly(t *testing.T) {
	dir := project(t)
	u, _ := url.Parse("https://remote.example")
	f := &fakeDownloader{}

	for ev := range newOrchestrator(f).Run(context.Background(), options(dir, u)) {
		if ev.Pending == 1 {
			break
		}
	}
	if len(f.calls) != 0 {
		t.Errorf("downloads after stop = %v, want none", f.calls)
	}
}

func TestRunCancelled(t *testing.T) {
	dir := project(t)
	u, _ := url.Parse("https://remote.example")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var last Event
	for ev := range newOrchestrator(&fakeDownloader{}).Run(ctx, options(dir, u)) {
		last = ev
	}
	if !last.Done || !errors.Is(last.Err, context.Canceled) {
		t.Errorf("last = %+v, want Done with context.Canceled", last)
	}
}

func TestRunValidation(t *testing.T) {
	u, _ := url.Parse("https://remote.example")
	tests := []struct {
		name string
		opts Options
		code wcmerrors.Code
	}{
		{"no remote", Options{Manifest: resolve.Manifest{}}, wcmerrors.ErrCodeInvalidConfig},
		{"no manifest", Options{Remote: u}, wcmerrors.ErrCodeManifestNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []Event
			for ev := range newOrchestrator(&fakeDownloader{}).Run(context.Background(), tt.opts) {
				events = append(events, ev)
			}
			if len(events) != 1 || !events[0].Done || !wcmerrors.Is(events[0].Err, tt.code) {
				t.Errorf("events = %+v, want one Done event with %s", events, tt.code)
			}
		})
	}
}

func TestHTTPDownloaderRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "out.js")
	d := NewHTTPDownloader(&DownloaderOptions{Attempts: 3})
	n, err := d.Download(context.Background(), srv.URL+"/x.js", dst)
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 || calls != 2 {
		t.Errorf("n = %d, calls = %d, want 7 and 2", n, calls)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "payload" {
		t.Errorf("content = %q", got)
	}
}

func TestHTTPDownloaderNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dir := t.TempDir()
	d := NewHTTPDownloader(&DownloaderOptions{Attempts: 3})
	_, err := d.Download(context.Background(), srv.URL+"/x.js", filepath.Join(dir, "x.js"))
	if err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("left files behind: %v", entries)
	}
}
