package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
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

// execute runs the CLI in dir and returns its output.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := New(io.Discard, log.InfoLevel)
	c.SetOutput(&out)
	root := c.RootCommand()
	root.SetArgs(append([]string{"-C", dir}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// project lays out a component group with one vendored import and a file
// store inside the project.
func project(t *testing.T, remote string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".wcmrc.toml"), `
[bundle.components]
comp = ["comp/index.html"]

[store]
dir = ".wcm"

[install]
remote = "`+remote+`"
listType = false
attempts = 1
`)
	writeFile(t, filepath.Join(dir, "manifest.json"), `{"a": "1.0.0"}`)
	writeFile(t, filepath.Join(dir, "src", "comp", "index.html"),
		`<link rel="import" href="../../bower_components/a/a.html"><script src="app.js"></script>`)
	return dir
}

func TestConfigGet(t *testing.T) {
	dir := project(t, "http://remote.invalid")
	out, err := execute(t, dir, "config", "get", "store.dir")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != ".wcm" {
		t.Errorf("out = %q", out)
	}

	if _, err := execute(t, dir, "config", "get", "store.nope"); !wcmerrors.Is(err, wcmerrors.ErrCodeNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestConfigList(t *testing.T) {
	dir := project(t, "http://remote.invalid")
	out, err := execute(t, dir, "config", "list")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"browser.interceptSrc: bower_components", "bundle.components: comp=comp/index.html", "install.attempts: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestManifestCommands(t *testing.T) {
	dir := project(t, "http://remote.invalid")

	out, err := execute(t, dir, "manifest", "get")
	if err != nil || strings.TrimSpace(out) != "null" {
		t.Fatalf("get before set = %q, %v", out, err)
	}
	if _, err := execute(t, dir, "manifest", "set"); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, dir, "manifest", "get")
	if err != nil || !strings.Contains(out, `"a": "1.0.0"`) {
		t.Fatalf("get after set = %q, %v", out, err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".wcm")); err != nil {
		t.Errorf("store dir not created: %v", err)
	}

	if _, err := execute(t, dir, "cache", "flush"); err != nil {
		t.Fatal(err)
	}
	if out, _ := execute(t, dir, "manifest", "get"); !strings.Contains(out, `"a"`) {
		t.Errorf("manifest lost after cache flush: %q", out)
	}

	if _, err := execute(t, dir, "manifest", "clear"); err != nil {
		t.Fatal(err)
	}
	if out, _ := execute(t, dir, "manifest", "get"); strings.TrimSpace(out) != "null" {
		t.Errorf("get after clear = %q", out)
	}
}

func TestManifestSetInvalid(t *testing.T) {
	dir := project(t, "http://remote.invalid")
	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, `{"a": 1}`)
	if _, err := execute(t, dir, "manifest", "set", bad); err == nil {
		t.Error("expected error for invalid manifest")
	}
}

func TestCachePath(t *testing.T) {
	dir := project(t, "http://remote.invalid")
	out, err := execute(t, dir, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != filepath.Join(dir, ".wcm") {
		t.Errorf("out = %q", out)
	}
}

func TestDepsList(t *testing.T) {
	dir := project(t, "http://remote.invalid")
	out, err := execute(t, dir, "deps", "list", "--mode", "external")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "import\t../bower_components/a/a.html" {
		t.Errorf("out = %q", out)
	}

	if _, err := execute(t, dir, "deps", "list", "--mode", "sideways"); !wcmerrors.Is(err, wcmerrors.ErrCodeInvalidInput) {
		t.Errorf("bad mode err = %v", err)
	}
}

func TestDepsListRootRelative(t *testing.T) {
	dir := project(t, "http://remote.invalid")
	writeFile(t, filepath.Join(dir, "src", "comp", "index.html"),
		`<link rel="import" href="/src/comp/x.html"><link rel="import" href="/bower_components/a/a.html">`)
	writeFile(t, filepath.Join(dir, "src", "comp", "x.html"), `<script src="y.js"></script>`)

	out, err := execute(t, dir, "deps", "list", "--mode", "internal")
	if err != nil {
		t.Fatal(err)
	}
	want := "script\tcomp/y.js\nimport\tcomp/x.html\nroot\tcomp/index.html"
	if strings.TrimSpace(out) != want {
		t.Errorf("internal = %q, want %q", out, want)
	}

	out, err = execute(t, dir, "deps", "list", "--mode", "external")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "import\t../bower_components/a/a.html" {
		t.Errorf("external = %q", out)
	}
}

func TestDepsGraph(t *testing.T) {
	dir := project(t, "http://remote.invalid")
	out, err := execute(t, dir, "deps", "graph", "comp/index.html")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "digraph G {") || !strings.Contains(out, `label="comp/app.js"`) {
		t.Errorf("out = %q", out)
	}

	file := filepath.Join(dir, "graph.dot")
	out, err = execute(t, dir, "deps", "graph", "comp/index.html", "-o", file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "3 nodes") {
		t.Errorf("summary = %q", out)
	}
	if data, err := os.ReadFile(file); err != nil || !bytes.HasPrefix(data, []byte("digraph")) {
		t.Errorf("graph file = %q, %v", data, err)
	}
}

func TestInstall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/web_components/a/1.0.0/a.html" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<script src="a.js"></script>`))
	}))
	defer srv.Close()

	dir := project(t, srv.URL)
	out, err := execute(t, dir, "install")
	if err == nil {
		t.Fatal("expected error for missing a.js")
	}
	for _, want := range []string{"(0/1) a@1.0.0", "(2/2) Finished", "2 installed", "1 errors"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "web_components", "a", "1.0.0", "a.html")); err != nil {
		t.Error(err)
	}
}

func TestMigrateList(t *testing.T) {
	dir := project(t, "http://remote.invalid")
	writeFile(t, filepath.Join(dir, "package.json"), `{"name": "app", "dependencies": {"x": "*"}}`)
	writeFile(t, filepath.Join(dir, "node_modules", "x", "package.json"), `{"name": "x", "version": "4.0.0"}`)

	out, err := execute(t, dir, "migrate", "list")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "x: 4.0.0" {
		t.Errorf("out = %q", out)
	}

	dst := filepath.Join(dir, "deps.json")
	if _, err := execute(t, dir, "migrate", "list", "--out", dst); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(dst); !strings.Contains(string(data), `"x": "4.0.0"`) {
		t.Errorf("deps.json = %s", data)
	}
}

func TestCompletion(t *testing.T) {
	out, err := execute(t, t.TempDir(), "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "wcm") {
		t.Error("completion script does not mention wcm")
	}
}

func TestParseOrigin(t *testing.T) {
	tests := []struct {
		raw string
		ok  bool
	}{
		{"http://localhost:8081", true},
		{"https://cdn.example/base", true},
		{"localhost:8081", false},
		{"/relative", false},
	}
	for _, tt := range tests {
		_, err := parseOrigin("upstream", tt.raw)
		if (err == nil) != tt.ok {
			t.Errorf("parseOrigin(%q) err = %v, want ok %v", tt.raw, err, tt.ok)
		}
	}
}
