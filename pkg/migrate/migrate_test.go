package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
	"github.com/matzehuels/wcm/pkg/install"
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

// project: app -> a, b; a -> c; b -> c, @scope/d.
func project(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"),
		`{"name": "app", "version": "0.0.1", "dependencies": {"b": "^1", "a": "^2"}}`)
	writeFile(t, filepath.Join(dir, "node_modules", "a", "package.json"),
		`{"name": "a", "version": "2.0.0", "dependencies": {"c": "*"}}`)
	writeFile(t, filepath.Join(dir, "node_modules", "a", "lib", "a.js"), `a()`)
	writeFile(t, filepath.Join(dir, "node_modules", "b", "package.json"),
		`{"name": "b", "version": "1.4.0", "dependencies": {"c": "*", "@scope/d": "*"}}`)
	writeFile(t, filepath.Join(dir, "node_modules", "c", "package.json"),
		`{"name": "c", "version": "3.1.0"}`)
	writeFile(t, filepath.Join(dir, "node_modules", "@scope", "d", "package.json"),
		`{"name": "@scope/d", "version": "0.1.0"}`)

	opts := DefaultOptions()
	opts.ProjectDir = dir
	return opts
}

func newMigrator() *Migrator { return New(log.New(os.Stderr)) }

func TestDependencies(t *testing.T) {
	opts := project(t)
	var got []string
	for dep, err := range newMigrator().Dependencies(opts) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, dep.String())
	}
	want := []string{"a@2.0.0", "b@1.4.0", "c@3.1.0", "@scope/d@0.1.0"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestList(t *testing.T) {
	opts := project(t)
	m, err := newMigrator().List(opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 4 || m["@scope/d"] != "0.1.0" || m["c"] != "3.1.0" {
		t.Errorf("manifest = %v", m)
	}
}

func TestListMissingDependency(t *testing.T) {
	opts := project(t)
	if err := os.RemoveAll(filepath.Join(opts.ProjectDir, "node_modules", "c")); err != nil {
		t.Fatal(err)
	}
	m, err := newMigrator().List(opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m["c"]; ok || len(m) != 3 {
		t.Errorf("manifest = %v, want c skipped", m)
	}
}

func TestListMissingProject(t *testing.T) {
	opts := DefaultOptions()
	opts.ProjectDir = t.TempDir()
	if _, err := newMigrator().List(opts); !wcmerrors.Is(err, wcmerrors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestCustomLookup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bower.json"), `{"id": "app", "deps": {"x": "1"}}`)
	writeFile(t, filepath.Join(dir, "vendor", "x", "bower.json"), `{"id": "x", "rev": "9"}`)

	opts := Options{
		ProjectDir:      dir,
		DepsRootDir:     "vendor",
		PackageFile:     "package.json, bower.json",
		NameKey:         "id",
		VersionKey:      "rev",
		DependenciesKey: "deps",
	}
	m, err := newMigrator().List(opts)
	if err != nil {
		t.Fatal(err)
	}
	if m["x"] != "9" {
		t.Errorf("manifest = %v", m)
	}
}

func TestRun(t *testing.T) {
	opts := project(t)
	if err := os.Symlink("lib/a.js", filepath.Join(opts.ProjectDir, "node_modules", "a", "main.js")); err != nil {
		t.Skip("symlinks unsupported:", err)
	}

	var events []install.Event
	for ev := range newMigrator().Run(context.Background(), opts) {
		if ev.Err != nil {
			t.Fatal(ev.Err)
		}
		events = append(events, ev)
	}
	for i, ev := range events {
		if ev.Completed > ev.Pending {
			t.Fatalf("event %d: %d/%d", i, ev.Completed, ev.Pending)
		}
	}
	last := events[len(events)-1]
	if !last.Done || last.Label != install.LabelFinished || last.Completed != 4 || last.Pending != 4 {
		t.Errorf("last = %+v", last)
	}

	out := filepath.Join(opts.ProjectDir, "web_components")
	got, err := os.ReadFile(filepath.Join(out, "a", "2.0.0", "lib", "a.js"))
	if err != nil || string(got) != "a()" {
		t.Errorf("a.js = %q, %v", got, err)
	}
	if link, err := os.Readlink(filepath.Join(out, "a", "2.0.0", "main.js")); err != nil || link != "lib/a.js" {
		t.Errorf("main.js link = %q, %v", link, err)
	}
	if _, err := os.Stat(filepath.Join(out, "@scope", "d", "0.1.0", "package.json")); err != nil {
		t.Error(err)
	}
}

func TestRunReplacesExisting(t *testing.T) {
	opts := project(t)
	stale := filepath.Join(opts.ProjectDir, "web_components", "c", "3.1.0", "stale.js")
	writeFile(t, stale, "old")

	for ev := range newMigrator().Run(context.Background(), opts) {
		if ev.Err != nil {
			t.Fatal(ev.Err)
		}
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale file survived: %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	opts := project(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var last install.Event
	for ev := range newMigrator().Run(ctx, opts) {
		last = ev
	}
	if !last.Done || last.Err == nil || last.Completed != 0 {
		t.Errorf("last = %+v", last)
	}
}
