package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
	"github.com/matzehuels/wcm/pkg/install"
	"github.com/matzehuels/wcm/pkg/resolve"
)

// Options configures dependency discovery and migration.
type Options struct {
	// ProjectDir holds the project package file. Relative directories
	// below are resolved against it.
	ProjectDir  string
	DepsRootDir string
	DepsOutDir  string

	// PackageFile is a comma separated list of package file names.
	PackageFile string

	NameKey         string
	VersionKey      string
	DependenciesKey string
}

// DefaultOptions mirrors the node_modules layout.
func DefaultOptions() Options {
	return Options{
		ProjectDir:      ".",
		DepsRootDir:     "node_modules",
		DepsOutDir:      resolve.DefaultInterceptDest,
		PackageFile:     "package.json",
		NameKey:         "name",
		VersionKey:      "version",
		DependenciesKey: "dependencies",
	}
}

// Dependency is one discovered package.
type Dependency struct {
	Name         string
	Version      string
	Dir          string
	Dependencies []string
}

func (d Dependency) String() string { return d.Name + "@" + d.Version }

// Migrator discovers and copies dependencies.
type Migrator struct {
	logger *log.Logger
}

// New creates a Migrator. A nil logger means log.Default().
func New(logger *log.Logger) *Migrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Migrator{logger: logger}
}

// Dependencies walks the dependency tree breadth first, starting from the
// project's direct dependencies. Each package is reported once. A package
// that cannot be read is reported as an error and its subtree is skipped.
func (m *Migrator) Dependencies(opts Options) iter.Seq2[Dependency, error] {
	return func(yield func(Dependency, error) bool) {
		root, err := filepath.Abs(opts.ProjectDir)
		if err != nil {
			yield(Dependency{}, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidPath, err, "project dir %s", opts.ProjectDir))
			return
		}
		project, err := readPackage(root, opts)
		if err != nil {
			yield(Dependency{}, err)
			return
		}

		depsRoot := join(root, opts.DepsRootDir)
		queue := slices.Clone(project.Dependencies)
		seen := make(map[string]bool, len(queue))
		for _, name := range queue {
			seen[name] = true
		}
		for len(queue) > 0 {
			name := queue[0]
			queue = queue[1:]

			dep, err := readPackage(filepath.Join(depsRoot, filepath.FromSlash(name)), opts)
			if err != nil {
				if !yield(Dependency{Name: name}, err) {
					return
				}
				continue
			}
			for _, sub := range dep.Dependencies {
				if !seen[sub] {
					seen[sub] = true
					queue = append(queue, sub)
				}
			}
			if !yield(dep, nil) {
				return
			}
		}
	}
}

// List collects discovered dependencies into a manifest of name to version.
// Read errors are logged and skipped.
func (m *Migrator) List(opts Options) (resolve.Manifest, error) {
	out := resolve.Manifest{}
	for dep, err := range m.Dependencies(opts) {
		if err != nil {
			if dep.Name == "" {
				return nil, err
			}
			m.logger.Warn("skipping dependency", "name", dep.Name, "err", err)
			continue
		}
		out[dep.Name] = dep.Version
	}
	return out, nil
}

// Run copies every dependency to DepsOutDir/name/version. Discovery happens
// first, so Pending is final before the first copy starts.
func (m *Migrator) Run(ctx context.Context, opts Options) iter.Seq[install.Event] {
	return func(yield func(install.Event) bool) {
		var p install.Progress
		emit := func(label string, err error, done bool) bool {
			p.Label = label
			return yield(install.Event{Progress: p, Err: err, Done: done})
		}

		root, err := filepath.Abs(opts.ProjectDir)
		if err != nil {
			emit(install.LabelFinished, err, true)
			return
		}
		outDir := join(root, opts.DepsOutDir)

		var steps []Dependency
		for dep, err := range m.Dependencies(opts) {
			if err != nil {
				if dep.Name == "" {
					emit(install.LabelFinished, err, true)
					return
				}
				if !emit("Error", err, false) {
					return
				}
				continue
			}
			steps = append(steps, dep)
			p.Pending++
			if !emit(install.LabelStarting, nil, false) {
				return
			}
		}

		for _, dep := range steps {
			if err := ctx.Err(); err != nil {
				emit(install.LabelFinished, err, true)
				return
			}
			dst := filepath.Join(outDir, filepath.FromSlash(dep.Name), dep.Version)
			if err := copyTree(dep.Dir, dst); err != nil {
				err = wcmerrors.Wrap(wcmerrors.ErrCodeInternal, err, "copy %s -> %s", dep.Dir, dst)
				if !emit(dep.Name, err, false) {
					return
				}
			}
			p.Completed++
			m.logger.Debug("migrated", "dependency", dep.String(), "dst", dst)
			if !emit(dep.Name, nil, false) {
				return
			}
		}
		emit(install.LabelFinished, nil, true)
	}
}

func join(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func readPackage(dir string, opts Options) (Dependency, error) {
	for _, name := range strings.Split(opts.PackageFile, ",") {
		path := filepath.Join(dir, strings.TrimSpace(name))
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Dependency{}, wcmerrors.Wrap(wcmerrors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return parsePackage(dir, path, data, opts)
	}
	return Dependency{}, wcmerrors.New(wcmerrors.ErrCodeFileNotFound, "could not find package file in %q", dir)
}

func parsePackage(dir, path string, data []byte, opts Options) (Dependency, error) {
	var pkg map[string]json.RawMessage
	if err := json.Unmarshal(data, &pkg); err != nil {
		return Dependency{}, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	dep := Dependency{Dir: dir}
	if err := lookup(pkg, opts.NameKey, &dep.Name); err != nil {
		return Dependency{}, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidInput, err, "%s", path)
	}
	if err := lookup(pkg, opts.VersionKey, &dep.Version); err != nil {
		return Dependency{}, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidInput, err, "%s", path)
	}
	var deps map[string]string
	if err := lookup(pkg, opts.DependenciesKey, &deps); err != nil {
		return Dependency{}, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidInput, err, "%s", path)
	}
	dep.Dependencies = make([]string, 0, len(deps))
	for name := range deps {
		dep.Dependencies = append(dep.Dependencies, name)
	}
	slices.Sort(dep.Dependencies)
	return dep, nil
}

// lookup decodes pkg[key] into v. A missing key leaves v untouched.
func lookup(pkg map[string]json.RawMessage, key string, v any) error {
	raw, ok := pkg[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	return nil
}
