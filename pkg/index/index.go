package index

import (
	"fmt"
	"iter"
	"path/filepath"
	"slices"
	"strings"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
	"github.com/matzehuels/wcm/pkg/walk"
)

// Mode selects which nodes an index run emits.
type Mode int

const (
	// ModeAll emits every node.
	ModeAll Mode = iota
	// ModeInternal emits nodes inside the group root.
	ModeInternal
	// ModeExternal emits nodes outside the group root.
	ModeExternal
)

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeInternal:
		return "internal"
	case ModeExternal:
		return "external"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "all", "internal" or "external".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ModeAll, nil
	case "internal":
		return ModeInternal, nil
	case "external":
		return ModeExternal, nil
	default:
		return 0, wcmerrors.New(wcmerrors.ErrCodeInvalidInput, "unknown index mode %q (want all, internal or external)", s)
	}
}

// Options configures one index run.
type Options struct {
	// SrcRoot is the source directory. Relative paths resolve against the
	// working directory.
	SrcRoot string

	// GroupRoot is the prefix, relative to SrcRoot, of internal paths.
	GroupRoot string

	// Entry is the entry document, relative to SrcRoot.
	Entry string

	// Mode filters emitted nodes.
	Mode Mode

	// Ignore seeds the run's ignore set. wcm-ignore directives found during
	// the run are added to it. Nil starts empty.
	Ignore *walk.PathSet
}

// Indexer produces partitioned dependency streams.
type Indexer struct {
	walker *walk.Walker
}

// New creates an Indexer walking documents with w. A nil walker reads from
// the local filesystem with no web root.
func New(w *walk.Walker) *Indexer {
	if w == nil {
		w = walk.New(nil, "")
	}
	return &Indexer{walker: w}
}

// Index walks the entry document and yields its transitive references in
// depth-first document order. Internal documents are recursed into before
// they are yielded; the entry itself is yielded last with a nil ref.
//
// Structural errors end the branch they occur in and are yielded. Iteration
// continues with the next sibling unless the consumer stops.
func (ix *Indexer) Index(opts Options) iter.Seq2[walk.Node, error] {
	return func(yield func(walk.Node, error) bool) {
		r, err := ix.newRun(opts, nil)
		if err != nil {
			yield(walk.Node{}, err)
			return
		}
		r.yield = yield
		r.run()
	}
}

// Edge is a discovered reference from one document to a path.
type Edge struct {
	From string
	To   string
}

type run struct {
	walker  *walk.Walker
	mode    Mode
	group   partition
	entry   string
	visited *walk.PathSet
	ignore  *walk.PathSet
	yield   func(walk.Node, error) bool
	edge    func(Edge)
	stopped bool
}

func (ix *Indexer) newRun(opts Options, edge func(Edge)) (*run, error) {
	group, err := newPartition(opts.SrcRoot, opts.GroupRoot)
	if err != nil {
		return nil, err
	}
	if opts.Entry == "" {
		return nil, wcmerrors.New(wcmerrors.ErrCodeInvalidInput, "entry path is required")
	}
	ignore := opts.Ignore
	if ignore == nil {
		ignore = walk.NewPathSet()
	}
	return &run{
		walker:  ix.walker,
		mode:    opts.Mode,
		group:   group,
		entry:   filepath.Join(group.src, filepath.FromSlash(opts.Entry)),
		visited: walk.NewPathSet(),
		ignore:  ignore,
		edge:    edge,
	}, nil
}

func (r *run) run() {
	r.visited.Add(r.entry)
	if !r.descend(r.entry) {
		return
	}
	r.emit(walk.Node{Path: r.entry, Kind: walk.KindRoot})
}

// descend walks doc and reports whether it finished without error.
func (r *run) descend(doc string) bool {
	for n, err := range r.walker.Walk(doc, r.ignore) {
		if err != nil {
			r.fail(err)
			return false
		}
		if r.edge != nil {
			r.edge(Edge{From: doc, To: n.Path})
		}
		if !r.visited.Add(n.Path) {
			continue
		}
		if r.group.contains(n.Path) && n.IsDocument() {
			if !r.descend(n.Path) {
				if r.stopped {
					return false
				}
				continue
			}
		}
		if !r.emit(n) {
			return false
		}
	}
	return !r.stopped
}

func (r *run) emit(n walk.Node) bool {
	if r.stopped {
		return false
	}
	internal := r.internal(n)
	switch {
	case r.mode == ModeInternal && !internal, r.mode == ModeExternal && internal:
		return true
	}
	if r.yield != nil && !r.yield(n, nil) {
		r.stopped = true
	}
	return !r.stopped
}

func (r *run) fail(err error) {
	if r.stopped || r.yield == nil {
		return
	}
	if !r.yield(walk.Node{}, err) {
		r.stopped = true
	}
}

// internal reports whether n belongs to the group. The entry document is
// internal wherever it lives.
func (r *run) internal(n walk.Node) bool {
	return n.Kind == walk.KindRoot || r.group.contains(n.Path)
}

// partition classifies absolute paths as inside or outside a group root.
type partition struct {
	src  string
	root string
}

func newPartition(srcRoot, groupRoot string) (partition, error) {
	src, err := filepath.Abs(srcRoot)
	if err != nil {
		return partition{}, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidPath, err, "source root %s", srcRoot)
	}
	return partition{src: src, root: filepath.ToSlash(filepath.Clean(groupRoot))}, nil
}

// contains reports whether path lies under the source root and its
// slash-separated relative form starts with the group root.
func (p partition) contains(path string) bool {
	rel, err := filepath.Rel(p.src, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	if p.root == "." {
		return true
	}
	return strings.HasPrefix(rel, p.root)
}

// IsInternal reports whether path is internal to the group configured in
// opts.
func IsInternal(opts Options, path string) bool {
	p, err := newPartition(opts.SrcRoot, opts.GroupRoot)
	if err != nil {
		return false
	}
	return p.contains(path)
}

// Collect drains seq, returning the nodes or the first error.
func Collect(seq iter.Seq2[walk.Node, error]) ([]walk.Node, error) {
	var nodes []walk.Node
	for n, err := range seq {
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// Groups maps group roots to their entry documents, as configured under
// bundle.components.
type Groups map[string][]string

// Roots returns the group roots in sorted order.
func (g Groups) Roots() []string {
	roots := make([]string, 0, len(g))
	for root := range g {
		roots = append(roots, root)
	}
	slices.Sort(roots)
	return roots
}

// IndexGroups runs Index for every entry of every group, in sorted group
// order and declared entry order. Each entry run has its own visited set;
// dedup across entries is the caller's concern.
func (ix *Indexer) IndexGroups(groups Groups, srcRoot string, mode Mode) iter.Seq2[walk.Node, error] {
	return func(yield func(walk.Node, error) bool) {
		for _, root := range groups.Roots() {
			for _, entry := range groups[root] {
				opts := Options{SrcRoot: srcRoot, GroupRoot: root, Entry: entry, Mode: mode}
				for n, err := range ix.Index(opts) {
					if !yield(n, err) {
						return
					}
				}
			}
		}
	}
}
