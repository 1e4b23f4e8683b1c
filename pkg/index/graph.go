package index

import (
	"path/filepath"
	"slices"

	"github.com/matzehuels/wcm/pkg/walk"
)

// GraphNode is a vertex of a dependency [Graph].
type GraphNode struct {
	// Path is the absolute resolved path.
	Path string
	// Label is Path relative to the source root.
	Label    string
	Kind     walk.Kind
	Internal bool
}

// Graph is the reference graph of one entry document.
type Graph struct {
	Nodes []GraphNode
	Edges []Edge
}

// Node returns the vertex for path.
func (g *Graph) Node(path string) (GraphNode, bool) {
	i := slices.IndexFunc(g.Nodes, func(n GraphNode) bool { return n.Path == path })
	if i < 0 {
		return GraphNode{}, false
	}
	return g.Nodes[i], true
}

// Graph runs an index over opts and records every reference edge. Nodes
// are filtered by opts.Mode; edges are kept when both endpoints survive.
// The first structural error aborts the build.
func (ix *Indexer) Graph(opts Options) (*Graph, error) {
	var edges []Edge
	r, err := ix.newRun(Options{
		SrcRoot:   opts.SrcRoot,
		GroupRoot: opts.GroupRoot,
		Entry:     opts.Entry,
		Mode:      ModeAll,
		Ignore:    opts.Ignore,
	}, func(e Edge) { edges = append(edges, e) })
	if err != nil {
		return nil, err
	}

	g := &Graph{}
	keep := walk.NewPathSet()
	var first error
	r.yield = func(n walk.Node, err error) bool {
		if err != nil {
			first = err
			return false
		}
		internal := r.internal(n)
		if opts.Mode == ModeInternal && !internal || opts.Mode == ModeExternal && internal {
			return true
		}
		keep.Add(n.Path)
		g.Nodes = append(g.Nodes, GraphNode{
			Path:     n.Path,
			Label:    r.label(n.Path),
			Kind:     n.Kind,
			Internal: internal,
		})
		return true
	}
	r.run()
	if first != nil {
		return nil, first
	}

	seen := make(map[Edge]bool, len(edges))
	for _, e := range edges {
		if seen[e] || !keep.Has(e.From) || !keep.Has(e.To) {
			continue
		}
		seen[e] = true
		g.Edges = append(g.Edges, e)
	}
	return g, nil
}

func (r *run) label(path string) string {
	rel, err := filepath.Rel(r.group.src, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
