// Package nodelink renders reference graphs as node-link diagrams.
//
// # Usage
//
// Convert an [index.Graph] to DOT, then render it with Graphviz:
//
//	g, _ := index.New(nil).Graph(opts)
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Styling
//
// Entry documents are drawn bold. Documents are boxes and scripts are
// ellipses. References outside the group (vendored dependencies) are drawn
// dashed on a grey fill.
//
// # Dependencies
//
// Rendering uses [github.com/goccy/go-graphviz] in process; no Graphviz
// installation is needed.
//
// [index.Graph]: github.com/matzehuels/wcm/pkg/index.Graph
package nodelink
