// Package render turns dependency graphs into diagrams.
//
// The [nodelink] subpackage renders an [index.Graph] as a Graphviz
// node-link diagram in DOT, SVG or PNG form.
//
// [nodelink]: github.com/matzehuels/wcm/pkg/render/nodelink
// [index.Graph]: github.com/matzehuels/wcm/pkg/index.Graph
package render
