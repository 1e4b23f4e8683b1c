// Package index discovers the dependency tree of a component group.
//
// An [Indexer] walks an entry document depth-first with a [walk.Walker],
// recursing into every document that lives inside the group root and
// treating everything else as a leaf. Each run owns its visited set, so a
// path is yielded at most once per run and cyclic import graphs terminate.
//
//	ix := index.New(walk.New(nil, webRoot))
//	for n, err := range ix.Index(index.Options{
//		SrcRoot:   "./src",
//		GroupRoot: "components",
//		Entry:     "components/app.html",
//		Mode:      index.ModeExternal,
//	}) {
//		...
//	}
//
// The bundler consumes [ModeInternal] streams, the installer [ModeExternal].
package index
