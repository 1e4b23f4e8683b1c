// Package walk discovers the outgoing references of a single HTML document.
//
// A [Walker] parses one document and yields a [Node] for every
// <link rel="import" href> and <script src> element in source order, with the
// reference resolved relative to the document's directory. Walking is single
// level: recursion over the import graph is the job of package index.
//
// Two namespaced directive elements steer the walk and are stripped from the
// document before it is rendered:
//
//	<wcm-ignore path="../legacy/shim.html"></wcm-ignore>
//	<wcm-import path="./lazy-panel.html"></wcm-import>
//
// wcm-ignore adds the resolved path to the caller's ignore [PathSet] so that it
// is never yielded again during that run; wcm-import force-includes a path that
// does not appear as a link or script.
//
// All sets are owned by the caller. A Walker holds no state between calls, so
// one Walker may serve concurrent runs.
package walk
