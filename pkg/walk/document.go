package walk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
)

const (
	// DocumentExt is the extension of walkable documents.
	DocumentExt = ".html"

	// IgnoreDirective is the element name of the ignore-by-path directive.
	IgnoreDirective = "wcm-ignore"

	// ImportDirective is the element name of the force-import directive.
	ImportDirective = "wcm-import"
)

var (
	// ErrExtension is returned when a document path does not end in [DocumentExt].
	ErrExtension = errors.New("not an html document")

	// ErrNotAbsolute is returned by helpers that require absolute paths.
	ErrNotAbsolute = errors.New("path is not absolute")
)

// Kind classifies a discovered reference.
type Kind int

const (
	// KindImport is a <link rel="import" href> reference.
	KindImport Kind = iota
	// KindScript is a <script src> reference.
	KindScript
	// KindForced is a path included by a wcm-import directive.
	KindForced
	// KindRoot marks an entry document yielded by an indexer.
	KindRoot
)

func (k Kind) String() string {
	switch k {
	case KindImport:
		return "import"
	case KindScript:
		return "script"
	case KindForced:
		return "forced"
	case KindRoot:
		return "root"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reader reads document contents by path.
type Reader interface {
	ReadFile(name string) ([]byte, error)
}

// OSReader reads documents from the local filesystem.
type OSReader struct{}

// ReadFile implements [Reader].
func (OSReader) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// Ref is a handle on the element that produced a [Node]. It does not own the
// document; it only allows rewriting the reference attribute in place.
type Ref struct {
	doc  *Document
	node *html.Node
	attr string
}

// Attr returns the attribute name holding the reference ("href" or "src").
func (r *Ref) Attr() string { return r.attr }

// Value returns the current attribute value.
func (r *Ref) Value() string {
	for _, a := range r.node.Attr {
		if a.Key == r.attr {
			return a.Val
		}
	}
	return ""
}

// Set rewrites the attribute value.
func (r *Ref) Set(v string) {
	for i, a := range r.node.Attr {
		if a.Key == r.attr {
			r.node.Attr[i].Val = v
			return
		}
	}
	r.node.Attr = append(r.node.Attr, html.Attribute{Key: r.attr, Val: v})
}

// Document returns the document owning the element.
func (r *Ref) Document() *Document { return r.doc }

// directive is a parsed wcm-ignore or wcm-import element.
type directive struct {
	name string
	path string
}

// reference is a link or script element in source order.
type reference struct {
	kind Kind
	ref  *Ref
	// directive paths have no element
	path string
}

// Document is a parsed HTML document with its directives removed.
type Document struct {
	// Path is the absolute path the document was read from.
	Path string

	root       *html.Node
	refs       []reference
	directives []directive
}

// ReadDocument reads and parses the document at path, which must be absolute
// and end in [DocumentExt].
func ReadDocument(r Reader, path string) (*Document, error) {
	if !filepath.IsAbs(path) {
		return nil, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidPath, ErrNotAbsolute, "read %s", path)
	}
	if err := checkExt(path); err != nil {
		return nil, err
	}
	data, err := r.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wcmerrors.Wrap(wcmerrors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseDocument(path, data)
}

// ParseDocument parses data as the document at path.
func ParseDocument(path string, data []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	d := &Document{Path: path, root: root}
	d.scan()
	return d, nil
}

func checkExt(path string) error {
	if !IsDocument(path) {
		return wcmerrors.Wrap(wcmerrors.ErrCodeInvalidExtension, ErrExtension, "%s", path)
	}
	return nil
}

// IsDocument reports whether path names a walkable document.
func IsDocument(path string) bool {
	return strings.EqualFold(filepath.Ext(path), DocumentExt)
}

// scan collects references and directives in document order and detaches
// directive elements from the tree.
func (d *Document) scan() {
	var detach []*html.Node
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == IgnoreDirective || n.Data == ImportDirective:
				if p := attr(n, "path"); p != "" {
					d.directives = append(d.directives, directive{name: n.Data, path: p})
					if n.Data == ImportDirective {
						d.refs = append(d.refs, reference{kind: KindForced, path: p})
					}
				}
				detach = append(detach, n)
			case n.DataAtom == atom.Link && isImportLink(n):
				d.refs = append(d.refs, reference{kind: KindImport, ref: &Ref{doc: d, node: n, attr: "href"}})
			case n.DataAtom == atom.Script && attr(n, "src") != "":
				d.refs = append(d.refs, reference{kind: KindScript, ref: &Ref{doc: d, node: n, attr: "src"}})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(d.root)

	// A self-closed directive swallows its following siblings as children,
	// so hoist them before detaching.
	for _, n := range detach {
		parent := n.Parent
		if parent == nil {
			continue
		}
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
			parent.InsertBefore(c, n)
		}
		parent.RemoveChild(n)
	}
}

func isImportLink(n *html.Node) bool {
	for _, rel := range strings.Fields(attr(n, "rel")) {
		if strings.EqualFold(rel, "import") {
			return attr(n, "href") != ""
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Render writes the contents of head and body, without the document
// scaffolding the parser adds to fragments.
func (d *Document) Render(w io.Writer) error {
	for _, section := range []atom.Atom{atom.Head, atom.Body} {
		n := find(d.root, section)
		if n == nil {
			continue
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(w, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// String renders the document, returning "" on error.
func (d *Document) String() string {
	var b strings.Builder
	if err := d.Render(&b); err != nil {
		return ""
	}
	return b.String()
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}
