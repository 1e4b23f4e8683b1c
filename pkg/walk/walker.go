package walk

import (
	"iter"
	"net/url"
	"path/filepath"
	"strings"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
)

// Node is one discovered reference.
type Node struct {
	// Ref points at the element the reference came from. It is nil for
	// wcm-import directives and indexer roots.
	Ref *Ref

	// Path is the absolute resolved path of the reference.
	Path string

	// Kind classifies the reference.
	Kind Kind
}

// IsDocument reports whether the node points at a walkable document.
func (n Node) IsDocument() bool { return IsDocument(n.Path) }

// Walker yields the references of single documents.
type Walker struct {
	// Reader reads documents. Nil means [OSReader].
	Reader Reader

	// Root is the directory that root-relative references ("/x/y.html")
	// resolve against. Empty means the filesystem root.
	Root string
}

// New creates a Walker reading through r with the given web root.
func New(r Reader, root string) *Walker {
	return &Walker{Reader: r, Root: root}
}

func (w *Walker) reader() Reader {
	if w.Reader == nil {
		return OSReader{}
	}
	return w.Reader
}

// Walk parses the document at documentPath and yields its references in
// source order. Relative paths are made absolute against the working
// directory. Paths in ignore are skipped, and wcm-ignore directives add to it;
// a nil ignore set is treated as empty.
//
// A read or parse failure is yielded once as an error, after which the
// sequence ends.
func (w *Walker) Walk(documentPath string, ignore *PathSet) iter.Seq2[Node, error] {
	return w.WalkAs(documentPath, documentPath, ignore)
}

// WalkAs reads the document at file but resolves its references relative to
// logical. The installer uses it to walk a downloaded copy as if it still
// lived at its original location.
func (w *Walker) WalkAs(file, logical string, ignore *PathSet) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		abs, err := filepath.Abs(file)
		if err != nil {
			yield(Node{}, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidPath, err, "%s", file))
			return
		}
		doc, err := ReadDocument(w.reader(), abs)
		if err != nil {
			yield(Node{}, err)
			return
		}
		base, err := filepath.Abs(logical)
		if err != nil {
			yield(Node{}, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidPath, err, "%s", logical))
			return
		}
		for n := range w.Document(doc, base, ignore) {
			if !yield(n, nil) {
				return
			}
		}
	}
}

// Document yields the references of an already parsed document, resolving
// them relative to base (an absolute document path).
func (w *Walker) Document(doc *Document, base string, ignore *PathSet) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if ignore == nil {
			ignore = NewPathSet()
		}
		dir := filepath.Dir(base)

		for _, d := range doc.directives {
			if d.name != IgnoreDirective {
				continue
			}
			if p, ok := w.resolve(dir, d.path); ok {
				ignore.Add(p)
			}
		}

		for _, r := range doc.refs {
			raw := r.path
			if r.ref != nil {
				raw = r.ref.Value()
			}
			p, ok := w.resolve(dir, raw)
			if !ok || ignore.Has(p) {
				continue
			}
			if !yield(Node{Ref: r.ref, Path: p, Kind: r.kind}) {
				return
			}
		}
	}
}

// resolve turns a reference into an absolute filesystem path. Remote and
// empty references report false.
func (w *Walker) resolve(dir, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "//") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	p := u.Path
	if p == "" {
		return "", false
	}
	if strings.HasPrefix(p, "/") {
		root := w.Root
		if root == "" {
			root = string(filepath.Separator)
		}
		return filepath.Join(root, filepath.FromSlash(p)), true
	}
	return filepath.Join(dir, filepath.FromSlash(p)), true
}
