package resolve

import (
	"net/url"
	"strings"
)

const (
	// DefaultInterceptSrc is the path segment that triggers interception.
	DefaultInterceptSrc = "bower_components"

	// DefaultInterceptDest is the prefix under which versioned copies live.
	DefaultInterceptDest = "web_components"

	// Development is the manifest version that disables versioning and caching.
	Development = "development"

	// MissingVersion is the version segment used when a dependency has no
	// manifest entry.
	MissingVersion = "undefined"

	// OpaqueParam is the query parameter marking an opaque upstream response.
	OpaqueParam = "wcm-opaque"
)

// Result is the outcome of resolving one request path.
type Result struct {
	// Development is true when the manifest pins the dependency to [Development].
	// Callers must bypass the cache and fetch the original request.
	Development bool

	// Opaque is true when the upstream response must be rehydrated before
	// caching. [Resolve] never sets it; see [IsOpaque] and [ResolveURL].
	Opaque bool

	// Missing is true when the path was intercepted but the dependency has no
	// manifest entry. VersionedPath then contains [MissingVersion].
	Missing bool

	// Dependency is the manifest key that was looked up ("" when the path
	// was not intercepted).
	Dependency string

	// VersionedPath is the rewritten path, or the input path when it does not
	// contain the intercept source.
	VersionedPath string
}

// Intercepted reports whether the path was rewritten under the destination.
func (r Result) Intercepted() bool { return r.Dependency != "" }

// Resolve maps path to its versioned location under interceptDest.
func Resolve(path string, m Manifest, interceptSrc, interceptDest string) Result {
	res := Result{VersionedPath: path}
	if interceptSrc == "" {
		return res
	}

	idx := strings.Index(path, interceptSrc)
	if idx < 0 {
		return res
	}

	// segments[0] is the intercept source itself (or its trailing part when
	// the source contains slashes).
	segments := strings.Split(path[idx+len(interceptSrc):], "/")
	if len(segments) < 2 || segments[1] == "" {
		return res
	}

	name, rest := segments[1], segments[2:]
	if strings.HasPrefix(name, "@") && len(rest) > 0 {
		name, rest = name+"/"+rest[0], rest[1:]
	}

	version, ok := m[name]
	if !ok {
		version = MissingVersion
	}

	parts := make([]string, 0, len(rest)+3)
	parts = append(parts, interceptDest, name, version)
	parts = append(parts, rest...)

	return Result{
		Development:   version == Development,
		Missing:       !ok,
		Dependency:    name,
		VersionedPath: strings.Join(parts, "/"),
	}
}

// IsOpaque reports whether u carries the opaque-response query parameter.
func IsOpaque(u *url.URL) bool {
	if u == nil {
		return false
	}
	_, ok := u.Query()[OpaqueParam]
	return ok
}

// ResolveURL resolves the path of u and sets Opaque from its query.
func ResolveURL(u *url.URL, m Manifest, interceptSrc, interceptDest string) Result {
	res := Resolve(u.Path, m, interceptSrc, interceptDest)
	res.Opaque = IsOpaque(u)
	return res
}
