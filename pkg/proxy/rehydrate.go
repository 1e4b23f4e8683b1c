package proxy

import (
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/matzehuels/wcm/pkg/store"
)

// hopHeaders are connection-scoped and never stored or forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// opaqueHeaders are dropped from rehydrated responses in addition to the
// hop-by-hop headers.
var opaqueHeaders = []string{
	"Content-Length",
	"Set-Cookie",
	"Set-Cookie2",
}

func stripHop(h http.Header) {
	for _, k := range hopHeaders {
		h.Del(k)
	}
}

// Rehydrate rebuilds an opaque upstream response field by field so it can
// be cached and served with correct metadata: status 200, hop-by-hop and
// cookie headers removed, a Content-Type derived from the request path or
// body when missing, and an explicit Content-Length. The body is copied in
// full. requestPath is the path the response was fetched for.
func Rehydrate(e *store.Entry, requestPath string) *store.Entry {
	h := e.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	stripHop(h)
	for _, k := range opaqueHeaders {
		h.Del(k)
	}

	body := append([]byte(nil), e.Body...)
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", contentType(requestPath, body))
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))

	return &store.Entry{Status: http.StatusOK, Header: h, Body: body}
}

func contentType(p string, body []byte) string {
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		return ct
	}
	return http.DetectContentType(body)
}
