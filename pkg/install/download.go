package install

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/wcm/pkg/httputil"
)

// Remote asset defaults. The component bucket serves objects only with its
// own Host header and the S3 list-type query.
const (
	DefaultRemote      = "https://components.century.tech.s3.amazonaws.com"
	DefaultRemoteHost  = "components.century.tech.s3.amazonaws.com"
	DefaultContentType = "application/x-compressed-tar"
	listTypeParam      = "list-type"
)

// DownloaderOptions configures an [HTTPDownloader].
type DownloaderOptions struct {
	// Headers are sent with every request. A "Host" entry overrides the
	// request host.
	Headers map[string]string

	// ListType appends "?list-type=2" to every source URL.
	ListType bool

	Attempts int
	Delay    time.Duration
	Timeout  time.Duration
}

// DefaultDownloaderOptions returns the headers and query used against the
// default remote.
func DefaultDownloaderOptions() DownloaderOptions {
	return DownloaderOptions{
		Headers: map[string]string{
			"Host":         DefaultRemoteHost,
			"Content-Type": DefaultContentType,
		},
		ListType: true,
		Attempts: httputil.DefaultBackoff.Attempts,
		Delay:    httputil.DefaultBackoff.Delay,
	}
}

// HTTPDownloader downloads assets over HTTP with retries. Files are written
// atomically: dst is either absent, its previous content, or complete.
type HTTPDownloader struct {
	http     *http.Client
	headers  map[string]string
	listType bool
	backoff  httputil.Backoff
}

// NewHTTPDownloader creates a downloader. Nil opts means
// [DefaultDownloaderOptions].
func NewHTTPDownloader(opts *DownloaderOptions) *HTTPDownloader {
	o := DefaultDownloaderOptions()
	if opts != nil {
		o = *opts
	}
	return &HTTPDownloader{
		http:     httputil.NewClient(o.Timeout),
		headers:  o.Headers,
		listType: o.ListType,
		backoff: httputil.Backoff{
			Attempts: o.Attempts,
			Delay:    o.Delay,
			MaxDelay: httputil.DefaultBackoff.MaxDelay,
		},
	}
}

// Download fetches src into dst.
func (d *HTTPDownloader) Download(ctx context.Context, src, dst string) (int64, error) {
	target, err := d.target(src)
	if err != nil {
		return 0, err
	}
	var n int64
	err = d.backoff.Do(ctx, func(int) error {
		n, err = d.once(ctx, target, dst)
		return err
	})
	return n, err
}

func (d *HTTPDownloader) target(src string) (string, error) {
	if !d.listType {
		return src, nil
	}
	u, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", src, err)
	}
	q := u.Query()
	q.Set(listTypeParam, "2")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *HTTPDownloader) once(ctx context.Context, src, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return 0, err
	}
	for k, v := range d.headers {
		if http.CanonicalHeaderKey(k) == "Host" {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, &httputil.RetryableError{Err: fmt.Errorf("%w: %v", httputil.ErrNetwork, err)}
	}
	defer resp.Body.Close()

	if err := httputil.CheckResponse(resp); err != nil {
		return 0, err
	}
	return writeFile(dst, resp.Body)
}

func writeFile(dst string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".wcm-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return n, &httputil.RetryableError{Err: fmt.Errorf("%w: %v", httputil.ErrNetwork, err)}
	}
	if err := tmp.Close(); err != nil {
		return n, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return n, err
	}
	return n, os.Rename(tmp.Name(), dst)
}
