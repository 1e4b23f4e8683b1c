package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single request made by [NewClient] clients.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when the upstream answers 404.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for transport failures and unexpected statuses.
	ErrNetwork = errors.New("network error")
)

// NewClient creates an HTTP client with the given timeout, or
// [DefaultTimeout] when timeout is zero.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// CheckStatus converts a status code into an error. 2xx is success, 404 is
// [ErrNotFound], 5xx and 429 are retryable [ErrNetwork] errors and anything
// else is a plain [ErrNetwork].
func CheckStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", ErrNotFound, code)
	case code >= 500, code == http.StatusTooManyRequests:
		return &RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// CheckResponse is [CheckStatus] for resp, carrying a Retry-After delay on
// retryable errors.
func CheckResponse(resp *http.Response) error {
	err := CheckStatus(resp.StatusCode)
	var re *RetryableError
	if errors.As(err, &re) {
		re.After = retryAfter(resp.Header)
	}
	return err
}
