// Package httputil provides HTTP helpers shared by the proxy and the
// installer.
//
//   - [Backoff]: retry with a doubling, capped delay for errors wrapped in
//     [RetryableError], honoring Retry-After
//   - [CheckStatus] and [CheckResponse]: map response status codes to
//     [ErrNotFound], [ErrNetwork] and retryable errors
//   - [NewClient]: an *http.Client with the standard timeout
//
// A typical download:
//
//	err := httputil.DefaultBackoff.Do(ctx, func(int) error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: fmt.Errorf("%w: %v", httputil.ErrNetwork, err)}
//	    }
//	    defer resp.Body.Close()
//	    if err := httputil.CheckResponse(resp); err != nil {
//	        return err
//	    }
//	    ...
//	})
package httputil
