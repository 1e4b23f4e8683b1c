package httputil

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	ctx := context.Background()
	transient := &RetryableError{Err: errors.New("boom")}

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{"success", 0, nil, 1, false},
		{"recovers", 2, transient, 3, false},
		{"exhausted", 5, transient, 3, true},
		{"permanent", 5, errors.New("bad request"), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Backoff{Attempts: 3, Delay: time.Millisecond}.Do(ctx, func(attempt int) error {
				if attempt != calls {
					t.Errorf("attempt = %d, want %d", attempt, calls)
				}
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Backoff{Attempts: 3, Delay: time.Hour}.Do(ctx, func(int) error {
		return &RetryableError{Err: errors.New("boom")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		code      int
		sentinel  error
		retryable bool
	}{
		{http.StatusOK, nil, false},
		{http.StatusNoContent, nil, false},
		{http.StatusNotFound, ErrNotFound, false},
		{http.StatusForbidden, ErrNetwork, false},
		{http.StatusTooManyRequests, ErrNetwork, true},
		{http.StatusBadGateway, ErrNetwork, true},
	}
	for _, tt := range tests {
		err := CheckStatus(tt.code)
		if tt.sentinel == nil {
			if err != nil {
				t.Errorf("CheckStatus(%d) = %v, want nil", tt.code, err)
			}
			continue
		}
		if !errors.Is(err, tt.sentinel) {
			t.Errorf("CheckStatus(%d) = %v, want %v", tt.code, err, tt.sentinel)
		}
		if IsRetryable(err) != tt.retryable {
			t.Errorf("CheckStatus(%d) retryable = %v, want %v", tt.code, IsRetryable(err), tt.retryable)
		}
	}
}

func TestBackoffRetryAfterCapped(t *testing.T) {
	b := Backoff{Attempts: 2, Delay: time.Millisecond, MaxDelay: 20 * time.Millisecond}
	start := time.Now()
	calls := 0
	err := b.Do(context.Background(), func(int) error {
		calls++
		return &RetryableError{Err: errors.New("busy"), After: time.Hour}
	})
	if err == nil || calls != 2 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
	if d := time.Since(start); d > time.Second {
		t.Errorf("waited %v, want the cap to apply", d)
	}
}

func TestCheckResponse(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusServiceUnavailable, Header: http.Header{"Retry-After": {"7"}}}
	var re *RetryableError
	if err := CheckResponse(resp); !errors.As(err, &re) || re.After != 7*time.Second {
		t.Errorf("CheckResponse = %v, want retryable after 7s", err)
	}

	resp = &http.Response{StatusCode: http.StatusNotFound, Header: http.Header{}}
	if err := CheckResponse(resp); !errors.Is(err, ErrNotFound) || IsRetryable(err) {
		t.Errorf("CheckResponse(404) = %v", err)
	}
}

func TestNewClient(t *testing.T) {
	if c := NewClient(0); c.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.Timeout, DefaultTimeout)
	}
	if c := NewClient(time.Second); c.Timeout != time.Second {
		t.Errorf("Timeout = %v, want 1s", c.Timeout)
	}
}
