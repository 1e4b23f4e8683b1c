package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}
	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeDownload, cause, "download %s", "a.html")

	if err.Code != ErrCodeDownload {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeDownload)
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{"matching code", New(ErrCodeInvalidInput, "test"), ErrCodeInvalidInput, true},
		{"different code", New(ErrCodeInvalidInput, "test"), ErrCodeNotFound, false},
		{"wrapped with fmt", fmt.Errorf("outer: %w", New(ErrCodeUnknownCommand, "x")), ErrCodeUnknownCommand, true},
		{"plain error", errors.New("plain"), ErrCodeInternal, false},
		{"nil error", nil, ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeNetwork, "x")); got != ErrCodeNetwork {
		t.Errorf("GetCode() = %q, want %q", got, ErrCodeNetwork)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeInvalidPath, "bad path")); got != "bad path" {
		t.Errorf("UserMessage() = %q", got)
	}
	wrapped := Wrap(ErrCodeDownload, errors.New("timeout"), "download x")
	if got := UserMessage(wrapped); got != "download x: timeout" {
		t.Errorf("UserMessage(wrapped) = %q", got)
	}
	if got := UserMessage(errors.New("plain")); got != "plain" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
}

func TestValidateDependencyName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"polymer", false},
		{"@org/foo", false},
		{"paper-button", false},
		{"", true},
		{"@org", true},
		{"@/foo", true},
		{"@org/", true},
		{"@org/foo/bar", true},
		{"foo/bar", true},
		{"..", true},
		{"a\\b", true},
		{"has space", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDependencyName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDependencyName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidManifest) {
				t.Errorf("error code = %q, want %q", GetCode(err), ErrCodeInvalidManifest)
			}
		})
	}
}

func TestValidateVersion(t *testing.T) {
	if err := ValidateVersion("a", "1.2.3"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateVersion("a", "development"); err != nil {
		t.Errorf("development should be valid: %v", err)
	}
	for _, v := range []string{"", "  ", "../x", "1/2", ".."} {
		if err := ValidateVersion("a", v); err == nil {
			t.Errorf("ValidateVersion(%q) should fail", v)
		}
	}
}
