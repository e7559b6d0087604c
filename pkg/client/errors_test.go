package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{"client error should not retry", ErrorClassClient, false},
		{"decode error should not retry", ErrorClassDecode, false},
		{"server error should retry", ErrorClassServer, true},
		{"rate limit should retry", ErrorClassRateLimit, true},
		{"network error should retry", ErrorClassNetwork, true},
		{"empty error class should not retry", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{200, ""},
		{400, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}
	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestClassOf(t *testing.T) {
	if got := classOf(errors.New("dial tcp: refused")); got != ErrorClassNetwork {
		t.Errorf("plain error classified as %q, want network", got)
	}
	wrapped := fmt.Errorf("call: %w", &UpstreamError{StatusCode: 502, ErrorClass: ErrorClassServer})
	if got := classOf(wrapped); got != ErrorClassServer {
		t.Errorf("wrapped upstream error classified as %q, want server", got)
	}
}

func TestUpstreamError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *UpstreamError
		expected string
	}{
		{
			name: "error with wrapped error",
			err: &UpstreamError{
				StatusCode: 200,
				ErrorClass: ErrorClassDecode,
				Message:    "undecodable upstream body",
				Err:        errors.New("unexpected EOF"),
			},
			expected: "upstream decode error (status 200): undecodable upstream body: unexpected EOF",
		},
		{
			name: "error without wrapped error",
			err: &UpstreamError{
				StatusCode: 503,
				ErrorClass: ErrorClassServer,
				Message:    "model loading",
			},
			expected: "upstream server error (status 503): model loading",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUpstreamError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &UpstreamError{ErrorClass: ErrorClassDecode, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
	if !IsUpstreamError(fmt.Errorf("outer: %w", err)) {
		t.Error("IsUpstreamError should see through wrapping")
	}
}
