package llm

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError_Auth(t *testing.T) {
	err := ClassifyError(errors.New("401 Unauthorized: invalid api key"))

	if err.Type != ErrorTypeAuth {
		t.Errorf("expected auth error type, got %s", err.Type)
	}
	if err.Retryable {
		t.Error("auth errors must not be retryable")
	}
	if err.StatusCode != 401 {
		t.Errorf("expected status 401, got %d", err.StatusCode)
	}
}

func TestClassifyError_ModelNotFound(t *testing.T) {
	err := ClassifyError(errors.New("the model `gpt-9` does not exist"))

	if err.Type != ErrorTypeModel {
		t.Errorf("expected model error type, got %s", err.Type)
	}
	if err.Retryable {
		t.Error("model errors must not be retryable")
	}
}

func TestClassifyError_Retryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"connection refused", errors.New("dial tcp: connection refused")},
		{"timeout", errors.New("request timeout exceeded")},
		{"rate limit", errors.New("429 rate limit exceeded")},
		{"server error", errors.New("503 Service Unavailable")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(tt.err)
			if !classified.Retryable {
				t.Errorf("expected %v to be retryable", tt.err)
			}
			if !IsRetryable(classified) {
				t.Error("IsRetryable disagrees with Retryable field")
			}
		})
	}
}

func TestClassifyError_PassesThroughStructured(t *testing.T) {
	orig := NewError(ErrorTypeEndpoint, "custom", true, nil)
	wrapped := fmt.Errorf("outer: %w", orig)

	classified := ClassifyError(wrapped)
	if classified != orig {
		t.Error("expected existing *Error to pass through unchanged")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewError(ErrorTypeUnknown, "wrapper", false, cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestGetErrorType_NonLLMError(t *testing.T) {
	if got := GetErrorType(errors.New("plain")); got != ErrorTypeUnknown {
		t.Errorf("expected unknown type for plain error, got %s", got)
	}
}
