package coach

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/openai/openai-go/v3"
)

var (
	// ErrRemoteService is matched by every failure that originates from the LLM service, including unusable
	// responses.
	ErrRemoteService = errors.NewSentinel("remote service failure")
	// ErrSchemaValidation is matched when the LLM answered but the answer does not describe a valid plan.
	ErrSchemaValidation = errors.NewSentinel("response failed schema validation")
	// ErrEmptyInput is returned for blank plan descriptions before any remote call.
	ErrEmptyInput = errors.NewSentinel("empty input")
	// ErrNotConfigured is returned when no API key is configured.
	ErrNotConfigured = fmt.Errorf("llm not configured: %w", ErrRemoteService)
)

// ValidationError lists every problem found in a structured LLM response.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid plan: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrSchemaValidation, ErrRemoteService}
}

// FailureKind classifies remote failures for logs and metrics.
type FailureKind string

const (
	FailureRateLimit      FailureKind = "rate_limit"
	FailureAuthentication FailureKind = "authentication"
	FailureInvalidRequest FailureKind = "invalid_request"
	FailureServer         FailureKind = "server_error"
	FailureTimeout        FailureKind = "timeout"
	FailureEmptyResponse  FailureKind = "empty_response"
	FailureUnknown        FailureKind = "unknown"
)

// RemoteError is a classified transport or API failure.
type RemoteError struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() []error {
	return []error{ErrRemoteService, e.Err}
}

// classify wraps err from the OpenAI client into a *RemoteError.
func classify(err error) error {
	if err == nil {
		return nil
	}
	remote := &RemoteError{Kind: FailureUnknown, Err: err}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		remote.Kind = FailureTimeout
		return remote
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		remote.StatusCode = apiErr.StatusCode
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			remote.Kind = FailureRateLimit
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			remote.Kind = FailureAuthentication
		case apiErr.StatusCode >= http.StatusInternalServerError:
			remote.Kind = FailureServer
		case apiErr.StatusCode >= http.StatusBadRequest:
			remote.Kind = FailureInvalidRequest
		}
	}
	return remote
}
