package media

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnsupportedModel is returned when no route matches a model id.
	ErrUnsupportedModel = errors.New("unsupported model")

	// ErrUnsupportedCapability is returned when a provider cannot produce the requested media kind.
	ErrUnsupportedCapability = errors.New("capability not supported by provider")

	// ErrUnknownProvider is returned when no adapter factory is registered for a provider id.
	ErrUnknownProvider = errors.New("unknown media provider")

	// ErrReferenceCount is returned when a mode receives too few or too many reference items.
	ErrReferenceCount = errors.New("invalid reference media count")

	// ErrInvalidInput is returned when input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingCredentials is returned when an adapter is built without an API key.
	ErrMissingCredentials = errors.New("missing provider credentials")

	// ErrTaskFailed is returned when the provider reports a failed job.
	ErrTaskFailed = errors.New("generation task failed")

	// ErrInconsistentState is returned when a job completes without a result.
	ErrInconsistentState = errors.New("task completed without a result")

	// ErrTaskNotFound is returned when a stashed task is not found.
	ErrTaskNotFound = errors.New("media task not found")

	// ErrNoUploader is returned when no upload collaborator is available.
	ErrNoUploader = errors.New("no upload provider available")
)

// ValidationError is raised before any network I/O. The caller can fix the input and retry.
type ValidationError struct {
	Message string
	Err     error
}

// NewValidationError wraps a sentinel with a formatted message.
func NewValidationError(err error, format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %v", e.Message, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ProviderError means the vendor rejected the request or the job failed server-side.
type ProviderError struct {
	Provider ProviderID
	// Status is the HTTP status, or the vendor envelope code, or 0 for failed jobs.
	Status  int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient reports whether the status is worth another attempt.
func (e *ProviderError) Transient() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// NetworkError means a request was issued but no response arrived.
type NetworkError struct {
	Provider ProviderID
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UnknownError preserves an unrecognized failure for diagnostics.
type UnknownError struct {
	Provider ProviderID
	Raw      string
	Err      error
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("%s: unknown error: %s", e.Provider, e.Raw)
}

func (e *UnknownError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsTransient reports whether err is a network failure or a retryable provider status.
func IsTransient(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Transient()
	}
	return false
}
