package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeExtraction represents network or parse failures during a fetch
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeRateLimit represents rate limiting by a provider target
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeValidation represents offer validation failures
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeResolution represents URL resolution failures
	ErrorTypeResolution ErrorType = "resolution"
	// ErrorTypePersistence represents store write failures
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// PipelineError represents a pipeline-stage error with provider context
type PipelineError struct {
	Type     ErrorType
	Provider string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Provider, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *PipelineError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeExtraction:
		return true
	case ErrorTypeRateLimit:
		return false
	default:
		return false
	}
}

// New creates a new PipelineError
func New(errType ErrorType, provider, message string, err error) *PipelineError {
	return &PipelineError{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewExtraction creates a new extraction error
func NewExtraction(provider, message string, err error) *PipelineError {
	return New(ErrorTypeExtraction, provider, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(provider string, duration time.Duration) *PipelineError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, provider, message, nil)
}

// NewValidation creates a new validation error
func NewValidation(provider, message string) *PipelineError {
	return New(ErrorTypeValidation, provider, message, nil)
}

// NewResolution creates a new resolution error
func NewResolution(provider, message string, err error) *PipelineError {
	return New(ErrorTypeResolution, provider, message, err)
}

// NewPersistence creates a new persistence error
func NewPersistence(provider, message string, err error) *PipelineError {
	return New(ErrorTypePersistence, provider, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(provider, message string, err error) *PipelineError {
	return New(ErrorTypePublisher, provider, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *PipelineError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// AsPipelineError extracts a PipelineError from an error chain.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
