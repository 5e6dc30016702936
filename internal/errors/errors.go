package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrTypeValidation ErrorType = "validation_error"
	ErrTypeNotFound   ErrorType = "user_not_found"
	ErrTypeRateLimit  ErrorType = "rate_limit"
	ErrTypeNetwork    ErrorType = "network_error"
	ErrTypeServer     ErrorType = "server_error"
	ErrTypeNoRepos    ErrorType = "no_repos"
)

// RateLimitInfo is a snapshot of the request budget attached to rate-limit
// errors so callers can tell users when to retry.
type RateLimitInfo struct {
	Authenticated bool      `json:"authenticated"`
	Limit         int       `json:"limit"`
	Remaining     int       `json:"remaining"`
	Reset         time.Time `json:"reset"`
}

// Error represents a structured error with type and optional suggestions
type Error struct {
	Type        ErrorType
	Message     string
	Cause       error
	Suggestions []string
	RateLimit   *RateLimitInfo
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestion adds a suggestion for resolving the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithRateLimit attaches a rate budget snapshot to the error
func (e *Error) WithRateLimit(info RateLimitInfo) *Error {
	e.RateLimit = &info
	return e
}

// New creates a new structured error
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new structured error with formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type == errType
	}

	return false
}

// GetType returns the error type if it's a structured error
func GetType(err error) ErrorType {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type
	}

	return ErrTypeServer
}

// AsError returns the structured error if err carries one
func AsError(err error) (*Error, bool) {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr, true
	}

	return nil, false
}

// NewUserNotFound creates a not-found error with the standard suggestions
func NewUserNotFound(username string) *Error {
	return Newf(ErrTypeNotFound, "user '%s' not found on GitHub", username).
		WithSuggestion("Double-check the username spelling").
		WithSuggestion("Make sure the user has public repositories")
}

// NewRateLimited creates a rate-limit error with retry guidance
func NewRateLimited(info RateLimitInfo) *Error {
	err := New(ErrTypeRateLimit, "GitHub API rate limit exceeded. Please try again later.")
	if !info.Authenticated {
		err.WithSuggestion(
			"Server administrators: Configure GITHUB_TOKEN for higher rate limits (5,000/hour vs 60/hour)",
		)
	}

	return err.
		WithSuggestion("Wait 15-60 minutes before trying again").
		WithSuggestion("Try a different user or come back later").
		WithRateLimit(info)
}

// NewValidation creates a validation error rejected before any network call
func NewValidation(message string) *Error {
	return New(ErrTypeValidation, message)
}
