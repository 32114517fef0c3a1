package errors

import (
	"errors"
	"fmt"
)

// General error types

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrMissingCredentials indicates a required API key is not configured
	ErrMissingCredentials = errors.New("missing credentials")
)

// Prompt construction errors. Both are programmer errors: the role set and
// the templates are fixed at build time.

var (
	// ErrUnknownRole indicates a role outside the declared set or without a template
	ErrUnknownRole = errors.New("unknown role")

	// ErrMissingInput indicates a template placeholder has no value
	ErrMissingInput = errors.New("missing input")
)

// Inference and I/O errors

var (
	// ErrInference covers any failure of the model call: transport, timeout,
	// service error or an empty/malformed completion
	ErrInference = errors.New("inference failure")

	// ErrRateLimitExceeded indicates the client-side rate limiter gave up waiting
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrIO indicates the report could not be read or the output could not be written
	ErrIO = errors.New("io failure")
)

// MultiError wraps multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Unwrap exposes the collected errors to errors.Is / errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Tag marks err with a sentinel kind while keeping err in the chain, so both
// errors.Is(result, kind) and errors.Is(result, cause) hold.
func Tag(err, kind error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
