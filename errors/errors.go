package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorNotFound represents absence of a requested row, entity or file.
	// Read paths translate this into a nil result rather than surfacing it.
	ErrorNotFound ErrorClass = iota
	// ErrorConflict represents a duplicate unique key or a lost receipt
	ErrorConflict
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorUnavailable represents transient backend connectivity failures
	ErrorUnavailable
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorNotFound:
		return "not_found"
	case ErrorConflict:
		return "conflict"
	case ErrorInvalid:
		return "invalid"
	case ErrorUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Relational store errors
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrInvalidOwner   = errors.New("invalid owning user identifier")

	// Entity store errors
	ErrEntityNotFound    = errors.New("entity not found")
	ErrPartitionNotFound = errors.New("partition not found")

	// Queue errors
	ErrReceiptNotFound = errors.New("receipt not found or expired")
	ErrTopicNotFound   = errors.New("queue topic not found")

	// Object and file store errors
	ErrBlobNotFound  = errors.New("blob not found")
	ErrShareNotFound = errors.New("share not found")

	// Connection errors
	ErrNoConnection   = errors.New("no connection available")
	ErrBackendTimeout = errors.New("backend timeout")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsNotFound checks if an error indicates routine absence
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorNotFound
	}

	if errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrPartitionNotFound) ||
		errors.Is(err, ErrReceiptNotFound) ||
		errors.Is(err, ErrTopicNotFound) ||
		errors.Is(err, ErrBlobNotFound) ||
		errors.Is(err, ErrShareNotFound) {
		return true
	}

	// Raw backend errors surface "not found" in their message
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "no such file")
}

// IsConflict checks if an error indicates a duplicate-key conflict
func IsConflict(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorConflict
	}

	if errors.Is(err, ErrDuplicateEmail) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "duplicate") ||
		strings.Contains(errStr, "already exists") ||
		strings.Contains(errStr, "unique constraint")
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrInvalidOwner) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig)
}

// IsUnavailable checks if an error indicates a transient backend failure
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorUnavailable
	}

	if errors.Is(err, ErrNoConnection) || errors.Is(err, ErrBackendTimeout) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	unavailablePatterns := []string{
		"timeout",
		"connection",
		"network",
		"temporary",
		"unavailable",
	}

	for _, pattern := range unavailablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	switch {
	case IsNotFound(err):
		return ErrorNotFound
	case IsConflict(err):
		return ErrorConflict
	case IsInvalid(err):
		return ErrorInvalid
	default:
		// Unknown errors are treated as transient so callers may retry
		return ErrorUnavailable
	}
}

// newClassified creates a new classified error
// This is an internal helper - use the Wrap* functions instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapNotFound wraps an error as not-found with context
func WrapNotFound(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorNotFound, wrappedErr, component, method, wrappedErr.Error())
}

// WrapConflict wraps an error as a conflict with context
func WrapConflict(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorConflict, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// WrapUnavailable wraps an error as a transient backend failure with context
func WrapUnavailable(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorUnavailable, wrappedErr, component, method, wrappedErr.Error())
}
