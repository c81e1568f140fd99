// Package errors defines the error taxonomy shared by every exhibit package.
//
// Errors are *ExhibitError values classified by type (config, lifecycle,
// transient, resource, internal) and identified by code. The package level
// sentinels match any error of the same type and code under errors.Is. The
// package also turns external compiler output into structured diagnostics.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	// ErrorTypeConfig covers invalid or missing options. Never retried.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeLifecycle covers operations invoked in the wrong state.
	ErrorTypeLifecycle ErrorType = "lifecycle"
	// ErrorTypeTransient covers external services that are not ready yet.
	ErrorTypeTransient ErrorType = "transient"
	// ErrorTypeResource covers required resources that are absent.
	ErrorTypeResource ErrorType = "resource"
	ErrorTypeInternal ErrorType = "internal"
)

// ExhibitError is a structured error type with context.
type ExhibitError struct {
	Type      ErrorType
	Code      string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Component string
	Retryable bool
}

// Error implements the error interface.
func (e *ExhibitError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *ExhibitError) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same type and code. This lets the
// package level sentinels below be matched with errors.Is regardless of the
// message or context attached to a particular occurrence.
func (e *ExhibitError) Is(target error) bool {
	var t *ExhibitError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *ExhibitError) WithContext(key string, value interface{}) *ExhibitError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithComponent adds component context.
func (e *ExhibitError) WithComponent(component string) *ExhibitError {
	e.Component = component

	return e
}

// WithCause attaches an underlying error.
func (e *ExhibitError) WithCause(cause error) *ExhibitError {
	e.Cause = cause

	return e
}

// Error creation functions

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *ExhibitError {
	return &ExhibitError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewLifecycleError creates a lifecycle-order error.
func NewLifecycleError(code, message string) *ExhibitError {
	return &ExhibitError{
		Type:    ErrorTypeLifecycle,
		Code:    code,
		Message: message,
	}
}

// NewTransientError creates an error for a dependency that may become ready later.
func NewTransientError(code, message string, cause error) *ExhibitError {
	return &ExhibitError{
		Type:      ErrorTypeTransient,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: true,
	}
}

// NewResourceError creates a missing-resource error.
func NewResourceError(code, message string) *ExhibitError {
	return &ExhibitError{
		Type:    ErrorTypeResource,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *ExhibitError {
	return &ExhibitError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var ee *ExhibitError
	if errors.As(err, &ee) {
		return ee.Retryable
	}

	return false
}

// IsConfigError checks if an error is configuration related.
func IsConfigError(err error) bool {
	return hasType(err, ErrorTypeConfig)
}

// IsLifecycleError checks if an error was caused by calling an operation in
// the wrong state.
func IsLifecycleError(err error) bool {
	return hasType(err, ErrorTypeLifecycle)
}

// IsResourceError checks if an error was caused by a missing resource.
func IsResourceError(err error) bool {
	return hasType(err, ErrorTypeResource)
}

// HasCode checks if an error carries the given code.
func HasCode(err error, code string) bool {
	var ee *ExhibitError
	if errors.As(err, &ee) {
		return ee.Code == code
	}

	return false
}

func hasType(err error, t ErrorType) bool {
	var ee *ExhibitError
	if errors.As(err, &ee) {
		return ee.Type == t
	}

	return false
}

// Common error codes.
const (
	ErrCodeInvalidOption      = "ERR_INVALID_OPTION"
	ErrCodeMissingOption      = "ERR_MISSING_OPTION"
	ErrCodeUnknownLanguage    = "ERR_UNKNOWN_LANGUAGE"
	ErrCodeTagAttributes      = "ERR_TAG_ATTRIBUTES"
	ErrCodeInitRequest        = "ERR_INIT_REQUEST"
	ErrCodeInvalidURIScheme   = "ERR_INVALID_URI_SCHEME"
	ErrCodeAlreadyInitialized = "ERR_ALREADY_INITIALIZED"
	ErrCodeNotInitialized     = "ERR_NOT_INITIALIZED"
	ErrCodeDestroyed          = "ERR_DESTROYED"
	ErrCodeInvalidTransition  = "ERR_INVALID_TRANSITION"
	ErrCodeWorkerUnavailable  = "ERR_WORKER_UNAVAILABLE"
	ErrCodeNoOutput           = "ERR_NO_OUTPUT"
	ErrCodeCompileFailed      = "ERR_COMPILE_FAILED"
	ErrCodeModelUnavailable   = "ERR_MODEL_UNAVAILABLE"
	ErrCodeSurfaceUnavailable = "ERR_SURFACE_UNAVAILABLE"
	ErrCodeExhibitionNotFound = "ERR_EXHIBITION_NOT_FOUND"
	ErrCodeCompositionFailed  = "ERR_COMPOSITION_FAILED"
	ErrCodeInternalError      = "ERR_INTERNAL"
)

// Sentinels for errors.Is matching. Only Type and Code take part in the
// comparison.
var (
	ErrAlreadyInitialized = NewLifecycleError(ErrCodeAlreadyInitialized, "already initialized")
	ErrNotInitialized     = NewLifecycleError(ErrCodeNotInitialized, "not initialized")
	ErrDestroyed          = NewLifecycleError(ErrCodeDestroyed, "destroyed")
	ErrInvalidTransition  = NewLifecycleError(ErrCodeInvalidTransition, "invalid lifecycle transition")
	ErrInvalidOption      = NewConfigError(ErrCodeInvalidOption, "invalid option")
	ErrMissingOption      = NewConfigError(ErrCodeMissingOption, "missing option")
	ErrUnknownLanguage    = NewConfigError(ErrCodeUnknownLanguage, "unknown language")
	ErrTagAttributes      = NewConfigError(ErrCodeTagAttributes, "'tagAttributes' option is only allowed for single tag types")
	ErrInitRequest        = NewConfigError(ErrCodeInitRequest, "updatePreview requires init")
	ErrInvalidURIScheme   = NewConfigError(ErrCodeInvalidURIScheme, "model must use file:// URI")
	ErrWorkerUnavailable  = NewTransientError(ErrCodeWorkerUnavailable, "could not obtain worker", nil)
	ErrNoOutput           = NewInternalError(ErrCodeNoOutput, "no output produced", nil)
	ErrModelUnavailable   = NewResourceError(ErrCodeModelUnavailable, "model is not available")
	ErrSurfaceUnavailable = NewResourceError(ErrCodeSurfaceUnavailable, "surface document is not available")
)

// Helper functions for common errors

// ErrOption creates an invalid option error naming the key.
func ErrOption(key string, value interface{}) *ExhibitError {
	return NewConfigError(
		ErrCodeInvalidOption,
		fmt.Sprintf("invalid value for option %q: %v", key, value),
	).WithContext("option", key)
}

// ErrAlreadyInitializedFor creates a double initialization error for a component.
func ErrAlreadyInitializedFor(component string) *ExhibitError {
	return NewLifecycleError(
		ErrCodeAlreadyInitialized,
		component+" is already initialized",
	).WithComponent(component)
}

// ErrExhibitionNotFound creates a lookup error for an unknown exhibition name.
func ErrExhibitionNotFound(name string) *ExhibitError {
	return NewConfigError(
		ErrCodeExhibitionNotFound,
		"exhibition not found: "+name,
	).WithContext("exhibition", name)
}
