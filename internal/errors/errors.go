// Package errors defines the application error taxonomy. Every error carries a
// code so callers can decide how to surface it without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown           = "UNKNOWN"
	CodeProfileNotFound   = "PROFILE_NOT_FOUND"
	CodeGenerationFailure = "GENERATION_FAILURE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeValidation        = "VALIDATION"
	CodeConfig            = "CONFIG"
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error is the concrete application error.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *Error) Code() string {
	return e.code
}

// Message is the error text without the wrapped cause.
func (e *Error) Message() string {
	return e.message
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if there is none.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

func newError(code, message string, cause error) error {
	return &Error{code: code, message: message, err: cause}
}

// NewProfileNotFound reports that a user never confirmed onboarding.
func NewProfileNotFound(userID int64) error {
	return newError(CodeProfileNotFound, fmt.Sprintf("profile for user %d not found", userID), nil)
}

// NewGenerationFailure wraps a failed or unparseable completion/search call.
func NewGenerationFailure(message string, cause error) error {
	return newError(CodeGenerationFailure, message, cause)
}

// NewInvalidTransition reports an event that has no transition from the current mode.
func NewInvalidTransition(message string) error {
	return newError(CodeInvalidTransition, message, nil)
}

// NewStoreUnavailable wraps a persistence failure.
func NewStoreUnavailable(message string, cause error) error {
	return newError(CodeStoreUnavailable, message, cause)
}

func NewValidationError(message string, cause error) error {
	return newError(CodeValidation, message, cause)
}

func NewConfigError(message string, cause error) error {
	return newError(CodeConfig, message, cause)
}

func IsProfileNotFound(err error) bool   { return Code(err) == CodeProfileNotFound }
func IsGenerationFailure(err error) bool { return Code(err) == CodeGenerationFailure }
func IsInvalidTransition(err error) bool { return Code(err) == CodeInvalidTransition }
func IsStoreUnavailable(err error) bool  { return Code(err) == CodeStoreUnavailable }
func IsValidation(err error) bool        { return Code(err) == CodeValidation }
