// Package errors defines the coded application errors used to classify failures
// into user errors, storage errors, delivery errors and configuration errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown    = "UNKNOWN"
	CodeDatabase   = "DATABASE"
	CodeValidation = "VALIDATION"
	CodeDelivery   = "DELIVERY"
	CodeConfig     = "CONFIG"
)

// ApplicationError is the interface that all coded errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error is a coded error with a human-readable message and an optional cause.
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

// Message returns the message without the cause, safe to show to a user for validation errors.
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

// Constructors for each error code.

func NewValidationError(message string, cause error) error {
	return &Error{code: CodeValidation, message: message, err: cause}
}

func NewDatabaseError(message string, cause error) error {
	return &Error{code: CodeDatabase, message: message, err: cause}
}

func NewDeliveryError(message string, cause error) error {
	return &Error{code: CodeDelivery, message: message, err: cause}
}

func NewConfigError(message string, cause error) error {
	return &Error{code: CodeConfig, message: message, err: cause}
}

func IsValidation(err error) bool { return Code(err) == CodeValidation }

func IsDelivery(err error) bool { return Code(err) == CodeDelivery }

// UserMessage returns the message of a validation error and false for anything else.
func UserMessage(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) && e.code == CodeValidation {
		return e.message, true
	}
	return "", false
}
