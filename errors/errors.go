// Package errors defines the domain error taxonomy shared by the bus,
// the services and the transport layers.
//
// Every failure a client can observe is an *Error carrying a class, a wire
// code and a user-facing message. The bus converts them into error events,
// the HTTP layer into status codes. Infrastructure failures wrap their
// cause so logs keep the detail while clients only see a generic code.
package errors

import (
	"errors"
	"fmt"
)

type Class int

const (
	ClassAuthorization Class = iota
	ClassNotFound
	ClassInvalidState
	ClassValidation
	ClassInfrastructure
)

// Wire codes surfaced to clients in error events and HTTP bodies.
const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeChannelNotFound = "CHANNEL_NOT_FOUND"
	CodeMessageNotFound = "MESSAGE_NOT_FOUND"
	CodeChannelClosed   = "CHANNEL_CLOSED"
	CodeEmptyContent    = "EMPTY_CONTENT"
	CodeSessionRequired = "SESSION_REQUIRED"
	CodeNotPending      = "NOT_PENDING"
	CodeCodeExhausted   = "CODE_EXHAUSTED"
	CodeServerError     = "SERVER_ERROR"
)

type Error struct {
	Class   Class
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func Authorization(code, message string) *Error {
	return &Error{Class: ClassAuthorization, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Class: ClassNotFound, Code: code, Message: message}
}

func InvalidState(code, message string) *Error {
	return &Error{Class: ClassInvalidState, Code: code, Message: message}
}

func Validation(code, message string) *Error {
	return &Error{Class: ClassValidation, Code: code, Message: message}
}

// Infrastructure hides the cause behind a generic message; the wrapped error
// stays available for logging via Unwrap.
func Infrastructure(cause error) *Error {
	return &Error{
		Class:   ClassInfrastructure,
		Code:    CodeServerError,
		Message: "Something went wrong, please retry",
		cause:   cause,
	}
}

// ClassOf extracts the class of a domain error. Unknown errors are treated
// as infrastructure failures so they never leak internals to clients.
func ClassOf(err error) Class {
	var de *Error
	if errors.As(err, &de) {
		return de.Class
	}
	return ClassInfrastructure
}

// Wire maps any error to the {code, message} pair a client may see.
func Wire(err error) (code, message string) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, de.Message
	}
	return CodeServerError, "Something went wrong, please retry"
}

func Is(err, target error) bool    { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }
