package core

import (
	"errors"
	"fmt"
)

// Error is the typed error surface shared by every package in the module.
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Param      string    `json:"param,omitempty"`
	Code       string    `json:"code,omitempty"`
	Underlying error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest    ErrorType = "invalid_request_error"
	ErrDeviceUnavailable ErrorType = "device_unavailable_error"
	ErrConnectionFailed  ErrorType = "connection_failed_error"
	ErrMalformedResponse ErrorType = "malformed_response_error"
	ErrExhausted         ErrorType = "exhausted_error"
)

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
	}
}

// NewInvalidRequestErrorWithParam creates an invalid request error with a parameter.
func NewInvalidRequestErrorWithParam(message, param string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
		Param:   param,
	}
}

// NewDeviceUnavailableError reports a capture or playback device that could
// not be opened or disappeared mid-session.
func NewDeviceUnavailableError(message string, underlying error) *Error {
	return &Error{
		Type:       ErrDeviceUnavailable,
		Message:    message,
		Underlying: underlying,
	}
}

// NewConnectionFailedError reports a transport that could not be established
// or dropped unexpectedly.
func NewConnectionFailedError(message string, underlying error) *Error {
	return &Error{
		Type:       ErrConnectionFailed,
		Message:    message,
		Underlying: underlying,
	}
}

// NewMalformedResponseError reports a remote payload that could not be decoded.
func NewMalformedResponseError(message string, underlying error) *Error {
	return &Error{
		Type:       ErrMalformedResponse,
		Message:    message,
		Underlying: underlying,
	}
}

// NewExhaustedError reports a bounded resource that overflowed, such as the
// pre-connect send queue.
func NewExhaustedError(message string) *Error {
	return &Error{
		Type:    ErrExhausted,
		Message: message,
	}
}

// IsType reports whether err is a *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Type == t
	}
	return false
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Underlying
}
