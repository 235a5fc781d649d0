package core

import (
	"errors"
	"fmt"
)

// Error codes for domain errors.
const (
	ErrCodeAlreadyBound    = "already_bound"
	ErrCodeEmptyMessage    = "empty_message"
	ErrCodeMessageTooLong  = "message_too_long"
	ErrCodeInvalidMessage  = "invalid_message"
	ErrCodeUnavailable     = "unavailable"
	ErrCodeNotBound        = "not_bound"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeConnClosed      = "connection_closed"
	ErrCodeInternal        = "internal_error"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeUnsupportedType = "unsupported_type"
)

var (
	ErrAlreadyBound   = errors.New("connection already bound to another user")
	ErrEmptyMessage   = errors.New("message body is empty")
	ErrMessageTooLong = errors.New("message body too long")
	ErrInvalidMessage = errors.New("message body is invalid")
	ErrUnavailable    = errors.New("message store unavailable")
	ErrNotBound       = errors.New("connection is not bound to a user")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrConnClosed     = errors.New("connection closed")
)

// UnavailableError reports a persistence failure. It matches ErrUnavailable
// with errors.Is and unwraps to the store's own error.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUnavailable, e.Err)
}

func (e *UnavailableError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// ToCoreError maps any error returned by the core to its wire code.
func ToCoreError(err error) *CoreError {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}

	switch {
	case errors.Is(err, ErrAlreadyBound):
		return coreError(ErrCodeAlreadyBound, err.Error())
	case errors.Is(err, ErrEmptyMessage):
		return coreError(ErrCodeEmptyMessage, err.Error())
	case errors.Is(err, ErrMessageTooLong):
		return coreError(ErrCodeMessageTooLong, err.Error())
	case errors.Is(err, ErrInvalidMessage):
		return coreError(ErrCodeInvalidMessage, err.Error())
	case errors.Is(err, ErrUnavailable):
		// the store's error text stays in the logs
		return coreError(ErrCodeUnavailable, ErrUnavailable.Error())
	case errors.Is(err, ErrNotBound):
		return coreError(ErrCodeNotBound, err.Error())
	case errors.Is(err, ErrBadRequest):
		return coreError(ErrCodeBadRequest, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return coreError(ErrCodeUnauthorized, err.Error())
	case errors.Is(err, ErrConnClosed):
		return coreError(ErrCodeConnClosed, err.Error())
	default:
		return coreError(ErrCodeInternal, "internal error")
	}
}
