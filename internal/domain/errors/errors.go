package errors

import (
	"errors"
)

// ErrCannotDM is returned when the messaging service refuses to open a direct
// message channel with a user (bot accounts, disabled accounts).
var ErrCannotDM = errors.New("user cannot receive direct messages")

// ErrConnectionClosed is returned by the streaming transport when the remote
// end closes the connection.
var ErrConnectionClosed = errors.New("connection closed")

// TransientError marks a failure that may succeed if retried
// (network errors, rate limits, server errors).
type TransientError struct {
	msg string
	err error
}

func (e *TransientError) Error() string {
	return e.msg
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError creates a new transient error.
func NewTransientError(msg string, err error) error {
	return &TransientError{msg: msg, err: err}
}

// PermanentError marks a failure that will not succeed on retry
// (invalid credentials, missing permissions, contract violations).
type PermanentError struct {
	msg string
	err error
}

func (e *PermanentError) Error() string {
	return e.msg
}

func (e *PermanentError) Unwrap() error {
	return e.err
}

// NewPermanentError creates a new permanent error.
func NewPermanentError(msg string, err error) error {
	return &PermanentError{msg: msg, err: err}
}

// IsTransientError reports whether err or any error it wraps is transient.
func IsTransientError(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanentError reports whether err or any error it wraps is permanent.
func IsPermanentError(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
