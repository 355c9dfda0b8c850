// Package apperr defines the error taxonomy shared by the registry, adapters, and HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for reporting and HTTP status mapping.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindConfig     Kind = "config"
	KindUpstream   Kind = "upstream"
	KindTimeout    Kind = "timeout"
	KindEncoding   Kind = "encoding"
	KindEmpty      Kind = "empty"
	KindDisabled   Kind = "disabled"
	KindInternal   Kind = "internal"
)

// Error is an error with a Kind and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns an *Error of the given kind.
func New(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Validation returns a validation error with a formatted message.
func Validation(format string, args ...interface{}) error {
	return New(KindValidation, fmt.Sprintf(format, args...), nil)
}

// NotFound returns a not-found error with a formatted message.
func NotFound(format string, args ...interface{}) error {
	return New(KindNotFound, fmt.Sprintf(format, args...), nil)
}

// Conflict returns a conflict error with a formatted message.
func Conflict(format string, args ...interface{}) error {
	return New(KindConflict, fmt.Sprintf(format, args...), nil)
}

// Config returns a missing/invalid configuration error with a formatted message.
func Config(format string, args ...interface{}) error {
	return New(KindConfig, fmt.Sprintf(format, args...), nil)
}

// Disabled returns an error for a feature turned off in configuration.
func Disabled(feature string) error {
	return New(KindDisabled, feature+" not enabled", nil)
}

// KindOf returns the Kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error kind to an HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindEmpty:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindConfig:
		return http.StatusServiceUnavailable
	case KindUpstream, KindTimeout, KindEncoding:
		return http.StatusBadGateway
	case KindDisabled:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
