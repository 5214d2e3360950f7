// Package apperr defines the error kinds shared across the orchestration
// backend and the HTTP mapping between them and status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories handled uniformly across the
// pipeline (see §7 of the design doc for the propagation policy per kind).
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindAuthZ
	KindNotFound
	KindValidation
	KindRateLimited
	KindProviderError
	KindStoreError
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindAuthZ:
		return "authz"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	case KindProviderError:
		return "provider_error"
	case KindStoreError:
		return "store_error"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch on
// category without string matching.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Config(format string, args ...any) *Error         { return newf(KindConfig, format, args...) }
func AuthZ(format string, args ...any) *Error           { return newf(KindAuthZ, format, args...) }
func NotFound(format string, args ...any) *Error        { return newf(KindNotFound, format, args...) }
func Validation(format string, args ...any) *Error      { return newf(KindValidation, format, args...) }
func RateLimited(format string, args ...any) *Error     { return newf(KindRateLimited, format, args...) }
func ProviderError(format string, args ...any) *Error   { return newf(KindProviderError, format, args...) }
func StoreError(format string, args ...any) *Error      { return newf(KindStoreError, format, args...) }

func WrapConfig(err error, format string, args ...any) *Error {
	return wrap(KindConfig, err, format, args...)
}
func WrapAuthZ(err error, format string, args ...any) *Error {
	return wrap(KindAuthZ, err, format, args...)
}
func WrapNotFound(err error, format string, args ...any) *Error {
	return wrap(KindNotFound, err, format, args...)
}
func WrapValidation(err error, format string, args ...any) *Error {
	return wrap(KindValidation, err, format, args...)
}
func WrapRateLimited(err error, format string, args ...any) *Error {
	return wrap(KindRateLimited, err, format, args...)
}
func WrapProviderError(err error, format string, args ...any) *Error {
	return wrap(KindProviderError, err, format, args...)
}
func WrapStoreError(err error, format string, args ...any) *Error {
	return wrap(KindStoreError, err, format, args...)
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or KindUnknown if err isn't an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps a Kind to the HTTP status code named in §7.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindAuthZ:
		return 401
	case KindNotFound:
		return 404
	case KindValidation:
		return 400
	case KindRateLimited:
		return 429
	case KindProviderError, KindStoreError, KindConfig:
		return 500
	default:
		return 500
	}
}
