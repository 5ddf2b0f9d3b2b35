// Package common defines shared constants and sentinel errors used across
// client and server layers of tokenauth. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal      = errors.New("internal error")
	ErrVersionConflict = errors.New("version conflict")

	ErrValidationFailed = errors.New("validation failed")

	// Authentication errors.
	ErrAuthRequired       = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotLoggedIn        = errors.New("not logged in")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrMissingRefreshToken = errors.New("refresh token is required")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// ValidationError collects per-field messages. It matches
// ErrValidationFailed under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// Add records msg for field. The first message for a field wins.
func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}
	if _, ok := v.Fields[field]; ok {
		return
	}
	v.Fields[field] = msg
}

func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (v *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// StorageError wraps a database failure. It matches both ErrorInternal and
// the underlying cause under errors.Is.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrorInternal, e.Err}
}

// HTTPStatus maps an error returned by the service layer to a response code.
// Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidationFailed),
		errors.Is(err, ErrMissingRefreshToken),
		errors.Is(err, ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthRequired),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrInvalidRefreshToken),
		errors.Is(err, ErrNotLoggedIn):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
