package domain

import (
	"errors"
	"sort"
	"strings"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database, or exists but belongs to another user.
// The two cases are deliberately indistinguishable to callers.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing required field, password too short).
// Handlers should map this to HTTP 400 Bad Request.
var ErrValidation = errors.New("validation error")

// ErrInvalidCredentials is returned when an email/password pair does not match
// an active user. The token endpoint maps this to HTTP 400.
var ErrInvalidCredentials = errors.New("unable to authenticate with provided credentials")

// ErrUnauthenticated is returned when a bearer token is missing, unknown,
// or bound to an inactive user. Handlers should map this to HTTP 401.
var ErrUnauthenticated = errors.New("authentication credentials were not provided or are invalid")

// ValidationError carries per-field messages. It matches ErrValidation with
// errors.Is so callers that only care about the category need not unpack it.
type ValidationError struct {
	Fields map[string]string
}

// FieldError returns a ValidationError for a single field.
func FieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records a message for field, keeping the first message if one exists.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// Empty reports whether no field messages have been recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// Error renders the fields in a stable order, e.g. "validation error: name: is required".
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
