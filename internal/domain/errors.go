package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for domain operations
var (
	// ErrValidation indicates user input was rejected before any request was sent
	ErrValidation = errors.New("validation failed")

	// ErrNoSession indicates no user is signed in
	ErrNoSession = errors.New("no signed-in user")

	// ErrNoSelection indicates the operation needs a selected library
	ErrNoSelection = errors.New("no library selected")

	// ErrMissingID indicates the entity has not round-tripped with the server yet
	ErrMissingID = errors.New("entity has no server id")

	// ErrLibraryNotFound indicates the library is not in the current collection
	ErrLibraryNotFound = errors.New("library not found")

	// ErrBookNotFound indicates the book is not in the selected library
	ErrBookNotFound = errors.New("book not found")

	// ErrServerOffline indicates the library store is unreachable
	ErrServerOffline = errors.New("library store is unreachable")

	// ErrAuthFailed indicates the credentials were rejected
	ErrAuthFailed = errors.New("invalid username or password")

	// ErrNotFound indicates the library store returned 404
	ErrNotFound = errors.New("resource not found")
)

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (missing: %s)", e.Message, strings.Join(e.Fields, ", "))
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StatusError is returned when the library store answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrAuthFailed
	default:
		return nil
	}
}
