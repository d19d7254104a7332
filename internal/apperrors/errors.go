// Package apperrors holds the error kinds shared by the data, auth and HTTP
// layers. Lower layers wrap one of the sentinels with %w; the HTTP error
// handler classifies with errors.Is.
package apperrors

import "errors"

var (
	// ErrConnection means no database connection could be obtained for the
	// request (unreachable server, acquisition timeout, open breaker).
	ErrConnection = errors.New("database connection unavailable")

	// ErrQuery means a statement failed or timed out.
	ErrQuery = errors.New("query failed")

	// ErrNotFound means the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	ErrValidation     = errors.New("validation failed")
	ErrDuplicateUser  = errors.New("user already registered")
	ErrAuthentication = errors.New("authentication failed")
)

// FormError is a user-facing failure that is rendered back into the form
// that produced it. Message is safe to show; Kind is one of the sentinels
// above.
type FormError struct {
	Kind    error
	Message string
}

func (e *FormError) Error() string { return e.Message }

func (e *FormError) Unwrap() error { return e.Kind }

func Validation(msg string) *FormError {
	return &FormError{Kind: ErrValidation, Message: msg}
}

func DuplicateUser(msg string) *FormError {
	return &FormError{Kind: ErrDuplicateUser, Message: msg}
}

func Authentication(msg string) *FormError {
	return &FormError{Kind: ErrAuthentication, Message: msg}
}

// AsForm reports whether err carries a FormError and returns it.
func AsForm(err error) (*FormError, bool) {
	var fe *FormError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
