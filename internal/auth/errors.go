package auth

import (
	"errors"
	"fmt"

	"github.com/qumail/qumail-client/internal/requester"
)

var (
	// ErrCancelledByUser is returned when the surface closes before a
	// redirect arrives.
	ErrCancelledByUser = errors.New("login cancelled by user")
	// ErrIncompleteRedirect is returned when the redirect carries no code.
	ErrIncompleteRedirect = errors.New("redirect did not include an authorization code")
	// ErrExchangeFailed matches every *ExchangeError.
	ErrExchangeFailed = errors.New("authorization code exchange failed")
	// ErrLoginInProgress is returned by StartLogin while another attempt is
	// still running.
	ErrLoginInProgress = errors.New("a login is already in progress")
)

// ExchangeError describes a failed code exchange. StatusCode is zero when the
// backend was never reached.
type ExchangeError struct {
	StatusCode int
	Cause      error
}

func newExchangeError(cause error) *ExchangeError {
	e := &ExchangeError{Cause: cause}
	var apiErr *requester.APIError
	if errors.As(cause, &apiErr) {
		e.StatusCode = apiErr.StatusCode
	}
	return e
}

func (e *ExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %v", ErrExchangeFailed, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s: %v", ErrExchangeFailed, e.Cause)
}

func (e *ExchangeError) Unwrap() error {
	return e.Cause
}

func (e *ExchangeError) Is(target error) bool {
	return target == ErrExchangeFailed
}

// cancelledError is a cancellation caused by the attempt's context. It
// matches both ErrCancelledByUser and the context error.
type cancelledError struct {
	cause error
}

func (e *cancelledError) Error() string {
	return fmt.Sprintf("%s: %v", ErrCancelledByUser, e.cause)
}

func (e *cancelledError) Unwrap() error {
	return e.cause
}

func (e *cancelledError) Is(target error) bool {
	return target == ErrCancelledByUser
}
