package requester

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated matches backend rejections of the credential
	// (or of its absence).
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrUnknownRoute is returned for an operation ID missing from the route table.
	ErrUnknownRoute = errors.New("unknown route")
	// ErrMalformedResponse is returned when a success body is not JSON.
	ErrMalformedResponse = errors.New("malformed response body")
)

// APIError is a non-success response from the backend. Body is passed
// through exactly as received.
type APIError struct {
	StatusCode  int
	Body        []byte
	OperationID string
	RequestID   string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error %d", e.StatusCode)
	if e.OperationID != "" {
		msg += " on " + e.OperationID
	}
	if len(e.Body) > 0 {
		msg += ": " + string(e.Body)
	}
	if e.RequestID != "" {
		msg += " (request_id: " + e.RequestID + ")"
	}
	return msg
}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return target == ErrUnauthenticated
	}
	return false
}
