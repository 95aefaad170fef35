package github

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrAuth              = errors.New("github: authentication failed")
	ErrNotFound          = errors.New("github: not found")
	ErrRateLimitOrServer = errors.New("github: rate limited or server error")
	ErrNetwork           = errors.New("github: network error")
	ErrUnexpectedStatus  = errors.New("github: unexpected status")
	// ErrTooLarge marks contents the API reports without a body.
	ErrTooLarge          = errors.New("github: file too large for the contents API")
)

// APIError describes a failed call. Message carries the provider's own
// message when the response body had one.
type APIError struct {
	Op          string
	StatusCode  int
	Message     string
	RateLimited bool
	Err         error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is maps the status code onto the package sentinels.
func (e *APIError) Is(target error) bool {
	return target == e.kind()
}

func (e *APIError) kind() error {
	switch {
	case e.StatusCode == 0:
		return ErrNetwork
	case e.RateLimited:
		return ErrRateLimitOrServer
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrAuth
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500:
		return ErrRateLimitOrServer
	default:
		return ErrUnexpectedStatus
	}
}

func statusError(op string, resp *http.Response, message string) error {
	// GitHub answers exhausted quotas with 403 and a zero remaining count.
	limited := resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
	return &APIError{
		Op:          op,
		StatusCode:  resp.StatusCode,
		Message:     message,
		RateLimited: limited,
	}
}

func networkError(op string, err error) error {
	return &APIError{Op: op, Err: err}
}
