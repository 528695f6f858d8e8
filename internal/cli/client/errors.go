package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidCredentials is returned when credentials fail client-side validation
var ErrInvalidCredentials = errors.New("invalid credentials")

// HTTPError is returned when the backend answers with a non-2xx status
type HTTPError struct {
	StatusCode int
	Detail     string
	Response   *Response
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Detail, e.StatusCode)
}

// NetworkError is returned when no HTTP response could be obtained
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to send request: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status of err, or 0 when err is not an HTTPError
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether the backend rejected the token (401)
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsQuotaExhausted reports whether the free attempt quota is used up (402)
func IsQuotaExhausted(err error) bool {
	return StatusCode(err) == http.StatusPaymentRequired
}

// IsNetworkError reports whether err is a transport failure
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
