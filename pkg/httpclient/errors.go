package httpclient

import (
	"errors"
	"net/http"
)

// APIError is the normalized form of every non-2xx response.
type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Info    string `json:"info"`
}

func (e *APIError) Error() string { return e.Message }

// ParseError reports a success response whose payload could not be decoded.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "failed to parse response: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0 when err is not an APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 or 403 response.
func IsUnauthorized(err error) bool {
	switch StatusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	default:
		return false
	}
}
