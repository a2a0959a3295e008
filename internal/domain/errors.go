package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTransport     = errors.New("transport error")
	ErrRateLimited   = fmt.Errorf("%w: rate limit exceeded", ErrTransport)
	ErrParse         = errors.New("malformed provider record")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrConversion    = errors.New("conversion failed")
)

// APIError is returned by explorer clients for non-successful responses.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	RateLimit  bool
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: api error: %s", e.Provider, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.RateLimit {
		return ErrRateLimited
	}
	return ErrTransport
}
