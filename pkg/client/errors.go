package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrInvalidPage is returned for page numbers below 1. No request is made.
	ErrInvalidPage = errors.New("page number must be >= 1")

	// ErrNoCache is returned by cache-only helpers when no Redis is configured.
	ErrNoCache = errors.New("page cache not configured")

	// ErrCoolingDown is returned without a request while a 429 cooldown runs.
	ErrCoolingDown = errors.New("upstream rate limit cooldown in effect")
)

// ErrorClass represents a classification of page fetch failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents bodies that are not a valid page envelope.
	ErrorClassDecode ErrorClass = "decode"
)

// APIError is a failed page fetch.
type APIError struct {
	Page       int
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("artworks %s error (page %d, status %d): %s: %v",
			e.ErrorClass, e.Page, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("artworks %s error (page %d, status %d): %s",
		e.ErrorClass, e.Page, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ClassOf returns the ErrorClass of err, or "" when err is not an APIError.
func ClassOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ""
}
