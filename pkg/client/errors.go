package client

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when the 429 retry budget is spent.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context ends during a
	// rate-limit wait.
	ErrContextCancelled = errors.New("context cancelled")
)

// APIError represents an Itsperfect API failure with request context.
type APIError struct {
	StatusCode int
	Endpoint   string
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("itsperfect %s error on %s (status %d): %s: %v",
			e.ErrorClass, e.Endpoint, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("itsperfect %s error on %s (status %d): %s",
		e.ErrorClass, e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus buckets an HTTP status for logs and metrics.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// errorSnippet drains a short piece of the response body for the error
// message and closes the body. API error payloads are small JSON documents;
// anything beyond the limit adds noise, not signal.
func errorSnippet(resp *http.Response) string {
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 512))
	b = bytes.TrimSpace(b)
	if err != nil || len(b) == 0 {
		return resp.Status
	}
	return resp.Status + ": " + string(b)
}
