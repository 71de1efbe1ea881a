// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed model call.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindRateLimit Kind = "rate_limit"
	KindAPI       Kind = "api"
)

// ErrAttemptsExhausted wraps the last error once every retry has failed.
var ErrAttemptsExhausted = errors.New("model call attempts exhausted")

// APIError is a failed call to a model vendor.
type APIError struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s error (HTTP %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s %s error: %v", e.Provider, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s %s error: %s", e.Provider, e.Kind, e.Message)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// ErrorKind returns the kind as a plain string for per-paper outcomes.
func (e *APIError) ErrorKind() string { return string(e.Kind) }

// IsTransient reports whether retrying the call may succeed: network
// failures, rate limits and server-side errors.
func (e *APIError) IsTransient() bool {
	switch e.Kind {
	case KindNetwork, KindRateLimit:
		return true
	}
	return e.StatusCode >= http.StatusInternalServerError
}

// classifyStatus maps an HTTP status from a vendor into an APIError.
func classifyStatus(provider string, status int, body string) *APIError {
	kind := KindAPI
	if status == http.StatusTooManyRequests {
		kind = KindRateLimit
	}
	return &APIError{Provider: provider, Kind: kind, StatusCode: status, Message: truncateMessage(body)}
}

func truncateMessage(s string) string {
	const limit = 300
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// isTransient reports whether err is worth retrying.
func isTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsTransient()
	}
	return false
}
