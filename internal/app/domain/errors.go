package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrBrandNotFound = errors.New("brand not found")
	ErrInvalidTask   = errors.New("invalid task")
)

// Auth failure codes reported to callers.
const (
	AuthMissingToken = "missing-token"
	AuthInvalidToken = "invalid-token"
)

// AuthError rejects a trigger request before any sync work starts.
type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth: " + e.Code
	}
	return fmt.Sprintf("auth: %s: %v", e.Code, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

const maxErrorBody = 512

// APIError is a non-success response from the ads API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ads api: status %d: %s", e.Status, truncate(e.Body))
}

// RateLimitError is a throttling response from the ads API.
type RateLimitError struct {
	Status     int
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("ads api: rate limited (status %d)", e.Status)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(", retry after %s", e.RetryAfter)
	}
	return msg
}

// AdFailure is one ad that could not be enqueued.
type AdFailure struct {
	AdID      string
	DedupeKey string
	Err       error
}

// DispatchError reports the ads of one brand that never reached the queue.
type DispatchError struct {
	BrandID  string
	Failures []AdFailure
}

func (e *DispatchError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("dispatch brand %s: failed", e.BrandID)
	}
	return fmt.Sprintf("dispatch brand %s: %d ads failed, first: %v", e.BrandID, len(e.Failures), e.Failures[0].Err)
}

func (e *DispatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// WatermarkStoreError is a failed read or write of the brand registry.
type WatermarkStoreError struct {
	BrandID string
	Op      string
	Err     error
}

func (e *WatermarkStoreError) Error() string {
	if e.BrandID == "" {
		return fmt.Sprintf("watermark store: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("watermark store: %s %s: %v", e.Op, e.BrandID, e.Err)
}

func (e *WatermarkStoreError) Unwrap() error { return e.Err }

func truncate(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= maxErrorBody {
		return body
	}
	return body[:maxErrorBody] + "..."
}
