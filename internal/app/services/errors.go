package services

import (
	"context"
	"errors"

	"github.com/fr0stylo/adsync/internal/app/domain"
)

// ErrInvalidSelector is returned by RunOne when neither brand nor page id is given.
var ErrInvalidSelector = errors.New("brand_id or page_id is required")

// SyncErrorKind classifies per-brand failures for logs and run responses.
type SyncErrorKind string

const (
	SyncErrorUnknown        SyncErrorKind = "unknown"
	SyncErrorAPI            SyncErrorKind = "api"
	SyncErrorRateLimit      SyncErrorKind = "rate_limit"
	SyncErrorDispatch       SyncErrorKind = "dispatch"
	SyncErrorWatermarkStore SyncErrorKind = "watermark_store"
	SyncErrorCanceled       SyncErrorKind = "canceled"
)

// ClassifySyncError maps an error to its kind. Checks run from most to least specific.
func ClassifySyncError(err error) SyncErrorKind {
	var (
		rateLimit *domain.RateLimitError
		apiErr    *domain.APIError
		dispatch  *domain.DispatchError
		store     *domain.WatermarkStoreError
	)
	switch {
	case err == nil:
		return SyncErrorUnknown
	case errors.As(err, &rateLimit):
		return SyncErrorRateLimit
	case errors.As(err, &apiErr):
		return SyncErrorAPI
	case errors.As(err, &dispatch):
		return SyncErrorDispatch
	case errors.As(err, &store):
		return SyncErrorWatermarkStore
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return SyncErrorCanceled
	default:
		return SyncErrorUnknown
	}
}
